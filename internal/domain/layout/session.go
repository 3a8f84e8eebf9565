package layout

import (
	"fmt"
	"slices"
	"sync"
)

// Session is the layout state of one workspace.
type Session struct {
	config Config

	mu               sync.Mutex
	sizes            []float64
	savedSizes       []float64
	assistantVisible bool
	dragging         bool
	minPct           float64

	terminalVisible bool
	terminalSizes   []float64
	terminalMinPct  float64
}

// NewSession creates a layout in the default three-pane state.
func NewSession(config Config) *Session {
	defaults := DefaultConfig()
	if len(config.DefaultSizes) != len(paneOrder) {
		config.DefaultSizes = defaults.DefaultSizes
	}
	if len(config.TerminalSizes) != 2 {
		config.TerminalSizes = defaults.TerminalSizes
	}

	s := &Session{config: config}
	s.minPct = minPercent(config.MinPanePx, config.ContainerWidthPx)
	s.terminalMinPct = minPercent(config.MinTerminalPx, config.ContainerHeightPx)
	s.reset()
	return s
}

// reset must be called with s.mu held (or before s is shared).
func (s *Session) reset() {
	sizes, ok := normalize(s.config.DefaultSizes, s.minPct)
	if !ok {
		sizes, _ = normalize(DefaultConfig().DefaultSizes, s.minPct)
	}
	s.sizes = sizes
	s.savedSizes = slices.Clone(sizes)
	s.assistantVisible = true
	s.dragging = false

	terminal, ok := normalize(s.config.TerminalSizes, s.terminalMinPct)
	if !ok {
		terminal, _ = normalize(DefaultConfig().TerminalSizes, s.terminalMinPct)
	}
	s.terminalSizes = terminal
	s.terminalVisible = false
}

// Toggle hides or shows a pane. Only the assistant pane can be toggled.
func (s *Session) Toggle(pane PaneID) error {
	switch pane {
	case PaneAssistant:
	case PaneDescription, PaneEditor:
		return fmt.Errorf("%w: %s", ErrPaneFixed, pane)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPane, pane)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.assistantVisible {
		s.hideAssistant()
	} else {
		s.showAssistant()
	}
	return nil
}

func (s *Session) hideAssistant() {
	s.savedSizes = slices.Clone(s.sizes)

	total := s.sizes[0] + s.sizes[1]
	if total <= 0 {
		panic(fmt.Sprintf("layout: cannot renormalize panes with sizes %v", s.sizes))
	}
	s.sizes = clampMin([]float64{
		s.sizes[0] / total * 100,
		s.sizes[1] / total * 100,
	}, s.minPct)
	s.assistantVisible = false
}

func (s *Session) showAssistant() {
	s.sizes = clampMin(slices.Clone(s.savedSizes), s.minPct)
	s.assistantVisible = true
}

// AssistantVisible reports whether the assistant pane is shown.
func (s *Session) AssistantVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assistantVisible
}

// BeginDrag marks the start of a gutter drag.
func (s *Session) BeginDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dragging = true
}

// Resize replaces the sizes of the visible panes while a drag is in progress.
// Input is normalized and clamped; input of the wrong length, with no positive
// mass, or outside a drag is ignored and false is returned.
func (s *Session) Resize(newSizes []float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resize(newSizes)
}

func (s *Session) resize(newSizes []float64) bool {
	if !s.dragging || len(newSizes) != len(s.sizes) {
		return false
	}
	sizes, ok := normalize(newSizes, s.minPct)
	if !ok {
		return false
	}
	s.sizes = sizes
	return true
}

// EndDrag finishes a drag, applying finalSizes when given. It reports whether
// finalSizes was applied; it is false when no drag was in progress.
func (s *Session) EndDrag(finalSizes []float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dragging {
		return false
	}
	applied := true
	if finalSizes != nil {
		applied = s.resize(finalSizes)
	}
	s.dragging = false
	return applied
}

// Restore resets the layout to the default three-pane split.
func (s *Session) Restore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// SetContainerSize updates the container extent used to translate the pixel
// floors into percentages and re-clamps the current sizes.
func (s *Session) SetContainerSize(widthPx, heightPx float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if widthPx > 0 {
		s.config.ContainerWidthPx = widthPx
		s.minPct = minPercent(s.config.MinPanePx, widthPx)
		s.sizes = clampMin(s.sizes, s.minPct)
		s.savedSizes = clampMin(s.savedSizes, s.minPct)
	}
	if heightPx > 0 {
		s.config.ContainerHeightPx = heightPx
		s.terminalMinPct = minPercent(s.config.MinTerminalPx, heightPx)
		s.terminalSizes = clampMin(s.terminalSizes, s.terminalMinPct)
	}
}

// ShowTerminal reveals the terminal sub-pane.
func (s *Session) ShowTerminal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminalVisible = true
}

// HideTerminal hides the terminal sub-pane.
func (s *Session) HideTerminal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminalVisible = false
}

// ToggleTerminal flips terminal visibility and returns the new value.
func (s *Session) ToggleTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminalVisible = !s.terminalVisible
	return s.terminalVisible
}

// ResizeTerminal sets the editor/terminal split while the terminal is shown.
func (s *Session) ResizeTerminal(sizes []float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.terminalVisible || len(sizes) != 2 {
		return false
	}
	out, ok := normalize(sizes, s.terminalMinPct)
	if !ok {
		return false
	}
	s.terminalSizes = out
	return true
}

// Sizes returns a copy of the visible pane sizes.
func (s *Session) Sizes() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sizes)
}

// Visible returns the visible panes in display order.
func (s *Session) Visible() []PaneID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible()
}

func (s *Session) visible() []PaneID {
	if s.assistantVisible {
		return slices.Clone(paneOrder)
	}
	return slices.Clone(paneOrder[:2])
}

// Snapshot returns a copy of the full layout state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Sizes:      slices.Clone(s.sizes),
		Visible:    s.visible(),
		SavedSizes: slices.Clone(s.savedSizes),
		Dragging:   s.dragging,
		MinPercent: s.minPct,
		Terminal: TerminalSnapshot{
			Visible:    s.terminalVisible,
			Sizes:      slices.Clone(s.terminalSizes),
			MinPercent: s.terminalMinPct,
		},
	}
}
