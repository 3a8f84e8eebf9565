package layout

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownPane = errors.New("unknown pane")
	ErrPaneFixed   = errors.New("pane cannot be hidden")
)

// PaneID names one region of the workspace.
type PaneID string

const (
	PaneDescription PaneID = "description"
	PaneEditor      PaneID = "editor"
	PaneAssistant   PaneID = "assistant"
)

// paneOrder is the left-to-right order of the top-level split.
var paneOrder = []PaneID{PaneDescription, PaneEditor, PaneAssistant}

// ParsePaneID validates a pane name.
func ParsePaneID(s string) (PaneID, error) {
	for _, p := range paneOrder {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPane, s)
}

// Config holds layout defaults and the minimum pane extents.
type Config struct {
	DefaultSizes      []float64 `yaml:"default_sizes"`
	TerminalSizes     []float64 `yaml:"terminal_sizes"`
	MinPanePx         float64   `yaml:"min_pane_px"`
	MinTerminalPx     float64   `yaml:"min_terminal_px"`
	ContainerWidthPx  float64   `yaml:"container_width_px"`
	ContainerHeightPx float64   `yaml:"container_height_px"`
}

// DefaultConfig returns the 25/50/25 workspace with an 80/20 terminal split.
func DefaultConfig() Config {
	return Config{
		DefaultSizes:      []float64{25, 50, 25},
		TerminalSizes:     []float64{80, 20},
		MinPanePx:         100,
		MinTerminalPx:     50,
		ContainerWidthPx:  1280,
		ContainerHeightPx: 720,
	}
}

// TerminalSnapshot is the state of the editor/terminal split.
type TerminalSnapshot struct {
	Visible    bool      `json:"visible"`
	Sizes      []float64 `json:"sizes"`
	MinPercent float64   `json:"min_percent"`
}

// Snapshot is a copy of the layout for rendering.
type Snapshot struct {
	Sizes      []float64        `json:"sizes"`
	Visible    []PaneID         `json:"visible"`
	SavedSizes []float64        `json:"saved_sizes"`
	Dragging   bool             `json:"dragging"`
	MinPercent float64          `json:"min_percent"`
	Terminal   TerminalSnapshot `json:"terminal"`
}
