package workspace

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/layout"
	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/sandbox"
	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

// Workspace is one learner's editing session for one problem.
type Workspace struct {
	ID        string
	UserID    string
	ProblemID string
	CreatedAt time.Time

	host      *sandbox.Host
	layout    *layout.Session
	providers Providers
	metrics   *monitoring.Metrics
	logger    *zap.Logger

	mu         sync.RWMutex
	problem    *Problem
	source     string
	terminal   string
	runs       int64
	durations  []float64 // milliseconds, most recent last
	maxSamples int
	lastActive atomic.Int64 // unix nanos

	closeOnce sync.Once

	subsMu      sync.Mutex
	subs        map[string]chan Event
	subsClosed  bool
	eventBuffer int
}

type workspaceParams struct {
	id        string
	userID    string
	problemID string
	problem   *Problem
	source    string
	host      *sandbox.Host
	layout    *layout.Session
	providers Providers
	metrics   *monitoring.Metrics
	logger    *zap.Logger
	config    Config
}

func newWorkspace(p workspaceParams) *Workspace {
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	buffer := p.config.EventBuffer
	if buffer <= 0 {
		buffer = DefaultConfig().EventBuffer
	}
	samples := p.config.RunSamples
	if samples <= 0 {
		samples = DefaultConfig().RunSamples
	}

	w := &Workspace{
		ID:          p.id,
		UserID:      p.userID,
		ProblemID:   p.problemID,
		CreatedAt:   time.Now(),
		host:        p.host,
		layout:      p.layout,
		providers:   p.providers,
		metrics:     p.metrics,
		logger:      p.logger.With(zap.String("workspace_id", p.id)),
		problem:     p.problem,
		source:      p.source,
		maxSamples:  samples,
		subs:        make(map[string]chan Event),
		eventBuffer: buffer,
	}
	w.touch()
	return w
}

func (w *Workspace) touch() {
	w.lastActive.Store(time.Now().UnixNano())
}

// LastActive returns the time of the most recent operation.
func (w *Workspace) LastActive() time.Time {
	return time.Unix(0, w.lastActive.Load())
}

// Host returns the sandbox host.
func (w *Workspace) Host() *sandbox.Host { return w.host }

// Layout returns the layout session for read access. Mutations should go
// through UpdateLayout so subscribers are notified.
func (w *Workspace) Layout() *layout.Session { return w.layout }

// Problem returns the problem record, or nil if it was not fetched.
func (w *Workspace) Problem() *Problem {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.problem
}

// SetSource replaces the current source snapshot.
func (w *Workspace) SetSource(src string) {
	w.touch()
	w.mu.Lock()
	w.source = src
	w.mu.Unlock()
	w.publish(EventSource, map[string]int{"length": len(src)})
}

// Source returns the current source snapshot.
func (w *Workspace) Source() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.source
}

// Terminal returns the text currently shown in the terminal sub-pane.
func (w *Workspace) Terminal() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.terminal
}

// Run executes the current source snapshot and shows the result in the
// terminal sub-pane.
func (w *Workspace) Run(ctx context.Context) RunOutcome {
	w.touch()
	res := w.host.Run(ctx, w.Source())

	out := RunOutcome{
		Stdout:     res.Stdout,
		Error:      res.Error,
		DurationMs: float64(res.Duration) / float64(time.Millisecond),
	}
	switch {
	case res.Error == nil:
		out.Terminal = res.Stdout
	case res.Error.Kind == sandbox.KindUnavailable && res.Error.Loading:
		out.Terminal = MsgLoading
	case res.Error.Kind == sandbox.KindUnavailable:
		out.Terminal = MsgUnavailable
	default:
		out.Terminal = res.Error.Message
	}

	w.mu.Lock()
	w.terminal = out.Terminal
	if res.Error == nil || res.Error.Kind == sandbox.KindExecution {
		w.runs++
		w.durations = append(w.durations, out.DurationMs)
		if over := len(w.durations) - w.maxSamples; over > 0 {
			w.durations = w.durations[over:]
		}
	}
	w.mu.Unlock()

	w.layout.ShowTerminal()
	w.publish(EventRun, out)
	w.publish(EventLayout, w.layout.Snapshot())
	return out
}

// RetrySandbox clears a failed runtime load so the next run tries again.
func (w *Workspace) RetrySandbox() bool {
	w.touch()
	return w.host.Retry()
}

// UpdateLayout applies fn to the layout and notifies subscribers. op names the
// operation for metrics. fn reports whether the change was applied.
func (w *Workspace) UpdateLayout(op string, fn func(*layout.Session) (bool, error)) (layout.Snapshot, bool, error) {
	w.touch()
	applied, err := fn(w.layout)
	snap := w.layout.Snapshot()
	if err != nil {
		return snap, false, err
	}
	w.metrics.RecordLayoutOperation(op, applied)
	if applied {
		w.publish(EventLayout, snap)
	}
	return snap, applied, nil
}

// Autosave stores the current source as the learner's draft.
func (w *Workspace) Autosave(ctx context.Context) error {
	w.touch()
	if w.providers.Progress == nil {
		return ErrProviderUnavailable
	}
	if err := w.providers.Progress.Autosave(ctx, w.UserID, w.ProblemID, w.Source()); err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	return nil
}

// Submit sends the current source for grading.
func (w *Workspace) Submit(ctx context.Context) (*Submission, error) {
	w.touch()
	if w.providers.Progress == nil {
		return nil, ErrProviderUnavailable
	}
	sub, err := w.providers.Progress.Submit(ctx, w.UserID, w.ProblemID, w.Source())
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	w.logger.Info("Code submitted", zap.Int("version", sub.Version))
	return sub, nil
}

// Ask relays a question to the assistant along with the current source.
func (w *Workspace) Ask(ctx context.Context, message string) (string, error) {
	w.touch()
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	if w.providers.Assistant == nil {
		return "", ErrProviderUnavailable
	}
	reply, err := w.providers.Assistant.Ask(ctx, w.UserID, w.ProblemID, message, w.Source())
	if err != nil {
		return "", fmt.Errorf("assistant: %w", err)
	}
	w.publish(EventAssistant, AssistantExchange{Message: message, Reply: reply})
	return reply, nil
}

// Recommendations returns the problems suggested to the learner.
func (w *Workspace) Recommendations(ctx context.Context) ([]string, error) {
	w.touch()
	if w.providers.Recommendations == nil {
		return nil, ErrProviderUnavailable
	}
	ids, err := w.providers.Recommendations.Recommend(ctx, w.UserID, w.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("recommendations: %w", err)
	}
	return ids, nil
}

// History returns one page of the learner's submissions. Page and size
// below one fall back to the first page and the default size.
func (w *Workspace) History(ctx context.Context, page, size int) (*HistoryPage, error) {
	w.touch()
	if w.providers.History == nil {
		return nil, ErrProviderUnavailable
	}
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultHistoryPageSize
	}
	size = min(size, MaxHistoryPageSize)

	hp, err := w.providers.History.History(ctx, w.UserID, page, size)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return hp, nil
}

// View returns a copy of the workspace state.
func (w *Workspace) View() View {
	w.mu.RLock()
	v := View{
		ID:        w.ID,
		UserID:    w.UserID,
		ProblemID: w.ProblemID,
		Problem:   w.problem,
		Source:    w.source,
		Terminal:  w.terminal,
		Runs:      w.runs,
		CreatedAt: w.CreatedAt,
	}
	w.mu.RUnlock()

	v.Sandbox = w.host.State()
	if err := w.host.Err(); err != nil {
		v.SandboxError = err.Error()
	}
	v.Layout = w.layout.Snapshot()
	v.LastActive = w.LastActive()
	return v
}

// Summary returns the listing form of the workspace.
func (w *Workspace) Summary() Summary {
	w.mu.RLock()
	runs := w.runs
	w.mu.RUnlock()

	return Summary{
		ID:         w.ID,
		UserID:     w.UserID,
		ProblemID:  w.ProblemID,
		Sandbox:    w.host.State(),
		Runs:       runs,
		CreatedAt:  w.CreatedAt,
		LastActive: w.LastActive(),
	}
}

func (w *Workspace) runSamples() (int64, []float64) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.runs, append([]float64(nil), w.durations...)
}

// Close disposes the sandbox host and releases all subscribers. It is safe to
// call more than once.
func (w *Workspace) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.host.Close()
		w.closeSubscribers()
		w.logger.Info("Workspace closed")
	})
	return err
}
