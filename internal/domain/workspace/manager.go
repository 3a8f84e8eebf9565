package workspace

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/layout"
	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/sandbox"
	"github.com/GriffinCanCode/CodeShin/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/CodeShin/backend/internal/shared/id"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// LoaderFactory returns the sandbox loader for a new workspace.
type LoaderFactory func() sandbox.Loader

// OpenOptions identify the session being opened.
type OpenOptions struct {
	UserID    string `json:"user_id"`
	ProblemID string `json:"problem_id"`
	// Source seeds the editor. When empty the learner's draft is used.
	Source string `json:"source"`
}

// Manager orchestrates workspace lifecycle
type Manager struct {
	workspaces sync.Map // id -> *Workspace
	active     atomic.Int64
	closed     atomic.Bool

	config    Config
	loaders   LoaderFactory
	providers Providers
	metrics   *monitoring.Metrics
	logger    *zap.Logger

	janitorOnce sync.Once
}

// NewManager creates a new workspace manager
func NewManager(config Config, loaders LoaderFactory, providers Providers, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		config:    config,
		loaders:   loaders,
		providers: providers,
		logger:    logger,
	}
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Open creates a workspace. The problem record and the learner's draft are
// fetched when the providers are configured; only a missing problem is fatal.
func (m *Manager) Open(ctx context.Context, opts OpenOptions) (*Workspace, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	opts.UserID = strings.TrimSpace(opts.UserID)
	opts.ProblemID = strings.TrimSpace(opts.ProblemID)

	source := opts.Source
	if m.providers.Progress != nil && opts.UserID != "" {
		draft, err := m.providers.Progress.Draft(ctx, opts.UserID)
		switch {
		case err != nil:
			m.logger.Warn("Could not load draft", zap.String("user_id", opts.UserID), zap.Error(err))
		case draft != nil:
			if opts.ProblemID == "" {
				opts.ProblemID = draft.ProblemID
			}
			if source == "" && draft.ProblemID == opts.ProblemID {
				source = draft.Code()
			}
		}
	}

	var problem *Problem
	if m.providers.Problems != nil && opts.ProblemID != "" {
		p, err := m.providers.Problems.Problem(ctx, opts.ProblemID)
		switch {
		case errors.Is(err, ErrProblemNotFound):
			return nil, err
		case err != nil:
			m.logger.Warn("Could not load problem", zap.String("problem_id", opts.ProblemID), zap.Error(err))
		default:
			problem = p
		}
	}

	wsID := id.NewWorkspaceID().String()
	logger := m.logger.With(zap.String("workspace_id", wsID))

	var hostOpts []sandbox.HostOption
	if m.metrics != nil {
		hostOpts = append(hostOpts, sandbox.WithObserver(m.metrics))
	}
	host := sandbox.NewHost(m.loaders(), m.config.Sandbox, logger.Named("sandbox"), hostOpts...)

	ws := newWorkspace(workspaceParams{
		id:        wsID,
		userID:    opts.UserID,
		problemID: opts.ProblemID,
		problem:   problem,
		source:    source,
		host:      host,
		layout:    layout.NewSession(m.config.Layout),
		providers: m.providers,
		metrics:   m.metrics,
		logger:    m.logger,
		config:    m.config,
	})

	m.workspaces.Store(ws.ID, ws)
	m.metrics.WorkspaceOpened(int(m.active.Add(1)))

	// Shutdown may have run between the check above and the Store.
	if m.closed.Load() {
		_ = m.remove(ws.ID, "shutdown")
		return nil, ErrManagerClosed
	}

	if m.config.Preload {
		go func() {
			_ = host.EnsureLoaded(context.Background())
		}()
	}

	logger.Info("Workspace opened",
		zap.String("user_id", ws.UserID),
		zap.String("problem_id", ws.ProblemID),
		zap.Bool("draft_restored", source != "" && opts.Source == ""))
	return ws, nil
}

// Get retrieves a workspace by ID
func (m *Manager) Get(id string) (*Workspace, error) {
	v, ok := m.workspaces.Load(id)
	if !ok {
		return nil, ErrWorkspaceNotFound
	}
	return v.(*Workspace), nil
}

// List returns summaries of all open workspaces, oldest first.
func (m *Manager) List() []Summary {
	var out []Summary
	m.workspaces.Range(func(_, v any) bool {
		out = append(out, v.(*Workspace).Summary())
		return true
	})
	slices.SortFunc(out, func(a, b Summary) int { return strings.Compare(a.ID, b.ID) })
	return out
}

// Close closes and forgets a workspace.
func (m *Manager) Close(id string) error {
	return m.remove(id, "closed")
}

func (m *Manager) remove(id, reason string) error {
	v, ok := m.workspaces.LoadAndDelete(id)
	if !ok {
		return ErrWorkspaceNotFound
	}
	ws := v.(*Workspace)
	err := ws.Close()
	m.metrics.WorkspaceClosed(reason, int(m.active.Add(-1)))
	return err
}

// Shutdown closes every workspace and rejects further opens.
func (m *Manager) Shutdown() {
	m.closed.Store(true)

	var ids []string
	m.workspaces.Range(func(k, _ any) bool {
		ids = append(ids, k.(string))
		return true
	})
	for _, id := range ids {
		if err := m.remove(id, "shutdown"); err != nil && !errors.Is(err, ErrWorkspaceNotFound) {
			m.logger.Warn("Error closing workspace", zap.String("workspace_id", id), zap.Error(err))
		}
	}
	m.logger.Info("Workspace manager stopped", zap.Int("closed", len(ids)))
}

// Stats returns manager statistics
func (m *Manager) Stats() Stats {
	stats := Stats{SandboxStates: make(map[string]int)}

	var samples []float64
	now := time.Now()
	m.workspaces.Range(func(_, v any) bool {
		ws := v.(*Workspace)
		stats.ActiveWorkspaces++
		stats.SandboxStates[ws.host.State().String()]++

		runs, durations := ws.runSamples()
		stats.TotalRuns += runs
		samples = append(samples, durations...)

		if idle := now.Sub(ws.LastActive()).Seconds(); idle > stats.OldestIdleSeconds {
			stats.OldestIdleSeconds = idle
		}
		return true
	})

	switch len(samples) {
	case 0:
	case 1:
		stats.RunMeanMs = samples[0]
	default:
		stats.RunMeanMs, stats.RunStdDevMs = stat.MeanStdDev(samples, nil)
	}
	return stats
}

// StartJanitor closes idle workspaces every interval until ctx is done. It
// does nothing when IdleTimeout is zero, and only the first call starts a
// janitor.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if m.config.IdleTimeout <= 0 || interval <= 0 {
		return
	}
	m.janitorOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					if n := m.evictIdle(now); n > 0 {
						m.logger.Info("Evicted idle workspaces", zap.Int("count", n))
					}
				}
			}
		}()
	})
}

func (m *Manager) evictIdle(now time.Time) int {
	var idle []string
	m.workspaces.Range(func(k, v any) bool {
		if now.Sub(v.(*Workspace).LastActive()) > m.config.IdleTimeout {
			idle = append(idle, k.(string))
		}
		return true
	})

	evicted := 0
	for _, id := range idle {
		if err := m.remove(id, "idle"); err == nil {
			evicted++
		}
	}
	return evicted
}
