package workspace

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/layout"
	"github.com/GriffinCanCode/CodeShin/backend/internal/domain/sandbox"
)

var (
	ErrWorkspaceNotFound   = errors.New("workspace not found")
	ErrWorkspaceClosed     = errors.New("workspace closed")
	ErrManagerClosed       = errors.New("workspace manager closed")
	ErrProblemNotFound     = errors.New("problem not found")
	ErrProviderUnavailable = errors.New("practice backend not configured")
	ErrEmptyMessage        = errors.New("message is empty")
	ErrPageOutOfRange      = errors.New("history page out of range")
)

// History paging defaults.
const (
	DefaultHistoryPageSize = 10
	MaxHistoryPageSize     = 1000
)

// Terminal text shown when the runtime could not be used.
const (
	MsgUnavailable = "Execution environment unavailable."
	MsgLoading     = "Execution environment is loading, please wait..."
)

// Problem is a practice problem as shown in the description pane.
type Problem struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Summary        string   `json:"summary"`
	Examples       []string `json:"examples,omitempty"`
	Difficulty     string   `json:"difficulty"`
	IsPremium      bool     `json:"is_premium"`
	AcceptanceRate float64  `json:"acceptance_rate,omitempty"`
	URL            string   `json:"url,omitempty"`
	RelatedTopics  []string `json:"related_topics"`
}

// Submission is the backend's answer to a submit.
type Submission struct {
	Version int    `json:"version"`
	Message string `json:"message"`
}

// Draft is a learner's saved progress.
type Draft struct {
	ProblemID     string `json:"problem_id"`
	AutosaveCode  string `json:"autosave_code"`
	SubmittedCode string `json:"submitted_code"`
}

// Code returns the autosaved code, falling back to the last submission.
func (d *Draft) Code() string {
	if d.AutosaveCode != "" {
		return d.AutosaveCode
	}
	return d.SubmittedCode
}

// HistoryEntry is one graded submission.
type HistoryEntry struct {
	ProblemID    string    `json:"problem_id"`
	ProblemTitle string    `json:"problem_title"`
	Version      int       `json:"version"`
	Passed       bool      `json:"passed"`
	Status       string    `json:"status"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// HistoryPage is one page of a learner's submissions.
type HistoryPage struct {
	Entries      []HistoryEntry `json:"entries"`
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
	TotalPages   int            `json:"total_pages"`
	TotalRecords int            `json:"total_records"`
}

// ProblemProvider fetches problem records.
type ProblemProvider interface {
	Problem(ctx context.Context, id string) (*Problem, error)
}

// ProgressProvider persists learner code.
type ProgressProvider interface {
	Autosave(ctx context.Context, userID, problemID, source string) error
	Submit(ctx context.Context, userID, problemID, source string) (*Submission, error)
	Draft(ctx context.Context, userID string) (*Draft, error)
}

// AssistantProvider relays a question to the AI tutor.
type AssistantProvider interface {
	Ask(ctx context.Context, userID, problemID, message, source string) (string, error)
}

// RecommendationProvider returns problem IDs suggested for the learner.
type RecommendationProvider interface {
	Recommend(ctx context.Context, userID, problemID string) ([]string, error)
}

// HistoryProvider pages through a learner's past submissions.
type HistoryProvider interface {
	History(ctx context.Context, userID string, page, size int) (*HistoryPage, error)
}

// Providers groups the practice backend contracts. Any of them may be nil.
type Providers struct {
	Problems        ProblemProvider
	Progress        ProgressProvider
	Assistant       AssistantProvider
	Recommendations RecommendationProvider
	History         HistoryProvider
}

// RunOutcome is what a run produced and what the terminal now shows.
type RunOutcome struct {
	Stdout     string             `json:"stdout"`
	Error      *sandbox.ErrorInfo `json:"error,omitempty"`
	Terminal   string             `json:"terminal"`
	DurationMs float64            `json:"duration_ms"`
}

// OK reports whether the run completed without error.
func (o RunOutcome) OK() bool { return o.Error == nil }

// View is a read-only copy of a workspace for rendering.
type View struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	ProblemID    string          `json:"problem_id"`
	Problem      *Problem        `json:"problem,omitempty"`
	Source       string          `json:"source"`
	Terminal     string          `json:"terminal"`
	Sandbox      sandbox.State   `json:"sandbox"`
	SandboxError string          `json:"sandbox_error,omitempty"`
	Layout       layout.Snapshot `json:"layout"`
	Runs         int64           `json:"runs"`
	CreatedAt    time.Time       `json:"created_at"`
	LastActive   time.Time       `json:"last_active"`
}

// Summary is the short form used in listings.
type Summary struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	ProblemID  string        `json:"problem_id"`
	Sandbox    sandbox.State `json:"sandbox"`
	Runs       int64         `json:"runs"`
	CreatedAt  time.Time     `json:"created_at"`
	LastActive time.Time     `json:"last_active"`
}

// Stats aggregates across open workspaces.
type Stats struct {
	ActiveWorkspaces  int            `json:"active_workspaces"`
	TotalRuns         int64          `json:"total_runs"`
	RunMeanMs         float64        `json:"run_mean_ms"`
	RunStdDevMs       float64        `json:"run_stddev_ms"`
	SandboxStates     map[string]int `json:"sandbox_states"`
	OldestIdleSeconds float64        `json:"oldest_idle_seconds"`
}

// Config controls workspace creation and eviction.
type Config struct {
	// IdleTimeout closes workspaces with no activity for this long. Zero
	// disables eviction.
	IdleTimeout time.Duration
	// Preload starts the sandbox load as soon as a workspace opens.
	Preload bool
	// EventBuffer is the per-subscriber channel capacity.
	EventBuffer int
	// RunSamples bounds the run durations kept per workspace for Stats.
	RunSamples int

	Sandbox sandbox.Config
	Layout  layout.Config
}

// DefaultConfig returns the standard workspace settings.
func DefaultConfig() Config {
	return Config{
		IdleTimeout: 30 * time.Minute,
		Preload:     false,
		EventBuffer: 32,
		RunSamples:  128,
		Sandbox:     sandbox.DefaultConfig(),
		Layout:      layout.DefaultConfig(),
	}
}
