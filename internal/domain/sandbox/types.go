package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	// ErrClosed is returned once the host has been torn down.
	ErrClosed = errors.New("sandbox host is closed")
	// ErrUnavailable wraps the reason the runtime could not be loaded.
	ErrUnavailable = errors.New("sandbox runtime unavailable")
)

// State is the lifecycle state of a host's runtime handle.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{StateUnloaded, StateLoading, StateReady, StateFailed} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown sandbox state %q", text)
}

// ErrorKind classifies a failed run.
type ErrorKind string

const (
	// KindExecution means the user program raised or was interrupted.
	KindExecution ErrorKind = "execution"
	// KindUnavailable means the runtime was not ready to execute.
	KindUnavailable ErrorKind = "unavailable"
)

// ErrorInfo describes why a run produced no output.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	// Loading is set when the runtime was still loading as the caller gave up.
	Loading bool `json:"loading,omitempty"`
}

// Result is the outcome of one run. When Error is set Stdout is empty.
type Result struct {
	Stdout   string        `json:"stdout"`
	Error    *ErrorInfo    `json:"error"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the run completed without error.
func (r Result) OK() bool {
	return r.Error == nil
}

// Engine is a loaded interpreter instance. Implementations are used by one
// goroutine at a time; the host serializes calls.
type Engine interface {
	// Exec runs source, writing anything the program prints to stdout.
	Exec(ctx context.Context, source string, stdout io.Writer) error
	Close() error
}

// Loader produces a ready engine. Load may block on network or disk.
type Loader interface {
	Load(ctx context.Context) (Engine, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) (Engine, error)

// Load calls f(ctx).
func (f LoaderFunc) Load(ctx context.Context) (Engine, error) {
	return f(ctx)
}

// Observer receives lifecycle notifications, typically for metrics.
type Observer interface {
	LoadFinished(duration time.Duration, err error)
	RunFinished(duration time.Duration, kind ErrorKind)
}

// Config controls host behaviour.
type Config struct {
	// ExecTimeout interrupts a run that exceeds it. Zero disables the watchdog.
	ExecTimeout time.Duration
	// LoadTimeout bounds a single load attempt. Zero means no bound.
	LoadTimeout time.Duration
}

// DefaultConfig returns the host defaults.
func DefaultConfig() Config {
	return Config{
		ExecTimeout: 5 * time.Second,
		LoadTimeout: 30 * time.Second,
	}
}
