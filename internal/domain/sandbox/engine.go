package sandbox

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

//go:embed prelude.js
var builtinPrelude string

// FetchFunc retrieves a remote script body.
type FetchFunc func(ctx context.Context, url string) (string, error)

// EngineConfig configures the goja engine.
type EngineConfig struct {
	MaxCallStackSize int    // Maximum JS call depth
	PreludeURL       string // Remote prelude; empty uses the embedded one
	DisablePrelude   bool

	// LibraryDir holds extra scripts run after the prelude, in path order.
	LibraryDir     string
	LibraryPattern string // doublestar pattern relative to LibraryDir
}

// DefaultEngineConfig returns the engine defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxCallStackSize: 1024,
		LibraryPattern:   "**/*.js",
	}
}

// GojaLoader builds goja-backed engines.
type GojaLoader struct {
	config EngineConfig
	fetch  FetchFunc
}

// NewGojaLoader creates a loader. fetch is only needed when PreludeURL is set.
func NewGojaLoader(config EngineConfig, fetch FetchFunc) *GojaLoader {
	return &GojaLoader{config: config, fetch: fetch}
}

// Load fetches and compiles the prelude, then prepares a fresh VM.
func (l *GojaLoader) Load(ctx context.Context) (Engine, error) {
	name, src, err := l.prelude(ctx)
	if err != nil {
		return nil, err
	}

	var programs []script
	if src != "" {
		program, err := goja.Compile(name, src, false)
		if err != nil {
			return nil, fmt.Errorf("failed to compile prelude: %w", err)
		}
		programs = append(programs, script{name: name, program: program})
	}

	library, err := loadLibrary(ctx, l.config.LibraryDir, l.config.LibraryPattern)
	if err != nil {
		return nil, err
	}
	programs = append(programs, library...)

	vm := goja.New()
	if l.config.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(l.config.MaxCallStackSize)
	}

	e := &gojaEngine{vm: vm, sink: io.Discard}
	if err := e.setupGlobals(); err != nil {
		return nil, fmt.Errorf("failed to set up globals: %w", err)
	}

	for _, sc := range programs {
		if _, err := vm.RunProgram(sc.program); err != nil {
			return nil, fmt.Errorf("failed to run %s: %w", sc.name, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e, nil
}

func (l *GojaLoader) prelude(ctx context.Context) (string, string, error) {
	switch {
	case l.config.DisablePrelude:
		return "", "", nil
	case l.config.PreludeURL == "":
		return "prelude.js", builtinPrelude, nil
	case l.fetch == nil:
		return "", "", errors.New("prelude URL configured without a fetcher")
	}

	src, err := l.fetch(ctx, l.config.PreludeURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch prelude: %w", err)
	}
	return l.config.PreludeURL, src, nil
}

// gojaEngine wraps one goja VM.
type gojaEngine struct {
	vm *goja.Runtime

	// sink is only touched from the goroutine running Exec.
	sink io.Writer

	mu     sync.Mutex
	closed bool
}

func (e *gojaEngine) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := e.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	if err := e.vm.Set("print", e.write); err != nil {
		return err
	}

	console := e.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error"} {
		if err := console.Set(level, e.write); err != nil {
			return err
		}
	}
	if err := e.vm.Set("console", console); err != nil {
		return err
	}

	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"setTimeout", "setInterval", "clearTimeout", "clearInterval"} {
		if err := e.vm.Set(name, noop); err != nil {
			return err
		}
	}
	return nil
}

// write implements print: arguments joined by a space, newline terminated.
func (e *gojaEngine) write(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		parts[i] = arg.String()
	}
	_, _ = io.WriteString(e.sink, strings.Join(parts, " ")+"\n")
	return goja.Undefined()
}

// Exec runs source with stdout as the print sink. The sink is detached and
// any pending interrupt cleared before returning, so the VM stays reusable.
func (e *gojaEngine) Exec(ctx context.Context, source string, stdout io.Writer) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.mu.Unlock()

	e.sink = stdout
	defer func() { e.sink = io.Discard }()

	stop := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		select {
		case <-ctx.Done():
			e.vm.Interrupt(interruptReason(ctx.Err()))
		case <-stop:
		}
	}()

	_, err := e.vm.RunString(source)

	close(stop)
	<-finished
	e.vm.ClearInterrupt()

	return err
}

func interruptReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "execution timeout exceeded"
	}
	return "execution cancelled"
}

// Close interrupts any running program and marks the engine unusable.
func (e *gojaEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.vm.Interrupt("sandbox closed")
	return nil
}
