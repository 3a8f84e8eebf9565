package sandbox

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/dop251/goja"
)

type script struct {
	name    string
	program *goja.Program
}

// loadLibrary compiles every file under dir matching pattern. Scripts are
// returned sorted by relative path so load order does not depend on the walk.
func loadLibrary(ctx context.Context, dir, pattern string) ([]script, error) {
	if dir == "" {
		return nil, nil
	}
	if pattern == "" {
		pattern = DefaultEngineConfig().LibraryPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid library pattern %q", pattern)
	}

	var (
		mu    sync.Mutex
		paths []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if ok, _ := doublestar.Match(pattern, rel); ok {
			mu.Lock()
			paths = append(paths, rel)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan library %s: %w", dir, err)
	}
	slices.Sort(paths)

	scripts := make([]script, 0, len(paths))
	for _, rel := range paths {
		src, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("failed to read library script: %w", err)
		}
		program, err := goja.Compile(rel, string(src), false)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s: %w", rel, err)
		}
		scripts = append(scripts, script{name: rel, program: program})
	}
	return scripts, nil
}
