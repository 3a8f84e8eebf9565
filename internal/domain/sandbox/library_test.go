package sandbox

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, rel, src string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
}

func TestLibraryScriptsLoadInPathOrder(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "b/second.js", "var order = order + 'b';")
	writeScript(t, dir, "a.js", "var order = 'a';")
	writeScript(t, dir, "notes.txt", "not javascript")

	cfg := DefaultEngineConfig()
	cfg.LibraryDir = dir
	engine, err := NewGojaLoader(cfg, nil).Load(context.Background())
	require.NoError(t, err)
	defer engine.Close()

	var out bytes.Buffer
	require.NoError(t, engine.Exec(context.Background(), "print(order)", &out))
	assert.Equal(t, "ab\n", out.String())
}

func TestLibraryPatternFilters(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "helpers/math.js", "function square(x) { return x * x; }")
	writeScript(t, dir, "drafts/broken.js", "function (")

	cfg := DefaultEngineConfig()
	cfg.LibraryDir = dir
	cfg.LibraryPattern = "helpers/**/*.js"
	engine, err := NewGojaLoader(cfg, nil).Load(context.Background())
	require.NoError(t, err)
	defer engine.Close()

	var out bytes.Buffer
	require.NoError(t, engine.Exec(context.Background(), "print(square(4))", &out))
	assert.Equal(t, "16\n", out.String())
}

func TestLibraryFailures(t *testing.T) {
	broken := t.TempDir()
	writeScript(t, broken, "bad.js", "function (")

	tests := []struct {
		name    string
		dir     string
		pattern string
	}{
		{name: "missing directory", dir: filepath.Join(t.TempDir(), "absent")},
		{name: "syntax error", dir: broken},
		{name: "invalid pattern", dir: broken, pattern: "[a-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadLibrary(context.Background(), tt.dir, tt.pattern)
			assert.Error(t, err)
		})
	}
}

func TestLibraryDisabled(t *testing.T) {
	scripts, err := loadLibrary(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, scripts)
}
