package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prisma/engine/core"
)

type shaderChangeListener struct {
	paths chan string
}

func newShaderChangeListener(t *testing.T) *shaderChangeListener {
	t.Helper()
	l := &shaderChangeListener{paths: make(chan string, 16)}
	require.True(t, core.EventRegister(core.EVENT_CODE_SHADER_FILE_CHANGED, l, l.onEvent))
	t.Cleanup(func() { core.EventUnregister(core.EVENT_CODE_SHADER_FILE_CHANGED, l) })
	return l
}

func (l *shaderChangeListener) onEvent(code core.SystemEventCode, sender interface{}, context core.EventContext) bool {
	l.paths <- context.Data.Str
	return false
}

func (l *shaderChangeListener) wait(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case p := <-l.paths:
			if p == want {
				return
			}
		case <-deadline:
			t.Fatalf("no change event for %s", want)
		}
	}
}

func TestWatcherFiresOnShaderWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dissolve.frag")
	require.NoError(t, os.WriteFile(path, []byte("// v1\n"), 0o644))

	l := newShaderChangeListener(t)

	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(dir))

	require.NoError(t, os.WriteFile(path, []byte("// v2\n"), 0o644))
	l.wait(t, path)
}

func TestWatcherIgnoresNonShaderFiles(t *testing.T) {
	dir := t.TempDir()
	l := newShaderChangeListener(t)

	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	shader := filepath.Join(dir, "sky.glsl")
	require.NoError(t, os.WriteFile(shader, []byte("y"), 0o644))

	// The shader event arrives and nothing for the text file precedes it.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case p := <-l.paths:
			assert.Equal(t, shader, p)
			return
		case <-deadline:
			t.Fatal("no change event for shader file")
		}
	}
}

func TestWatcherRecursivePicksUpSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "materials")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	l := newShaderChangeListener(t)

	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.WatchRecursive(dir))

	path := filepath.Join(sub, "rust.frag")
	require.NoError(t, os.WriteFile(path, []byte("// rust\n"), 0o644))
	l.wait(t, path)
}

func TestWatchAfterCloseFails(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Error(t, w.Watch(t.TempDir()))
}
