package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, files []string, pass PassFunc) {
	t.Helper()
	w, err := New(files, 30*time.Millisecond, pass)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, ".pipeforge.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("name: CI\n"), 0o644))

	var passes atomic.Int32
	startWatcher(t, []string{cfg}, func(context.Context) error {
		passes.Add(1)
		return nil
	})

	for i := range 5 {
		require.NoError(t, os.WriteFile(cfg, []byte{byte('a' + i), '\n'}, 0o644))
	}

	require.Eventually(t, func() bool { return passes.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), passes.Load())
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, ".pipeforge.yaml")

	var passes atomic.Int32
	startWatcher(t, []string{cfg}, func(context.Context) error {
		passes.Add(1)
		return nil
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("x\n"), 0o644))
	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, passes.Load())

	require.NoError(t, os.WriteFile(cfg, []byte("name: CI\n"), 0o644))
	require.Eventually(t, func() bool { return passes.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_PassErrorsKeepWatching(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, ".pipeforge.yaml")

	var passes atomic.Int32
	startWatcher(t, []string{cfg}, func(context.Context) error {
		passes.Add(1)
		return errors.New("broken config")
	})

	require.NoError(t, os.WriteFile(cfg, []byte("a\n"), 0o644))
	require.Eventually(t, func() bool { return passes.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(cfg, []byte("b\n"), 0o644))
	require.Eventually(t, func() bool { return passes.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "nope", "x.yaml")}, time.Millisecond, nil)
	assert.Error(t, err)
}
