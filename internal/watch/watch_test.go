package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/csdlc/internal/watch"
)

func start(t *testing.T, w *watch.Watcher) (*atomic.Int32, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			runs.Add(1)
			return nil
		})
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	return &runs, cancel
}

func TestWatcher(t *testing.T) {
	t.Run("Reruns on schema changes only", func(t *testing.T) {
		dir := t.TempDir()
		runs, _ := start(t, watch.New(dir, watch.WithDebounce(20*time.Millisecond)))

		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, int32(1), runs.Load())

		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.XML"), []byte("<x/>"), 0o644))
		assert.Eventually(t, func() bool { return runs.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Recursive picks up new directories", func(t *testing.T) {
		dir := t.TempDir()
		runs, _ := start(t, watch.New(dir, watch.WithRecursive(true), watch.WithDebounce(20*time.Millisecond)))

		sub := filepath.Join(dir, "nested")
		require.NoError(t, os.Mkdir(sub, 0o755))
		time.Sleep(100 * time.Millisecond)

		require.NoError(t, os.WriteFile(filepath.Join(sub, "b.xml"), []byte("<x/>"), 0o644))
		assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("Missing directory fails", func(t *testing.T) {
		err := watch.New(filepath.Join(t.TempDir(), "absent")).Run(context.Background(), func(context.Context) error { return nil })
		assert.Error(t, err)
	})
}
