package ruleset

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReloader struct {
	calls atomic.Int32
}

func (c *countingReloader) Reload(string) error {
	c.calls.Add(1)
	return nil
}

func startWatcher(t *testing.T, w *Watcher) <-chan error {
	t.Helper()
	reloaded := make(chan error, 1)
	w.OnReload(func(err error) {
		select {
		case reloaded <- err:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	// fsnotify.Add happens inside Run.
	time.Sleep(50 * time.Millisecond)
	return reloaded
}

func waitReload(t *testing.T, reloaded <-chan error) error {
	t.Helper()
	select {
	case err := <-reloaded:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
		return nil
	}
}

func TestWatcher_ReloadsRegistryOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "name: a\n")

	reg := NewRegistry(nil)
	require.NoError(t, reg.Reload(dir))

	w := NewWatcher(dir, reg, 20*time.Millisecond, nil)
	reloaded := startWatcher(t, w)

	writeFile(t, dir, "b.json", `{"name":"b"}`)
	require.NoError(t, waitReload(t, reloaded))

	assert.Equal(t, []string{"a", "b"}, reg.Names())
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	target := &countingReloader{}

	w := NewWatcher(dir, target, 200*time.Millisecond, nil)
	reloaded := startWatcher(t, w)

	for i := 0; i < 5; i++ {
		writeFile(t, dir, "a.yaml", "name: a\n")
	}
	require.NoError(t, waitReload(t, reloaded))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), target.calls.Load())
}

func TestWatcher_InvalidFileKeepsRegistry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "name: a\n")

	reg := NewRegistry(nil)
	require.NoError(t, reg.Reload(dir))

	w := NewWatcher(dir, reg, 20*time.Millisecond, nil)
	reloaded := startWatcher(t, w)

	writeFile(t, dir, "b.yaml", "name: [")
	assert.Error(t, waitReload(t, reloaded))
	assert.Equal(t, []string{"a"}, reg.Names())
}

func TestWatcher_MissingDir(t *testing.T) {
	w := NewWatcher(t.TempDir()+"/nope", &countingReloader{}, 0, nil)
	assert.Error(t, w.Run(context.Background()))
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "/r/a.yaml", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "/r/a.json", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "/r/a.yml", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "/r/a.yaml", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "/r/.a.yaml.swp", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/r/.a.yaml", Op: fsnotify.Write}, false},
		{fsnotify.Event{Name: "/r/notes.txt", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, relevant(tt.event), "%s %s", tt.event.Name, tt.event.Op)
	}
}
