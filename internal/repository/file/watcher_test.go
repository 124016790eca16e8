package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReportsSettledVideos(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher([]string{root}, 200*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	found := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(path string) { found <- path })
	}()

	// 等待监控启动
	time.Sleep(50 * time.Millisecond)

	sub := filepath.Join(root, "S01")
	require.NoError(t, os.Mkdir(sub, 0755))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0644))
	video := filepath.Join(sub, "ep01.mkv")
	require.NoError(t, os.WriteFile(video, []byte("video"), 0644))

	select {
	case got := <-found:
		assert.Equal(t, video, got)
	case <-time.After(5 * time.Second):
		t.Fatal("video was not reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Empty(t, found)
}

func TestNewWatcher_MissingRoot(t *testing.T) {
	_, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing")}, time.Second)
	assert.Error(t, err)
}
