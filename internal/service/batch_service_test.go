package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"danmaku/internal/repository/file"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDanmuService 记录被处理的视频，并统计同时运行的任务数
type fakeDanmuService struct {
	mu       sync.Mutex
	videos   []string
	outcomes map[string]Outcome
	delay    time.Duration

	running    int32
	maxRunning int32
}

func (f *fakeDanmuService) Generate(ctx context.Context, req Request) Result {
	n := atomic.AddInt32(&f.running, 1)
	for {
		cur := atomic.LoadInt32(&f.maxRunning)
		if n <= cur || atomic.CompareAndSwapInt32(&f.maxRunning, cur, n) {
			break
		}
	}
	time.Sleep(f.delay)
	atomic.AddInt32(&f.running, -1)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos = append(f.videos, req.VideoPath)
	outcome, ok := f.outcomes[req.VideoPath]
	if !ok {
		outcome = OutcomeSuccess
	}
	return Result{VideoPath: req.VideoPath, Outcome: outcome}
}

func newBatchFixture(t *testing.T, workers int, files ...string) (BatchService, *fakeDanmuService) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, f, []byte("video"), 0644))
	}
	cfg := testConfig(t)
	cfg.Danmu.MaxWorkers = workers

	danmu := &fakeDanmuService{outcomes: map[string]Outcome{}}
	return NewBatchService(danmu, file.NewRepository(fs), cfg), danmu
}

func TestScan_Summary(t *testing.T) {
	svc, danmu := newBatchFixture(t, 4,
		"/tv/a/ep01.mkv",
		"/tv/a/ep02.mkv",
		"/tv/a/ep02.danmu.ass",
		"/tv/b/ep01.mp4",
		"/movies/m.mkv",
	)
	danmu.outcomes["/tv/a/ep02.mkv"] = OutcomeNoMatch
	danmu.outcomes["/tv/b/ep01.mp4"] = OutcomeEmpty

	summary, err := svc.Scan(context.Background(), []string{"/tv", "/movies"})
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.Len(t, summary.Results, 4)
	assert.Equal(t, 2, summary.Counts[OutcomeSuccess])
	assert.Equal(t, 1, summary.Counts[OutcomeNoMatch])
	assert.Equal(t, 1, summary.Counts[OutcomeEmpty])
	assert.Zero(t, summary.Counts[OutcomeFailure])
	assert.ElementsMatch(t, []string{"/tv/a/ep01.mkv", "/tv/a/ep02.mkv", "/tv/b/ep01.mp4", "/movies/m.mkv"}, danmu.videos)
}

func TestScan_RespectsMaxWorkers(t *testing.T) {
	var videos []string
	for i := 0; i < 12; i++ {
		videos = append(videos, "/tv/ep"+string(rune('a'+i))+".mkv")
	}
	svc, danmu := newBatchFixture(t, 3, videos...)
	danmu.delay = 20 * time.Millisecond

	summary, err := svc.Scan(context.Background(), []string{"/tv"})
	require.NoError(t, err)
	assert.Equal(t, 12, summary.Total)
	assert.LessOrEqual(t, atomic.LoadInt32(&danmu.maxRunning), int32(3))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&danmu.maxRunning), int32(1))
}

func TestScan_SkipsMissingRoot(t *testing.T) {
	svc, danmu := newBatchFixture(t, 2, "/tv/ep01.mkv", "/tv/ep02.mkv")

	summary, err := svc.Scan(context.Background(), []string{"/tv", "/missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Counts[OutcomeSuccess])
	assert.ElementsMatch(t, []string{"/tv/ep01.mkv", "/tv/ep02.mkv"}, danmu.videos)
}

func TestScan_Errors(t *testing.T) {
	svc, danmu := newBatchFixture(t, 2, "/tv/ep01.mkv")

	_, err := svc.Scan(context.Background(), nil)
	assert.Error(t, err)

	// 所有路径都不可用时才返回错误
	summary, err := svc.Scan(context.Background(), []string{"/missing", "/gone"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/missing")
	assert.Contains(t, err.Error(), "/gone")
	assert.Zero(t, summary.Total)
	assert.Empty(t, danmu.videos)
}

func TestWatch_RequiresRoots(t *testing.T) {
	svc, _ := newBatchFixture(t, 2)
	_, err := svc.Watch(context.Background(), nil)
	assert.Error(t, err)
}
