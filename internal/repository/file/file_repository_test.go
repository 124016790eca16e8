package file

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"danmaku/internal/config"
	"danmaku/pkg/logger"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemRepo(t *testing.T, files ...string) Repository {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, f, []byte("x"), 0644))
	}
	return NewRepository(fs)
}

func TestDanmuPath(t *testing.T) {
	assert.Equal(t, "/tv/S01/ep01.danmu.ass", DanmuPath("/tv/S01/ep01.mkv"))
	assert.Equal(t, "/tv/a.b.danmu.ass", DanmuPath("/tv/a.b.mp4"))
}

func TestIsVideo(t *testing.T) {
	assert.True(t, IsVideo("/a/b.mkv"))
	assert.True(t, IsVideo("/a/b.MP4"))
	assert.False(t, IsVideo("/a/b.avi"))
	assert.False(t, IsVideo("/a/b.ass"))
}

func TestFindVideoFiles(t *testing.T) {
	repo := newMemRepo(t,
		"/tv/show/S01/ep01.mkv",
		"/tv/show/S01/ep01.ass",
		"/tv/show/S01/ep02.mp4",
		"/tv/show/S02/ep01.mkv",
		"/tv/show/poster.jpg",
	)

	videos, err := repo.FindVideoFiles("/tv")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"/tv/show/S01/ep01.mkv",
		"/tv/show/S01/ep02.mp4",
		"/tv/show/S02/ep01.mkv",
	}, videos)

	single, err := repo.FindVideoFiles("/tv/show/S01/ep02.mp4")
	require.NoError(t, err)
	assert.Equal(t, []string{"/tv/show/S01/ep02.mp4"}, single)

	none, err := repo.FindVideoFiles("/tv/show/poster.jpg")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.FindVideoFiles("/missing")
	assert.Error(t, err)
}

func TestFindCompanionSubtitle(t *testing.T) {
	tests := []struct {
		name   string
		files  []string
		want   string
		wantOK bool
	}{
		{
			name:   "prefers ass over srt",
			files:  []string{"/v/ep01.mkv", "/v/ep01.chs.srt", "/v/ep01.chs.ass"},
			want:   "/v/ep01.chs.ass",
			wantOK: true,
		},
		{
			name:   "srt when nothing else",
			files:  []string{"/v/ep01.mkv", "/v/ep01.srt"},
			want:   "/v/ep01.srt",
			wantOK: true,
		},
		{
			name:   "ignores generated files",
			files:  []string{"/v/ep01.mkv", "/v/ep01.danmu.ass", "/v/ep01.chs.withDanmu.ass"},
			wantOK: false,
		},
		{
			name:   "ignores other episodes",
			files:  []string{"/v/ep01.mkv", "/v/ep02.ass"},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo(t, tt.files...)
			got, ok := repo.FindCompanionSubtitle("/v/ep01.mkv")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// lockedDirFs 打开指定目录时返回权限错误
type lockedDirFs struct {
	afero.Fs
	locked string
}

func (f lockedDirFs) Open(name string) (afero.File, error) {
	if filepath.Clean(name) == f.locked {
		return nil, os.ErrPermission
	}
	return f.Fs.Open(name)
}

func TestFindCompanionSubtitle_UnreadableDirIsLogged(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger.Init(config.LoggingConfig{Level: "debug", FilePath: logPath, NoColor: true})
	t.Cleanup(func() { logger.Init(config.LoggingConfig{Level: "info"}) })

	mem := afero.NewMemMapFs()
	for _, f := range []string{"/v/ep01.mkv", "/v/ep01.chs.srt", "/v/locked/ep01.chs.ass"} {
		require.NoError(t, afero.WriteFile(mem, f, []byte("x"), 0644))
	}
	repo := NewRepository(lockedDirFs{Fs: mem, locked: "/v/locked"})

	got, ok := repo.FindCompanionSubtitle("/v/ep01.mkv")
	require.True(t, ok)
	assert.Equal(t, "/v/ep01.chs.srt", got)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "读取字幕目录失败")
	assert.Contains(t, string(data), "/v/locked")
}

func TestFindIDFile(t *testing.T) {
	repo := newMemRepo(t, "/v/ep01.mkv", "/v/notes.id", "/v/12345.id")
	id, ok := repo.FindIDFile("/v")
	assert.True(t, ok)
	assert.Equal(t, int64(12345), id)

	_, ok = newMemRepo(t, "/w/ep01.mkv").FindIDFile("/w")
	assert.False(t, ok)
}

func TestHashHead(t *testing.T) {
	fs := afero.NewMemMapFs()
	small := []byte("hello")
	require.NoError(t, afero.WriteFile(fs, "/v/small.mkv", small, 0644))

	big := bytes.Repeat([]byte{0xAB}, hashHeadSize+1024)
	require.NoError(t, afero.WriteFile(fs, "/v/big.mkv", big, 0644))

	repo := NewRepository(fs)

	hash, size, err := repo.HashHead("/v/small.mkv")
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", hash)
	assert.Equal(t, int64(5), size)

	hash, size, err = repo.HashHead("/v/big.mkv")
	require.NoError(t, err)
	sum := md5.Sum(big[:hashHeadSize])
	assert.Equal(t, hex.EncodeToString(sum[:]), hash)
	assert.Equal(t, int64(len(big)), size)

	_, _, err = repo.HashHead("/v/missing.mkv")
	assert.Error(t, err)
}

func TestExists(t *testing.T) {
	repo := newMemRepo(t, "/v/a.mkv")
	assert.True(t, repo.Exists("/v/a.mkv"))
	assert.False(t, repo.Exists("/v/b.mkv"))
}
