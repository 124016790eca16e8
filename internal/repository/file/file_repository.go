package file

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"danmaku/pkg/logger"
	"danmaku/pkg/subtitle"

	"github.com/spf13/afero"
)

// DanmuSuffix 仅含弹幕的字幕文件后缀
const DanmuSuffix = ".danmu.ass"

// hashHeadSize 计算文件哈希时读取的字节数（前 16MB）
const hashHeadSize = 16 * 1024 * 1024

var (
	videoExts    = []string{".mp4", ".mkv"}
	subtitleExts = []string{".srt", ".vtt", ".ass", ".ssa"}
)

type Repository interface {
	// FindVideoFiles 递归查找 root 下的视频文件，root 本身是视频时直接返回
	FindVideoFiles(root string) ([]string, error)
	// FindCompanionSubtitle 在视频所在目录查找同名外挂字幕（排除弹幕生成的文件）
	FindCompanionSubtitle(videoPath string) (string, bool)
	// FindIDFile 查找视频目录下的 <N>.id 文件，返回 N
	FindIDFile(dir string) (int64, bool)
	// HashHead 返回文件前 16MB 的 MD5 与文件大小
	HashHead(path string) (string, int64, error)
	Exists(path string) bool
	Fs() afero.Fs
}

type repository struct {
	fs afero.Fs
}

func NewRepository(fs afero.Fs) Repository {
	return &repository{fs: fs}
}

func (r *repository) Fs() afero.Fs {
	return r.fs
}

func (r *repository) Exists(path string) bool {
	ok, err := afero.Exists(r.fs, path)
	return err == nil && ok
}

// IsVideo 判断是否为支持的视频文件
func IsVideo(path string) bool {
	return hasExt(path, videoExts)
}

// DanmuPath 返回视频对应的弹幕字幕路径：<stem>.danmu.ass
func DanmuPath(videoPath string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + DanmuSuffix
}

func (r *repository) FindVideoFiles(root string) ([]string, error) {
	info, err := r.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("路径不存在: %w", err)
	}
	if !info.IsDir() {
		if IsVideo(root) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var videos []string
	err = afero.Walk(r.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && IsVideo(path) {
			videos = append(videos, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("遍历目录失败: %w", err)
	}
	return videos, nil
}

func (r *repository) FindCompanionSubtitle(videoPath string) (string, bool) {
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))

	var candidates []string
	err := afero.Walk(r.fs, filepath.Dir(videoPath), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// 无法读取的目录跳过，其余目录照常查找
			logger.Debug().Err(err).Str("path", path).Msg("读取字幕目录失败")
			return nil
		}
		if info.IsDir() {
			return nil
		}
		name := info.Name()
		if !hasExt(name, subtitleExts) || !strings.HasPrefix(name, stem) {
			return nil
		}
		// 弹幕字幕与合并结果都不能作为原生字幕
		if strings.Contains(strings.ToLower(name), "danmu") {
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		logger.Debug().Err(err).Str("video", videoPath).Msg("查找字幕文件失败")
	}
	if len(candidates) == 0 {
		return "", false
	}

	// 优先返回可合并的 ASS/SSA
	sort.SliceStable(candidates, func(i, j int) bool {
		return subtitle.IsMergeable(candidates[i]) && !subtitle.IsMergeable(candidates[j])
	})
	return candidates[0], true
}

func (r *repository) FindIDFile(dir string) (int64, bool) {
	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return 0, false
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".id" {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(entry.Name(), ".id"), 10, 64)
		if err != nil {
			continue
		}
		return id, true
	}
	return 0, false
}

func (r *repository) HashHead(path string) (string, int64, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("打开视频文件失败: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("获取文件大小失败: %w", err)
	}

	h := md5.New()
	if _, err := io.Copy(h, io.LimitReader(f, hashHeadSize)); err != nil {
		return "", 0, fmt.Errorf("计算MD5失败: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), info.Size(), nil
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
