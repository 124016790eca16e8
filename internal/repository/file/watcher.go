package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"danmaku/pkg/logger"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle 视频文件最后一次写入后等待的时间，之后才认为传输完成
const DefaultSettle = 10 * time.Second

// Watcher 监控目录中新增的视频文件
type Watcher struct {
	watcher *fsnotify.Watcher
	settle  time.Duration
}

// NewWatcher 递归监控 roots 下的所有目录
func NewWatcher(roots []string, settle time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控失败: %w", err)
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	w := &Watcher{watcher: fw, settle: settle}
	for _, root := range roots {
		if _, err := w.addTree(root); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// addTree 监控 root 及其子目录，返回其中已存在的视频文件
func (w *Watcher) addTree(root string) ([]string, error) {
	var videos []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("监控目录 %s 失败: %w", path, err)
			}
			return nil
		}
		if IsVideo(path) {
			videos = append(videos, path)
		}
		return nil
	})
	return videos, err
}

// Run 阻塞直到 ctx 结束；视频文件写入稳定后调用 handle
func (w *Watcher) Run(ctx context.Context, handle func(path string)) error {
	defer w.watcher.Close()

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if isDir, err := statDir(event.Name); err == nil && isDir {
					// 整个目录移入时其中的视频不会再产生事件
					videos, err := w.addTree(event.Name)
					if err != nil {
						logger.Warn().Err(err).Str("dir", event.Name).Msg("监控新目录失败")
					}
					for _, v := range videos {
						pending[v] = time.Now()
					}
					continue
				}
			}
			if (event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) && IsVideo(event.Name) {
				pending[event.Name] = time.Now()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("文件监控出错")

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(pending, path)
				logger.Info().Str("video", path).Msg("检测到新文件，开始生成弹幕")
				handle(path)
			}
		}
	}
}

func statDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
