package media

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"danmaku/pkg/logger"

	"github.com/spf13/afero"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"gopkg.in/vansante/go-ffprobe.v2"
)

// ErrNoSubtitleStream 视频中没有可提取的内嵌字幕
var ErrNoSubtitleStream = errors.New("没有可提取的内嵌字幕")

// Tool 视频探测与内嵌字幕提取
type Tool interface {
	Duration(ctx context.Context, videoPath string) (float64, error)
	ExtractSubtitle(ctx context.Context, videoPath string) (string, error)
}

// SubtitleStream 内嵌字幕流
type SubtitleStream struct {
	Index    int
	Codec    string
	Language string
}

type tool struct {
	fs        afero.Fs
	ffmpeg    string
	languages map[string]struct{}
}

// NewTool 创建基于 ffprobe/ffmpeg 的实现，languages 为允许提取的字幕语言标签
func NewTool(fs afero.Fs, ffmpegPath, ffprobePath string, languages []string) Tool {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath != "" {
		ffprobe.SetFFProbeBinPath(ffprobePath)
	}
	langs := make(map[string]struct{}, len(languages))
	for _, l := range languages {
		langs[strings.ToLower(l)] = struct{}{}
	}
	return &tool{fs: fs, ffmpeg: ffmpegPath, languages: langs}
}

// Duration 返回视频时长（秒）
func (t *tool) Duration(ctx context.Context, videoPath string) (float64, error) {
	data, err := ffprobe.ProbeURL(ctx, videoPath)
	if err != nil {
		return 0, fmt.Errorf("获取视频时长失败: %w", err)
	}
	if data.Format == nil {
		return 0, fmt.Errorf("获取视频时长失败: ffprobe 未返回 format")
	}
	return data.Format.DurationSeconds, nil
}

// SubtitleStreams 列出视频中的字幕流
func (t *tool) SubtitleStreams(ctx context.Context, videoPath string) ([]SubtitleStream, error) {
	data, err := ffprobe.ProbeURL(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("获取视频流信息失败: %w", err)
	}
	var streams []SubtitleStream
	for _, s := range data.Streams {
		if s == nil || s.CodecType != "subtitle" {
			continue
		}
		lang := s.Tags.Language
		if lang == "" {
			lang = "unknown"
		}
		streams = append(streams, SubtitleStream{Index: s.Index, Codec: s.CodecName, Language: lang})
	}
	return streams, nil
}

// ExtractSubtitle 将第一条语言匹配的内嵌字幕提取为 <stem>.<lang>.ass，返回输出路径
func (t *tool) ExtractSubtitle(ctx context.Context, videoPath string) (string, error) {
	streams, err := t.SubtitleStreams(ctx, videoPath)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(videoPath, filepath.Ext(videoPath))
	for _, s := range SelectStreams(streams, t.languages) {
		output := fmt.Sprintf("%s.%s.ass", base, s.Language)
		if exists, _ := afero.Exists(t.fs, output); exists {
			if err := t.fs.Remove(output); err != nil {
				return "", fmt.Errorf("删除旧字幕失败: %w", err)
			}
		}

		if err := t.extract(ctx, videoPath, s.Index, output); err != nil {
			logger.Warn().Err(err).Int("stream", s.Index).Str("video", videoPath).Msg("提取字幕失败")
			continue
		}
		logger.Info().Str("path", output).Msg("成功提取内嵌字幕")
		return output, nil
	}
	return "", ErrNoSubtitleStream
}

func (t *tool) extract(ctx context.Context, videoPath string, streamIndex int, output string) error {
	args := ffmpeg.Input(videoPath).
		Output(output, ffmpeg.KwArgs{
			"map": fmt.Sprintf("0:%d", streamIndex),
			"c:s": "ass",
		}).
		OverWriteOutput().
		GetArgs()

	cmd := exec.CommandContext(ctx, t.ffmpeg, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg 提取字幕: %w\n%s", err, shorten(string(out)))
	}
	return nil
}

// SelectStreams 按原顺序返回语言在 languages 中的字幕流，languages 为空时全部返回
func SelectStreams(streams []SubtitleStream, languages map[string]struct{}) []SubtitleStream {
	if len(languages) == 0 {
		return streams
	}
	var out []SubtitleStream
	for _, s := range streams {
		if _, ok := languages[strings.ToLower(s.Language)]; ok {
			out = append(out, s)
		}
	}
	return out
}

// shorten 只保留 ffmpeg 输出的最后几行
func shorten(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "\n")
}
