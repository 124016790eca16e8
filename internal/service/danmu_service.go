package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"danmaku/internal/config"
	"danmaku/internal/metrics"
	"danmaku/internal/repository/dandan"
	"danmaku/internal/repository/file"
	"danmaku/internal/repository/media"
	"danmaku/pkg/danmaku"
	"danmaku/pkg/logger"
	"danmaku/pkg/subtitle"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Outcome 一次弹幕生成的终止状态
type Outcome string

const (
	OutcomeNoMatch Outcome = "no_match"
	OutcomeEmpty   Outcome = "empty"
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// idFileEpisodeBase <N>.id 文件中的 N 与集数组合成弹幕 ID 的基数
const idFileEpisodeBase = 10000

// Request 单个视频的生成请求
type Request struct {
	VideoPath string
	Episode   int // 0 表示未知，扫描时从文件名推断
	TmdbID    int
}

// Result 生成结果，Outcome 为 OutcomeFailure 时 Reason 说明原因
type Result struct {
	RunID      string
	VideoPath  string
	Outcome    Outcome
	Reason     string
	DanmuPath  string
	MergedPath string
	Stats      danmaku.Stats
}

type DanmuService interface {
	// Generate 为视频生成弹幕字幕并尝试与原生字幕合并。
	// 不会返回 error 或 panic，所有错误都体现在 Result 中。
	Generate(ctx context.Context, req Request) Result
}

type danmuService struct {
	provider dandan.Provider
	media    media.Tool
	files    file.Repository
	recorder *metrics.Recorder
	cfg      *config.Config
}

// NewDanmuService 创建并返回一个新的 DanmuService 实例
func NewDanmuService(
	provider dandan.Provider,
	mediaTool media.Tool,
	files file.Repository,
	recorder *metrics.Recorder,
	cfg *config.Config,
) DanmuService {
	return &danmuService{
		provider: provider,
		media:    mediaTool,
		files:    files,
		recorder: recorder,
		cfg:      cfg,
	}
}

// OptionsFromConfig 将配置转换为 ASS 生成参数
func OptionsFromConfig(d config.DanmuConfig) danmaku.Options {
	return danmaku.Options{
		Width:           d.Width,
		Height:          d.Height,
		FontFace:        d.FontFace,
		FontSize:        d.FontSize,
		Alpha:           d.Alpha,
		Duration:        d.Duration,
		ExclusionHeight: d.ExclusionHeight,
	}
}

func (s *danmuService) Generate(ctx context.Context, req Request) (result Result) {
	result = Result{RunID: uuid.NewString(), VideoPath: req.VideoPath}
	log := logger.With().Str("run", result.RunID).Str("video", req.VideoPath).Logger()

	defer func() {
		if r := recover(); r != nil {
			result.Outcome = OutcomeFailure
			result.Reason = fmt.Sprintf("panic: %v", r)
			log.Error().Str("reason", result.Reason).Msg("生成弹幕失败")
		}
		s.recorder.IncRun(string(result.Outcome))
	}()

	if req.Episode == 0 {
		req.Episode = ParseEpisode(filepath.Base(req.VideoPath))
	}

	commentID, err := s.resolveCommentID(ctx, req, log)
	if err != nil {
		return s.stop(result, err, log)
	}

	raws, err := s.provider.GetComments(ctx, commentID)
	if err != nil {
		return s.stop(result, err, log)
	}
	s.recorder.AddComments(metrics.StageFetched, len(raws))
	if len(raws) == 0 {
		log.Info().Msg("弹幕数量为0，跳过生成")
		result.Outcome = OutcomeEmpty
		return result
	}

	comments, malformed := danmaku.ParseComments(raws)
	s.recorder.AddComments(metrics.StageMalformed, malformed)
	if malformed > 0 {
		log.Warn().Int("malformed", malformed).Msg("跳过格式不正确的弹幕")
	}
	if len(comments) == 0 {
		log.Info().Msg("没有有效弹幕，跳过生成")
		result.Outcome = OutcomeEmpty
		return result
	}

	if s.cfg.Danmu.OnlyFromBili {
		comments = danmaku.OnlyFromPlatform(comments, danmaku.BiliBiliTag)
		log.Info().Int("count", len(comments)).Msg("过滤后剩余B站弹幕")
	}

	filtered := danmaku.Filter(comments, s.cfg.Danmu.MaxComments)
	s.recorder.AddComments(metrics.StageFiltered, len(filtered))
	log.Info().Int("count", len(filtered)).Int("fetched", len(raws)).Msg("弹幕过滤完成")

	danmuPath := file.DanmuPath(req.VideoPath)
	stats, err := danmaku.WriteFile(s.files.Fs(), danmuPath, filtered, OptionsFromConfig(s.cfg.Danmu))
	if err != nil {
		return s.stop(result, fmt.Errorf("%s: %w", danmuPath, err), log)
	}
	result.DanmuPath = danmuPath
	result.Stats = stats
	result.Stats.Malformed += malformed
	s.recordStats(stats)

	if s.cfg.Danmu.Merge {
		result.MergedPath = s.mergeCompanion(ctx, req.VideoPath, danmuPath, log)
	}

	result.Outcome = OutcomeSuccess
	return result
}

// resolveCommentID 依次尝试 .id 文件、文件匹配、TMDB 搜索
func (s *danmuService) resolveCommentID(ctx context.Context, req Request, log zerolog.Logger) (string, error) {
	if base, ok := s.files.FindIDFile(filepath.Dir(req.VideoPath)); ok {
		if req.Episode > 0 {
			id := base*idFileEpisodeBase + int64(req.Episode)
			log.Info().Int64("comment_id", id).Msg("使用弹幕ID文件")
			return strconv.FormatInt(id, 10), nil
		}
		log.Warn().Msg("找到弹幕ID文件但无法确定集数，改用文件匹配")
	}

	hash, size, err := s.files.HashHead(req.VideoPath)
	if err != nil {
		if !s.files.Exists(req.VideoPath) {
			return "", err
		}
		// 文件存在但无法读取时只按文件名匹配
		log.Warn().Err(err).Msg("计算文件哈希失败，仅使用文件名匹配")
		hash, size = "", 0
	}
	duration, err := s.media.Duration(ctx, req.VideoPath)
	if err != nil {
		log.Warn().Err(err).Msg("获取视频时长失败")
	}

	id, err := s.provider.Match(ctx, dandan.VideoInfo{
		FileName:      filepath.Base(req.VideoPath),
		FileHash:      hash,
		FileSize:      size,
		VideoDuration: int(duration),
		MatchMode:     dandan.MatchModeHashAndFileName,
	})
	if err == nil {
		return id, nil
	}
	if s.cfg.Danmu.UseTmdbID && req.TmdbID > 0 {
		log.Debug().Err(err).Int("tmdb_id", req.TmdbID).Msg("文件匹配失败，尝试使用TMDB ID")
		return s.provider.SearchByTmdbID(ctx, req.TmdbID, req.Episode)
	}
	return "", err
}

// mergeCompanion 查找（必要时提取）原生字幕并合并，失败时只记录日志
func (s *danmuService) mergeCompanion(ctx context.Context, videoPath, danmuPath string, log zerolog.Logger) string {
	companion, ok := s.files.FindCompanionSubtitle(videoPath)
	if !ok && s.cfg.Danmu.ExtractEmbedded {
		if _, err := s.media.ExtractSubtitle(ctx, videoPath); err != nil {
			log.Debug().Err(err).Msg("提取内嵌字幕失败")
		}
		companion, ok = s.files.FindCompanionSubtitle(videoPath)
	}
	if !ok {
		log.Debug().Msg("未找到原生字幕，跳过合并")
		return ""
	}

	log.Info().Str("subtitle", companion).Msg("找到字幕文件")
	var merged string
	var err error
	if s.cfg.Danmu.ConvertText && subtitle.IsConvertible(companion) {
		merged, err = subtitle.MergeConverted(s.files.Fs(), danmuPath, companion)
	} else {
		merged, err = subtitle.Merge(s.files.Fs(), danmuPath, companion)
	}
	s.recorder.IncMerge(err == nil)
	if err != nil {
		log.Warn().Err(err).Msg("合并字幕失败，保留弹幕字幕")
		return ""
	}
	log.Info().Str("path", merged).Msg("合并字幕成功")
	return merged
}

// stop 将错误转换为终止状态：弹幕源问题视为未匹配，其余为失败
func (s *danmuService) stop(result Result, err error, log zerolog.Logger) Result {
	result.Reason = err.Error()
	if errors.Is(err, dandan.ErrNoMatch) || errors.Is(err, dandan.ErrSourceUnavailable) {
		result.Outcome = OutcomeNoMatch
		log.Info().Err(err).Msg("未找到对应弹幕")
		return result
	}
	result.Outcome = OutcomeFailure
	log.Error().Err(err).Msg("生成弹幕失败")
	return result
}

func (s *danmuService) recordStats(stats danmaku.Stats) {
	s.recorder.AddComments(metrics.StageEmitted, stats.Emitted)
	s.recorder.AddComments(metrics.StageBottom, stats.Bottom)
	s.recorder.AddComments(metrics.StageDropped, stats.Dropped)
	s.recorder.AddComments(metrics.StageMalformed, stats.Malformed)
}
