package service

import (
	"context"
	"errors"
	"fmt"

	"danmaku/internal/config"
	"danmaku/internal/repository/file"
	"danmaku/pkg/logger"

	"github.com/sourcegraph/conc/pool"
)

// Summary 批量任务的汇总
type Summary struct {
	Total   int
	Results []Result
	Counts  map[Outcome]int
}

func newSummary(results []Result) Summary {
	s := Summary{Total: len(results), Results: results, Counts: make(map[Outcome]int)}
	for _, r := range results {
		s.Counts[r.Outcome]++
	}
	return s
}

type BatchService interface {
	// Scan 遍历 roots 下的所有视频并发生成弹幕，并发数受 max_workers 限制
	Scan(ctx context.Context, roots []string) (Summary, error)
	// Watch 监控 roots 下新增的视频并生成弹幕，直到 ctx 结束
	Watch(ctx context.Context, roots []string) (Summary, error)
}

type batchService struct {
	danmu DanmuService
	files file.Repository
	cfg   *config.Config
}

// NewBatchService 创建并返回一个新的 BatchService 实例
func NewBatchService(danmu DanmuService, files file.Repository, cfg *config.Config) BatchService {
	return &batchService{
		danmu: danmu,
		files: files,
		cfg:   cfg,
	}
}

func (s *batchService) newPool() *pool.ResultPool[Result] {
	// 池满时 Go 会阻塞，调用方因此获得背压
	return pool.NewWithResults[Result]().WithMaxGoroutines(s.cfg.Danmu.MaxWorkers)
}

func (s *batchService) Scan(ctx context.Context, roots []string) (Summary, error) {
	if len(roots) == 0 {
		return Summary{}, fmt.Errorf("没有设定路径")
	}

	logger.Info().Strs("roots", roots).Msg("开始弹幕刮削")
	p := s.newPool()
	var walkErrs []error
	for _, root := range roots {
		videos, err := s.files.FindVideoFiles(root)
		if err != nil {
			// 单个路径不可用时跳过，继续处理其余路径
			logger.Warn().Err(err).Str("path", root).Msg("路径不存在或无法遍历，跳过")
			walkErrs = append(walkErrs, fmt.Errorf("%s: %w", root, err))
			continue
		}
		for _, video := range videos {
			video := video
			p.Go(func() Result {
				return s.danmu.Generate(ctx, Request{VideoPath: video})
			})
		}
	}

	summary := newSummary(p.Wait())
	s.logSummary(summary)
	if len(walkErrs) == len(roots) {
		return summary, errors.Join(walkErrs...)
	}
	return summary, nil
}

func (s *batchService) Watch(ctx context.Context, roots []string) (Summary, error) {
	if len(roots) == 0 {
		return Summary{}, fmt.Errorf("没有设定路径")
	}

	w, err := file.NewWatcher(roots, file.DefaultSettle)
	if err != nil {
		return Summary{}, err
	}

	logger.Info().Strs("roots", roots).Msg("开始监控新增视频")
	p := s.newPool()
	runErr := w.Run(ctx, func(video string) {
		// 使用独立 context，避免退出监控时中断正在进行的任务
		p.Go(func() Result {
			return s.danmu.Generate(context.WithoutCancel(ctx), Request{VideoPath: video})
		})
	})

	summary := newSummary(p.Wait())
	s.logSummary(summary)
	return summary, runErr
}

func (s *batchService) logSummary(summary Summary) {
	logger.Info().
		Int("total", summary.Total).
		Int("success", summary.Counts[OutcomeSuccess]).
		Int("no_match", summary.Counts[OutcomeNoMatch]).
		Int("empty", summary.Counts[OutcomeEmpty]).
		Int("failure", summary.Counts[OutcomeFailure]).
		Msg("弹幕刮削完成")
}
