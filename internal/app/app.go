package app

import (
	"danmaku/internal/config"
	"danmaku/internal/metrics"
	"danmaku/internal/repository/dandan"
	"danmaku/internal/repository/file"
	"danmaku/internal/repository/media"
	"danmaku/internal/service"

	"github.com/spf13/afero"
)

type App struct {
	DanmuService service.DanmuService
	BatchService service.BatchService
	Metrics      *metrics.Recorder
	Fs           afero.Fs
	Config       *config.Config
}

func NewApp(cfg *config.Config) (*App, error) {
	fs := afero.NewOsFs()
	fileRepo := file.NewRepository(fs)

	client := dandan.NewClient(
		cfg.Provider.BaseURL,
		cfg.Provider.UserAgent,
		cfg.Provider.ChConvert,
		cfg.Provider.Timeout,
	)
	mediaTool := media.NewTool(
		fs,
		cfg.Media.FFmpegPath,
		cfg.Media.FFprobePath,
		cfg.Media.SubtitleLanguages,
	)
	recorder := metrics.NewRecorder()

	danmuService := service.NewDanmuService(
		client,
		mediaTool,
		fileRepo,
		recorder,
		cfg,
	)
	batchService := service.NewBatchService(
		danmuService,
		fileRepo,
		cfg,
	)

	return &App{
		DanmuService: danmuService,
		BatchService: batchService,
		Metrics:      recorder,
		Fs:           fs,
		Config:       cfg,
	}, nil
}
