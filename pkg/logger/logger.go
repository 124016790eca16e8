package logger

import (
	"io"
	"os"
	"time"

	"danmaku/internal/config"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Init 之前的日志直接写到 stderr，保证库代码在测试中也能安全调用
var base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

// splitLevelWriter 按级别分别写入 infoWriter 或 errWriter
type splitLevelWriter struct {
	infoWriter io.Writer
	errWriter  io.Writer
}

func (w splitLevelWriter) Write(p []byte) (n int, err error) {
	// 默认按 info 处理
	return w.infoWriter.Write(p)
}

func (w splitLevelWriter) WriteLevel(level zerolog.Level, p []byte) (n int, err error) {
	switch level {
	case zerolog.DebugLevel, zerolog.InfoLevel:
		return w.infoWriter.Write(p)
	default:
		return w.errWriter.Write(p)
	}
}

// Init 使用配置初始化全局日志（支持控制台 + 文件，带滚动）
func Init(cfg config.LoggingConfig) {
	zerolog.TimeFieldFormat = time.RFC3339

	if lvl, err := zerolog.ParseLevel(cfg.Level); err == nil && cfg.Level != "" {
		zerolog.SetGlobalLevel(lvl)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	stdoutConsole := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339, NoColor: cfg.NoColor}
	stderrConsole := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339, NoColor: cfg.NoColor}

	var outFile io.Writer
	var errFile io.Writer

	// 支持单文件（file_path）或分别的 stdout_path / stderr_path
	if cfg.FilePath != "" {
		f := newFileWriter(cfg.FilePath, cfg.Rotate)
		outFile = f
		errFile = f
	} else {
		outFile = newFileWriter(cfg.StdoutPath, cfg.Rotate)
		errFile = newFileWriter(cfg.StderrPath, cfg.Rotate)
	}

	infoWriters := []io.Writer{stdoutConsole}
	errWriters := []io.Writer{stderrConsole}
	if outFile != nil {
		infoWriters = append(infoWriters, outFile)
	}
	if errFile != nil {
		errWriters = append(errWriters, errFile)
	}

	lw := splitLevelWriter{
		infoWriter: io.MultiWriter(infoWriters...),
		errWriter:  io.MultiWriter(errWriters...),
	}

	base = zerolog.New(lw).With().Timestamp().Logger()
}

// newFileWriter 按滚动配置创建文件 writer，path 为空时返回 nil
func newFileWriter(path string, rot config.RotateConfig) io.Writer {
	if path == "" {
		return nil
	}
	maxSize := rot.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	maxBackups := rot.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 7
	}
	maxAge := rot.MaxAgeDays
	if maxAge <= 0 {
		maxAge = 30
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
		Compress:   rot.Compress,
	}
}

func SetLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

func Info() *zerolog.Event  { return base.Info() }
func Error() *zerolog.Event { return base.Error() }
func Warn() *zerolog.Event  { return base.Warn() }
func Debug() *zerolog.Event { return base.Debug() }

// With 返回带有固定字段的子 logger，用于单次任务内的日志关联
func With() zerolog.Context {
	return base.With()
}
