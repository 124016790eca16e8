package cmd

import (
	"fmt"
	"os"

	"danmaku/internal/app"
	"danmaku/internal/config"
	"danmaku/pkg/logger"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "danmaku",
	Short: "弹幕字幕生成工具",
	Long: `从弹幕源获取视频对应的弹幕，生成 ASS 弹幕字幕，
并与视频的原生字幕（外挂或内嵌提取）合并为一个字幕文件。`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "执行命令时出错: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认: ./config.yaml)")
}

func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging)
}

// mustApp 读取已加载的配置并初始化应用，失败时退出
func mustApp() *app.App {
	cfg := config.Get()
	if cfg == nil {
		fmt.Fprintf(os.Stderr, "配置未加载\n")
		os.Exit(1)
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化应用失败: %v\n", err)
		os.Exit(1)
	}
	return application
}

// writeMetrics 按配置写出指标文件，失败只记录日志
func writeMetrics(application *app.App) {
	if err := application.Metrics.WriteTextfile(application.Config.Metrics.Textfile); err != nil {
		logger.Warn().Err(err).Msg("写入指标失败")
	}
}
