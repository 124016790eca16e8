package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path...]",
	Short: "监控目录，为新增视频生成弹幕字幕",
	Long: `监控指定路径（未指定时使用配置中的 danmu.paths），
新增的 .mp4/.mkv 文件写入完成后自动生成弹幕字幕。Ctrl+C 退出，退出前等待进行中的任务完成。`,
	Run: func(cmd *cobra.Command, args []string) {
		application := mustApp()

		roots := args
		if len(roots) == 0 {
			roots = application.Config.Danmu.Paths
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err := application.BatchService.Watch(ctx, roots)
		writeMetrics(application)
		if err != nil {
			fmt.Fprintf(os.Stderr, "监控失败: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
