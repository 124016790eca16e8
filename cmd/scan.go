package cmd

import (
	"context"
	"fmt"
	"os"

	"danmaku/internal/service"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path...]",
	Short: "批量为目录下的视频生成弹幕字幕",
	Long: `递归扫描指定路径（未指定时使用配置中的 danmu.paths）下的 .mp4/.mkv 文件，
并发生成弹幕字幕，并发数由 danmu.max_workers 控制。`,
	Run: func(cmd *cobra.Command, args []string) {
		application := mustApp()

		roots := args
		if len(roots) == 0 {
			roots = application.Config.Danmu.Paths
		}

		summary, err := application.BatchService.Scan(context.Background(), roots)
		writeMetrics(application)
		if err != nil {
			fmt.Fprintf(os.Stderr, "弹幕刮削失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("共 %d 个视频，成功 %d，未匹配 %d，无弹幕 %d，失败 %d\n",
			summary.Total,
			summary.Counts[service.OutcomeSuccess],
			summary.Counts[service.OutcomeNoMatch],
			summary.Counts[service.OutcomeEmpty],
			summary.Counts[service.OutcomeFailure],
		)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
