package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"danmaku/internal/service"

	"github.com/spf13/cobra"
)

var (
	generateEpisode int
	generateTmdbID  int
)

var generateCmd = &cobra.Command{
	Use:   "generate <video>",
	Short: "为单个视频生成弹幕字幕",
	Long: `为指定视频生成 <视频名>.danmu.ass，
如果找到原生字幕（或能从视频中提取中文字幕），再生成 <字幕名>.withDanmu.ass。`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		application := mustApp()

		videoPath, err := filepath.Abs(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "解析视频路径失败: %v\n", err)
			os.Exit(1)
		}

		result := application.DanmuService.Generate(context.Background(), service.Request{
			VideoPath: videoPath,
			Episode:   generateEpisode,
			TmdbID:    generateTmdbID,
		})
		writeMetrics(application)

		switch result.Outcome {
		case service.OutcomeSuccess:
			fmt.Println(result.DanmuPath)
			if result.MergedPath != "" {
				fmt.Println(result.MergedPath)
			}
		case service.OutcomeFailure:
			fmt.Fprintf(os.Stderr, "生成弹幕失败: %s\n", result.Reason)
			os.Exit(1)
		default:
			fmt.Fprintf(os.Stderr, "未生成弹幕: %s %s\n", result.Outcome, result.Reason)
		}
	},
}

func init() {
	generateCmd.Flags().IntVar(&generateEpisode, "episode", 0, "集数（默认从文件名推断）")
	generateCmd.Flags().IntVar(&generateTmdbID, "tmdb-id", 0, "TMDB ID，文件匹配失败时用于搜索")
	rootCmd.AddCommand(generateCmd)
}
