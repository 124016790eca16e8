package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"danmaku/internal/config"
	"danmaku/internal/repository/dandan"
	"danmaku/internal/service"
	"danmaku/pkg/danmaku"
	"danmaku/pkg/logger"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var emitBudget int

var emitCmd = &cobra.Command{
	Use:   "emit <comments.json> <output.ass>",
	Short: "从本地弹幕 JSON 生成 ASS 弹幕字幕",
	Long: `读取弹幕接口格式的 JSON 文件（{"count":N,"comments":[{"cid":..,"p":"..","m":".."}]}），
过滤后生成 ASS 弹幕字幕，不访问网络。`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Get()
		if cfg == nil {
			fmt.Fprintf(os.Stderr, "配置未加载\n")
			os.Exit(1)
		}

		fs := afero.NewOsFs()
		data, err := afero.ReadFile(fs, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "读取弹幕文件失败: %v\n", err)
			os.Exit(1)
		}
		var resp dandan.CommentsResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			fmt.Fprintf(os.Stderr, "解析弹幕文件失败: %v\n", err)
			os.Exit(1)
		}

		comments, malformed := danmaku.ParseComments(resp.Comments)
		if malformed > 0 {
			logger.Warn().Int("malformed", malformed).Msg("跳过格式不正确的弹幕")
		}
		if cfg.Danmu.OnlyFromBili {
			comments = danmaku.OnlyFromPlatform(comments, danmaku.BiliBiliTag)
		}

		budget := cfg.Danmu.MaxComments
		if cmd.Flags().Changed("budget") {
			budget = emitBudget
		}
		filtered := danmaku.Filter(comments, budget)

		stats, err := danmaku.WriteFile(fs, args[1], filtered, service.OptionsFromConfig(cfg.Danmu))
		if err != nil {
			fmt.Fprintf(os.Stderr, "生成弹幕字幕失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("输入 %d 条，输出 %d 条，底部 %d 条，超出区域 %d 条\n",
			len(resp.Comments), stats.Emitted, stats.Bottom, stats.Dropped)
	},
}

func init() {
	emitCmd.Flags().IntVar(&emitBudget, "budget", 0, "弹幕数量上限（默认使用 danmu.max_comments，0 表示不限制）")
	rootCmd.AddCommand(emitCmd)
}
