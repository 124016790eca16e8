package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"danmaku/pkg/subtitle"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var mergeConvert bool

var mergeCmd = &cobra.Command{
	Use:   "merge <danmu.ass> <subtitle.ass>",
	Short: "合并弹幕字幕与原生字幕",
	Long: `将弹幕字幕与原生 ASS/SSA 字幕合并，生成 <字幕名>.withDanmu.ass。
原生字幕的字号按两者的 PlayResX 比例缩放，编码自动检测。
使用 --convert 时 SRT/VTT 字幕会先按弹幕画布转换为 ASS。`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		primary, err := filepath.Abs(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "解析弹幕字幕路径失败: %v\n", err)
			os.Exit(1)
		}
		secondary, err := filepath.Abs(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "解析字幕路径失败: %v\n", err)
			os.Exit(1)
		}

		fs := afero.NewOsFs()
		var merged string
		if mergeConvert && subtitle.IsConvertible(secondary) {
			merged, err = subtitle.MergeConverted(fs, primary, secondary)
		} else {
			merged, err = subtitle.Merge(fs, primary, secondary)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "合并字幕失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(merged)
	},
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeConvert, "convert", false, "将 SRT/VTT 字幕转换为 ASS 后再合并")
	rootCmd.AddCommand(mergeCmd)
}
