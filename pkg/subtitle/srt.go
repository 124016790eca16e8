package subtitle

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/asticode/go-astisub"
	"github.com/spf13/afero"
)

// ErrNoCues SRT/VTT 中没有可用的字幕条目
var ErrNoCues = errors.New("字幕中没有可用条目")

// Cue 一条 SRT/VTT 字幕
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string // 多行以 \n 分隔
}

// astisub 未识别而保留在文本中的标签
var markupPattern = regexp.MustCompile(`<[^>]*>`)

// IsConvertible 判断字幕是否可以先转换为 ASS 再合并
func IsConvertible(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt", ".vtt":
		return true
	}
	return false
}

// ParseCues 解析已解码的 SRT 或 VTT 文本，ext 为原文件扩展名
func ParseCues(text, ext string) ([]Cue, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var subs *astisub.Subtitles
	var err error
	switch strings.ToLower(ext) {
	case ".vtt":
		subs, err = astisub.ReadFromWebVTT(strings.NewReader(text))
	case ".srt":
		subs, err = astisub.ReadFromSRT(strings.NewReader(text))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("解析字幕失败: %w", err)
	}

	var cues []Cue
	for _, item := range subs.Items {
		var lines []string
		for _, line := range item.Lines {
			var b strings.Builder
			for _, li := range line.Items {
				b.WriteString(li.Text)
			}
			if cleaned := strings.TrimSpace(markupPattern.ReplaceAllString(b.String(), "")); cleaned != "" {
				lines = append(lines, cleaned)
			}
		}
		// 只有标签没有文本的条目丢弃
		if len(lines) == 0 {
			continue
		}
		cues = append(cues, Cue{Start: item.StartAt, End: item.EndAt, Text: strings.Join(lines, "\n")})
	}

	if len(cues) == 0 {
		return nil, ErrNoCues
	}
	return cues, nil
}

// CuesToASS 生成只含一个 Default 样式的 ASS 文本，字号按画布高度的 1/18
func CuesToASS(cues []Cue, width, height int) string {
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", width)
	fmt.Fprintf(&b, "PlayResY: %d\n", height)
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Default, Arial, %d, &H00FFFFFF, &H00FFFFFF, &H00000000, &H80000000, 0, 0, 0, 0, 100, 100, 0, 0, 1, 2, 1, 2, 20, 20, 40, 1\n", height/18)
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range cues {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			formatCueTime(c.Start), formatCueTime(c.End), strings.ReplaceAll(c.Text, "\n", `\N`))
	}
	return b.String()
}

// formatCueTime 转为 ASS 时间 H:MM:SS.CC
func formatCueTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	cs := int64((d + 5*time.Millisecond) / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", cs/360000, cs/6000%60, cs/100%60, cs%100)
}

var playResYPattern = regexp.MustCompile(`PlayResY:\s*(\d+)`)

// MergeConverted 将 SRT/VTT 字幕按 primary 的画布转换为 ASS 后与 primary 合并，
// 输出路径与 Merge 相同
func MergeConverted(fs afero.Fs, primary, secondary string) (string, error) {
	if !IsConvertible(secondary) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, secondary)
	}

	primaryData, err := afero.ReadFile(fs, primary)
	if err != nil {
		return "", fmt.Errorf("读取弹幕字幕失败: %w", err)
	}
	primaryText, err := DecodeUTF8(primaryData)
	if err != nil {
		return "", fmt.Errorf("解码弹幕字幕失败: %w", err)
	}

	secondaryData, err := afero.ReadFile(fs, secondary)
	if err != nil {
		return "", fmt.Errorf("读取原生字幕失败: %w", err)
	}
	secondaryText, err := DecodeText(secondaryData)
	if err != nil {
		return "", fmt.Errorf("%s: %w", secondary, err)
	}
	cues, err := ParseCues(secondaryText, filepath.Ext(secondary))
	if err != nil {
		return "", fmt.Errorf("%s: %w", secondary, err)
	}

	width, ok := playResX(primaryText)
	if !ok {
		width = 1920
	}
	height := 1080
	if m := playResYPattern.FindStringSubmatch(primaryText); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			height = v
		}
	}

	merged, err := Combine(primaryText, CuesToASS(cues, width, height))
	if err != nil {
		return "", fmt.Errorf("%s: %w", secondary, err)
	}
	encoded, err := EncodeUTF8BOM(merged)
	if err != nil {
		return "", fmt.Errorf("编码合并字幕失败: %w", err)
	}

	output := MergedPath(secondary)
	if err := afero.WriteFile(fs, output, encoded, 0644); err != nil {
		return "", fmt.Errorf("写入合并字幕失败: %w", err)
	}
	return output, nil
}
