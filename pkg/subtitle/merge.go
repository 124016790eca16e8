package subtitle

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

var (
	// ErrUnsupportedFormat 只有 .ass/.ssa 字幕可以与弹幕合并
	ErrUnsupportedFormat = errors.New("不支持合并的字幕格式")
	// ErrNoEvents 字幕缺少 [Events] 段
	ErrNoEvents = errors.New("字幕缺少 [Events] 段")
	// ErrNoStyleFormat 字幕缺少样式 Format 行
	ErrNoStyleFormat = errors.New("字幕缺少样式 Format 行")
)

// MergedSuffix 合并后字幕文件的后缀
const MergedSuffix = ".withDanmu.ass"

// 字号缩放时在分辨率比例之外再乘的系数，让原生字幕略小于弹幕画布的等比字号
const fontScale = 0.8

const eventsHeader = "[Events]"

var playResXPattern = regexp.MustCompile(`PlayResX:\s*(\d+)`)

// IsMergeable 判断字幕是否为可合并的 ASS/SSA
func IsMergeable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ass", ".ssa":
		return true
	}
	return false
}

// MergedPath 返回 secondary 对应的合并输出路径：<stem>.withDanmu.ass
func MergedPath(secondary string) string {
	return strings.TrimSuffix(secondary, filepath.Ext(secondary)) + MergedSuffix
}

// Merge 将弹幕字幕 primary 与原生字幕 secondary 合并，输出到 secondary 同目录。
// 失败时不会修改 primary。
func Merge(fs afero.Fs, primary, secondary string) (string, error) {
	if primary == "" || secondary == "" {
		return "", fmt.Errorf("字幕路径为空")
	}
	if !IsMergeable(secondary) {
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

	merged, err := Combine(primaryText, secondaryText)
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

// Combine 拼接两份已解码的 ASS 文本：primary 全文、secondary 的样式（字号按
// PlayResX 比例缩放）以及 secondary 的事件段
func Combine(primary, secondary string) (string, error) {
	secondary = strings.ReplaceAll(secondary, "\r\n", "\n")

	eventsStart := strings.Index(secondary, eventsHeader)
	if eventsStart == -1 {
		return "", ErrNoEvents
	}
	head := secondary[:eventsStart]
	events := strings.TrimSpace(secondary[eventsStart+len(eventsHeader):])

	formatLine, styles := collectStyles(head)
	if formatLine == "" {
		return "", ErrNoStyleFormat
	}

	ratio := fontSizeRatio(primary, secondary)
	for i, line := range styles {
		styles[i] = scaleStyleFontSize(line, ratio)
	}

	var b strings.Builder
	b.WriteString(primary)
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString(formatLine)
	b.WriteString("\n")
	b.WriteString(strings.Join(styles, "\n"))
	b.WriteString("\n[Events]\n")
	b.WriteString(events)
	return b.String(), nil
}

// collectStyles 返回事件段之前的第一条 Format 行与所有 Style 行
func collectStyles(head string) (string, []string) {
	var formatLine string
	var styles []string
	for _, raw := range strings.Split(head, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case formatLine == "" && strings.HasPrefix(line, "Format:"):
			formatLine = line
		case strings.HasPrefix(line, "Style:"):
			styles = append(styles, line)
		}
	}
	return formatLine, styles
}

// fontSizeRatio 按两份字幕的 PlayResX 计算字号缩放比例，任一缺失时为 1
func fontSizeRatio(primary, secondary string) float64 {
	px, ok1 := playResX(primary)
	sx, ok2 := playResX(secondary)
	if !ok1 || !ok2 || sx == 0 {
		return 1
	}
	return float64(px) / float64(sx) * fontScale
}

func playResX(content string) (int, bool) {
	m := playResXPattern.FindStringSubmatch(content)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}

// scaleStyleFontSize 缩放 Style 行第三个字段（Fontsize），无法解析时原样返回
func scaleStyleFontSize(line string, ratio float64) string {
	fields := strings.Split(line, ",")
	if len(fields) < 3 {
		return line
	}
	size, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return line
	}
	fields[2] = strconv.Itoa(int(size * ratio))
	return strings.Join(fields, ",")
}
