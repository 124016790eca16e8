package danmaku

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"danmaku/pkg/logger"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// StyleName 弹幕使用的唯一样式名
const StyleName = "Danmu"

const (
	scrollTopMargin = 10 // 滚动弹幕第一条轨道的纵坐标
	topTopMargin    = 50 // 顶部弹幕第一条轨道的纵坐标
	scrollGap       = 1  // 滚动弹幕离开后轨道额外空出的秒数
	charWidthRatio  = 0.6
)

// Options 生成 ASS 时的画布、字体与时长参数
type Options struct {
	Width           int
	Height          int
	FontFace        string
	FontSize        float64
	Alpha           float64 // 0 全透明，1 不透明
	Duration        float64 // 单条弹幕显示秒数
	ExclusionHeight int     // 底部原生字幕区域高度（像素），0 表示不避让
}

// DefaultOptions 1080p 画布下的默认参数
func DefaultOptions() Options {
	return Options{
		Width:           1920,
		Height:          1080,
		FontFace:        "Arial",
		FontSize:        50,
		Alpha:           0.8,
		Duration:        6,
		ExclusionHeight: 150,
	}
}

// Stats 一次生成的统计信息
type Stats struct {
	Emitted   int
	Bottom    int
	Dropped   int // 落入底部字幕区被丢弃的滚动弹幕
	Malformed int
}

// Skipped 未输出的弹幕总数
func (s Stats) Skipped() int {
	return s.Bottom + s.Dropped + s.Malformed
}

// emitter 单次生成的状态，轨道表只在本次生成内有效
type emitter struct {
	opts      Options
	maxLanes  int
	scrolling Lanes
	top       Lanes
	stats     Stats
}

// Emit 将弹幕写成 ASS 文本（不含 BOM）。comments 应已按时间排序（见 Filter）。
func Emit(w io.Writer, comments []Comment, opts Options) (Stats, error) {
	e := &emitter{
		opts:      opts,
		maxLanes:  MaxLanes(opts.Height, opts.ExclusionHeight, opts.FontSize),
		scrolling: make(Lanes),
		top:       make(Lanes),
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(e.header()); err != nil {
		return e.stats, fmt.Errorf("写入 ASS 头部失败: %w", err)
	}

	for _, c := range comments {
		line, ok := e.dialogue(c)
		if !ok {
			continue
		}
		if _, err := bw.WriteString(line); err != nil {
			return e.stats, fmt.Errorf("写入弹幕失败: %w", err)
		}
		e.stats.Emitted++
	}

	if err := bw.Flush(); err != nil {
		return e.stats, fmt.Errorf("写入 ASS 文件失败: %w", err)
	}
	return e.stats, nil
}

// WriteFile 生成带 BOM 的 UTF-8 ASS 文件
func WriteFile(fs afero.Fs, path string, comments []Comment, opts Options) (Stats, error) {
	f, err := fs.Create(path)
	if err != nil {
		return Stats{}, fmt.Errorf("创建弹幕文件失败: %w", err)
	}
	defer f.Close()

	tw := transform.NewWriter(f, unicode.UTF8BOM.NewEncoder())
	stats, err := Emit(tw, comments, opts)
	if err != nil {
		return stats, err
	}
	if err := tw.Close(); err != nil {
		return stats, fmt.Errorf("写入弹幕文件失败: %w", err)
	}

	logger.Info().
		Str("path", path).
		Int("total", stats.Emitted).
		Int("bottom", stats.Bottom).
		Int("skipped", stats.Skipped()).
		Msg("弹幕生成成功")
	return stats, nil
}

func (e *emitter) header() string {
	o := e.opts
	alpha := int((1 - o.Alpha) * 255)
	outline := math.Max(o.FontSize/25.0, 1)

	var b strings.Builder
	b.WriteString("[Script Info]\n")
	b.WriteString("; Script generated by danmaku\n")
	b.WriteString("ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", o.Width)
	fmt.Fprintf(&b, "PlayResY: %d\n", o.Height)
	fmt.Fprintf(&b, "Aspect Ratio: %d:%d\n", o.Width, o.Height)
	b.WriteString("Collisions: Normal\n")
	b.WriteString("WrapStyle: 2\n")
	b.WriteString("ScaledBorderAndShadow: yes\n")
	b.WriteString("YCbCr Matrix: TV.601\n")
	b.WriteString("\n[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: %s, %s, %.0f, &H%02XFFFFFF, &H%02XFFFFFF, &H%02X000000, &H%02X000000, 0, 0, 0, 0, 100, 100, 0.00, 0.00, 1, %.0f, 0, 7, 0, 0, 0, 0\n",
		StyleName, o.FontFace, o.FontSize, alpha, alpha, alpha, alpha, outline)
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	return b.String()
}

// dialogue 生成单条弹幕的 Dialogue 行，返回 false 表示该弹幕不输出
func (e *emitter) dialogue(c Comment) (string, bool) {
	if err := c.Validate(); err != nil {
		logger.Warn().Err(err).Float64("offset", c.Offset).Msg("跳过格式不正确的弹幕")
		e.stats.Malformed++
		return "", false
	}

	o := e.opts
	size := o.FontSize
	chars := float64(utf8.RuneCountInString(c.Text))

	var directive string
	switch c.Placement {
	case PlacementBottom:
		e.stats.Bottom++
		return "", false

	case PlacementTop:
		track := AssignTrack(e.top, c.Offset, e.maxLanes)
		e.top[track] = c.Offset + o.Duration
		directive = fmt.Sprintf(`\an8\pos(%s, %s)`,
			formatNumber(float64(o.Width)/2),
			formatNumber(topTopMargin+float64(track-1)*size))

	case PlacementOther:
		// 从左上角移到右上角，不分配轨道也不避让字幕区
		directive = fmt.Sprintf(`\move(0, 0, %d, 0)`, o.Width)

	default:
		textWidth := chars * size * charWidthRatio
		velocity := (float64(o.Width) + textWidth) / o.Duration
		leave := textWidth/velocity + scrollGap

		track := AssignTrack(e.scrolling, c.Offset, e.maxLanes)
		e.scrolling[track] = c.Offset + leave

		y := float64(track-1)*size + scrollTopMargin
		if o.ExclusionHeight > 0 && y > float64(o.Height-o.ExclusionHeight) {
			e.stats.Dropped++
			return "", false
		}
		directive = fmt.Sprintf(`\move(%d, %s, %s, %s)`,
			o.Width, formatNumber(y), formatNumber(-chars*size), formatNumber(y))
	}

	return fmt.Sprintf("Dialogue: 0,%s,%s,%s,,0,0,0,,{\\c%s%s}%s\n",
		FormatTimestamp(c.Offset),
		FormatTimestamp(c.Offset+o.Duration),
		StyleName,
		FormatColor(c.Color),
		directive,
		escapeText(c.Text),
	), true
}

// FormatTimestamp 将秒数转为 ASS 时间 H:MM:SS.CC，四舍五入到百分之一秒，小时不设上限
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	hours := cs / 360000
	cs %= 360000
	minutes := cs / 6000
	cs %= 6000
	secs := cs / 100
	cs %= 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, cs)
}

// FormatColor 将 RGB 颜色转为 ASS 的 &HBBGGRR& 形式
func FormatColor(rgb int) string {
	rgb &= 0xFFFFFF
	r := (rgb >> 16) & 0xFF
	g := (rgb >> 8) & 0xFF
	b := rgb & 0xFF
	return fmt.Sprintf("&H%02X%02X%02X&", b, g, r)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var textReplacer = strings.NewReplacer(
	"\\", "＼",
	"{", "｛",
	"}", "｝",
	"\r\n", `\N`,
	"\n", `\N`,
	"\r", `\N`,
)

// escapeText 防止弹幕文本注入样式标签、转义序列或破坏行结构
func escapeText(s string) string {
	return textReplacer.Replace(s)
}
