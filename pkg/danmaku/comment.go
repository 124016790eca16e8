package danmaku

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Placement 弹幕的显示方式
type Placement int

const (
	PlacementScroll Placement = iota
	PlacementTop
	PlacementBottom
	PlacementOther // 其他位置代码，不占用轨道
)

func (p Placement) String() string {
	switch p {
	case PlacementTop:
		return "top"
	case PlacementBottom:
		return "bottom"
	case PlacementOther:
		return "other"
	default:
		return "scroll"
	}
}

// 弹幕源中的位置代码
const (
	modeScroll = 1
	modeBottom = 4
	modeTop    = 5
)

// PlacementFromMode 将原始位置代码映射为显示方式，1/4/5 以外的代码归为 PlacementOther
func PlacementFromMode(mode int) Placement {
	switch mode {
	case modeScroll:
		return PlacementScroll
	case modeBottom:
		return PlacementBottom
	case modeTop:
		return PlacementTop
	default:
		return PlacementOther
	}
}

// ErrMalformedRecord 单条弹幕缺少必要字段或字段非法
var ErrMalformedRecord = errors.New("弹幕数据格式不正确")

// BiliBiliTag B站来源弹幕在作者字段中的标记
const BiliBiliTag = "[BiliBili]"

// Comment 一条已规范化的弹幕
type Comment struct {
	Offset    float64 // 距视频开始的秒数
	Placement Placement
	Color     int // 24 位 RGB
	Author    string
	Text      string
}

// FromPlatform 判断弹幕作者标记是否包含指定平台标记
func (c Comment) FromPlatform(tag string) bool {
	return strings.Contains(c.Author, tag)
}

// Validate 检查弹幕是否可以进入后续处理
func (c Comment) Validate() error {
	if c.Text == "" {
		return fmt.Errorf("%w: 文本为空", ErrMalformedRecord)
	}
	if math.IsNaN(c.Offset) || math.IsInf(c.Offset, 0) || c.Offset < 0 {
		return fmt.Errorf("%w: 时间偏移非法 %v", ErrMalformedRecord, c.Offset)
	}
	return nil
}

// ParseComment 解析弹幕源的 p 字段（offset,mode,color,author）和文本
func ParseComment(p, text string) (Comment, error) {
	fields := strings.Split(p, ",")
	if len(fields) < 3 {
		return Comment{}, fmt.Errorf("%w: p=%q", ErrMalformedRecord, p)
	}

	offset, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return Comment{}, fmt.Errorf("%w: 时间偏移 %q", ErrMalformedRecord, fields[0])
	}
	mode, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return Comment{}, fmt.Errorf("%w: 位置代码 %q", ErrMalformedRecord, fields[1])
	}
	color, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return Comment{}, fmt.Errorf("%w: 颜色 %q", ErrMalformedRecord, fields[2])
	}

	var author string
	if len(fields) > 3 {
		author = strings.TrimSpace(fields[3])
	}

	c := Comment{
		Offset:    offset,
		Placement: PlacementFromMode(mode),
		Color:     color & 0xFFFFFF,
		Author:    author,
		Text:      text,
	}
	if err := c.Validate(); err != nil {
		return Comment{}, err
	}
	return c, nil
}

// RawComment 弹幕源返回的单条原始弹幕
type RawComment struct {
	CID int64  `json:"cid"`
	P   string `json:"p"`
	M   string `json:"m"`
}

// ParseComments 批量解析原始弹幕，格式不正确的条目跳过并计数
func ParseComments(raw []RawComment) ([]Comment, int) {
	comments := make([]Comment, 0, len(raw))
	malformed := 0
	for _, r := range raw {
		c, err := ParseComment(r.P, r.M)
		if err != nil {
			malformed++
			continue
		}
		comments = append(comments, c)
	}
	return comments, malformed
}

// OnlyFromPlatform 仅保留指定平台的弹幕
func OnlyFromPlatform(comments []Comment, tag string) []Comment {
	out := make([]Comment, 0, len(comments))
	for _, c := range comments {
		if c.FromPlatform(tag) {
			out = append(out, c)
		}
	}
	return out
}
