package service

import (
	"regexp"
	"strconv"
)

// 常见的剧集命名：S01E05、EP05、第5集/话、[05]、 - 05
var episodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)S\d{1,2}E(\d{1,4})`),
	regexp.MustCompile(`(?i)\bEP?(\d{1,4})\b`),
	regexp.MustCompile(`第\s*(\d{1,4})\s*[集话話]`),
	regexp.MustCompile(`\[(\d{1,3})(?:v\d)?\]`),
	regexp.MustCompile(`\s-\s(\d{1,3})(?:v\d)?[\s\[.(]`),
}

// ParseEpisode 从文件名推断集数，无法推断时返回 0
func ParseEpisode(name string) int {
	for _, re := range episodePatterns {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
