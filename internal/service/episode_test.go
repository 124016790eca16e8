package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEpisode(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"Show.S01E05.1080p.mkv", 5},
		{"show.s02e112.mp4", 112},
		{"Show EP07 [1080p].mkv", 7},
		{"Show.E12.mkv", 12},
		{"葬送的芙莉莲 第03集.mp4", 3},
		{"葬送的芙莉莲 第 14 话.mkv", 14},
		{"[Group] Show [08][1080p].mkv", 8},
		{"[Group] Show [08v2][1080p].mkv", 8},
		{"[Group] Show - 09 [1080p].mkv", 9},
		{"[Group] Show - 10v2 (BD).mkv", 10},
		{"Movie (2024) [2160p].mkv", 0},
		{"Movie.2024.1080p.mkv", 0},
		{"Show [00].mkv", 0},
		{"no episode here.mp4", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseEpisode(tt.name))
		})
	}
}
