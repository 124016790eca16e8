package danmaku

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlacementFromMode(t *testing.T) {
	tests := []struct {
		mode int
		want Placement
	}{
		{1, PlacementScroll},
		{4, PlacementBottom},
		{5, PlacementTop},
		{2, PlacementOther},
		{6, PlacementOther},
		{7, PlacementOther},
		{0, PlacementOther},
		{-1, PlacementOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlacementFromMode(tt.mode), "mode %d", tt.mode)
	}
}

func TestParseComment(t *testing.T) {
	tests := []struct {
		name    string
		p       string
		text    string
		want    Comment
		wantErr bool
	}{
		{
			name: "scroll with author",
			p:    "12.5,1,16777215,[BiliBili]abc",
			text: "hello",
			want: Comment{Offset: 12.5, Placement: PlacementScroll, Color: 0xFFFFFF, Author: "[BiliBili]abc", Text: "hello"},
		},
		{
			name: "top without author",
			p:    "3,5,255",
			text: "顶部",
			want: Comment{Offset: 3, Placement: PlacementTop, Color: 255, Text: "顶部"},
		},
		{
			name: "color masked to 24 bits",
			p:    "0,1,33554431,x",
			text: "c",
			want: Comment{Offset: 0, Placement: PlacementScroll, Color: 0xFFFFFF, Author: "x", Text: "c"},
		},
		{name: "too few fields", p: "1,1", text: "a", wantErr: true},
		{name: "bad offset", p: "abc,1,0", text: "a", wantErr: true},
		{name: "bad mode", p: "1,x,0", text: "a", wantErr: true},
		{name: "bad color", p: "1,1,red", text: "a", wantErr: true},
		{name: "negative offset", p: "-1,1,0", text: "a", wantErr: true},
		{name: "empty text", p: "1,1,0", text: "", wantErr: true},
		{name: "nan offset", p: "NaN,1,0", text: "a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseComment(tt.p, tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedRecord)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseComments_CountsMalformed(t *testing.T) {
	raw := []RawComment{
		{CID: 1, P: "1,1,0,a", M: "ok"},
		{CID: 2, P: "broken", M: "bad"},
		{CID: 3, P: "2,4,0,b", M: ""},
		{CID: 4, P: "3,5,0,c", M: "also ok"},
	}

	comments, malformed := ParseComments(raw)
	assert.Equal(t, 2, malformed)
	require.Len(t, comments, 2)
	assert.Equal(t, "ok", comments[0].Text)
	assert.Equal(t, PlacementTop, comments[1].Placement)
}

func TestOnlyFromPlatform(t *testing.T) {
	comments := []Comment{
		{Offset: 1, Author: "[BiliBili]123", Text: "b"},
		{Offset: 2, Author: "[Gamer]456", Text: "g"},
		{Offset: 3, Author: "", Text: "n"},
	}

	got := OnlyFromPlatform(comments, BiliBiliTag)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Text)
}
