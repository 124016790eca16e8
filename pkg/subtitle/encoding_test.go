package subtitle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

const chineseEvents = "[Events]\n" +
	"Dialogue: 0,0:00:01.00,0:00:03.00,Default,,0,0,0,,我们今天要去学校上课，你是不是也要一起去？\n" +
	"Dialogue: 0,0:00:04.00,0:00:06.00,Default,,0,0,0,,这个问题我已经想了很久了，现在终于有了答案。\n" +
	"Dialogue: 0,0:00:07.00,0:00:09.00,Default,,0,0,0,,他们说明天的天气会很好，我们可以出去走一走。\n" +
	"Dialogue: 0,0:00:10.00,0:00:12.00,Default,,0,0,0,,时间过得真快，一年又要过去了，大家都辛苦了。\n"

func TestDetectEncoding_BOM(t *testing.T) {
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("字幕")
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "字幕"...), "utf-8"},
		{"utf-16le bom", []byte(utf16), "utf-16le"},
		{"utf-16be bom", []byte{0xFE, 0xFF, 0x5B, 0x57}, "utf-16be"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, name, err := DetectEncoding(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, name)
		})
	}
}

func TestDecodeText(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().String(strings.Repeat(chineseEvents, 4))
	require.NoError(t, err)
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(chineseEvents)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"utf-8 without bom", []byte(chineseEvents), chineseEvents},
		{"utf-8 with bom", append([]byte{0xEF, 0xBB, 0xBF}, chineseEvents...), chineseEvents},
		{"utf-16le", []byte(utf16), chineseEvents},
		{"gbk", []byte(gbk), strings.Repeat(chineseEvents, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeText(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeUTF8BOM(t *testing.T) {
	out, err := EncodeUTF8BOM("弹幕")
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0xEF, 0xBB, 0xBF}, "弹幕"...), out)

	back, err := DecodeUTF8(out)
	require.NoError(t, err)
	assert.Equal(t, "弹幕", back)
}
