package subtitle

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// ErrEncodingDetection 无法推断字幕文件的字符编码
var ErrEncodingDetection = errors.New("无法识别字幕文件编码")

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// chardet 的字符集名与 WHATWG 名称不一致的部分
var charsetAliases = map[string]string{
	"gb-18030": "gb18030",
}

// DetectEncoding 推断字幕文件编码：优先识别 BOM，否则按字节统计特征推断
func DetectEncoding(data []byte) (encoding.Encoding, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return unicode.UTF8BOM, "utf-8", nil
	case bytes.HasPrefix(data, bomUTF16LE):
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), "utf-16le", nil
	case bytes.HasPrefix(data, bomUTF16BE):
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), "utf-16be", nil
	}

	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrEncodingDetection, err)
	}

	name := strings.ToLower(result.Charset)
	if alias, ok := charsetAliases[name]; ok {
		name = alias
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, "", fmt.Errorf("%w: 不支持的编码 %s", ErrEncodingDetection, result.Charset)
	}
	return enc, name, nil
}

// DecodeText 推断编码并解码为 UTF-8 字符串
func DecodeText(data []byte) (string, error) {
	enc, name, err := DetectEncoding(data)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: 按 %s 解码失败: %v", ErrEncodingDetection, name, err)
	}
	return string(out), nil
}

// DecodeUTF8 按 UTF-8 读取并去除 BOM
func DecodeUTF8(data []byte) (string, error) {
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncodeUTF8BOM 编码为带 BOM 的 UTF-8
func EncodeUTF8BOM(s string) ([]byte, error) {
	return unicode.UTF8BOM.NewEncoder().Bytes([]byte(s))
}
