package dandan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"danmaku/pkg/danmaku"
	"danmaku/pkg/logger"
)

var (
	// ErrSourceUnavailable 弹幕源不可达或返回异常
	ErrSourceUnavailable = errors.New("弹幕源不可用")
	// ErrNoMatch 弹幕源中没有匹配的剧集
	ErrNoMatch = errors.New("未找到对应弹幕")
)

// Provider 弹幕源
type Provider interface {
	Match(ctx context.Context, info VideoInfo) (string, error)
	SearchByTmdbID(ctx context.Context, tmdbID, episode int) (string, error)
	GetComments(ctx context.Context, commentID string) ([]danmaku.RawComment, error)
}

// VideoInfo 文件匹配接口的请求体
type VideoInfo struct {
	FileName      string `json:"fileName"`
	FileHash      string `json:"fileHash"`
	FileSize      int64  `json:"fileSize"`
	VideoDuration int    `json:"videoDuration"`
	MatchMode     string `json:"matchMode"`
}

// MatchModeHashAndFileName 同时使用文件哈希和文件名匹配
const MatchModeHashAndFileName = "hashAndFileName"

type matchResponse struct {
	Success   bool `json:"success"`
	IsMatched bool `json:"isMatched"`
	Matches   []struct {
		EpisodeID    int64  `json:"episodeId"`
		AnimeTitle   string `json:"animeTitle"`
		EpisodeTitle string `json:"episodeTitle"`
	} `json:"matches"`
}

type searchTmdbResponse struct {
	Success bool `json:"success"`
	HasMore bool `json:"hasMore"`
	Animes  []struct {
		AnimeTitle string `json:"animeTitle"`
		Episodes   []struct {
			EpisodeID int64 `json:"episodeId"`
		} `json:"episodes"`
	} `json:"animes"`
}

// CommentsResponse 弹幕接口的响应
type CommentsResponse struct {
	Count    int                  `json:"count"`
	Comments []danmaku.RawComment `json:"comments"`
}

// Client 弹弹play 兼容接口的 HTTP 客户端
type Client struct {
	baseURL    string
	userAgent  string
	chConvert  int
	httpClient *http.Client
}

// NewClient 创建客户端，timeout 为 0 时使用 30 秒
func NewClient(baseURL, userAgent string, chConvert int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		chConvert: chConvert,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Match 使用文件名、哈希、大小和时长匹配剧集，返回弹幕 ID
func (c *Client) Match(ctx context.Context, info VideoInfo) (string, error) {
	if info.MatchMode == "" {
		info.MatchMode = MatchModeHashAndFileName
	}

	var resp matchResponse
	if err := c.postJSON(ctx, "/match", info, &resp); err != nil {
		return "", err
	}
	if !resp.IsMatched || len(resp.Matches) == 0 {
		return "", ErrNoMatch
	}

	m := resp.Matches[0]
	logger.Debug().
		Str("file", info.FileName).
		Str("anime", m.AnimeTitle).
		Str("episode", m.EpisodeTitle).
		Msg("文件匹配成功")
	return strconv.FormatInt(m.EpisodeID, 10), nil
}

// SearchByTmdbID 使用 TMDB ID 搜索弹幕，episode 为 0 时按第 1 集处理
func (c *Client) SearchByTmdbID(ctx context.Context, tmdbID, episode int) (string, error) {
	if episode <= 0 {
		episode = 1
	}
	body := map[string]int{
		"tmdb_id": tmdbID,
		"episode": episode,
	}

	var resp searchTmdbResponse
	if err := c.postJSON(ctx, "/search/tmdb", body, &resp); err != nil {
		return "", err
	}
	// 结果不唯一时不采用
	if !resp.Success || resp.HasMore || len(resp.Animes) == 0 || len(resp.Animes[0].Episodes) == 0 {
		return "", ErrNoMatch
	}
	return strconv.FormatInt(resp.Animes[0].Episodes[0].EpisodeID, 10), nil
}

// GetComments 获取弹幕（包含关联来源）
func (c *Client) GetComments(ctx context.Context, commentID string) ([]danmaku.RawComment, error) {
	q := url.Values{}
	q.Set("from_id", "0")
	q.Set("with_related", "true")
	q.Set("ch_convert", strconv.Itoa(c.chConvert))
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(commentID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	c.setHeaders(req)

	var resp CommentsResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Comments, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("序列化请求失败: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: 读取响应失败: %v", ErrSourceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s 返回 %d: %s", ErrSourceUnavailable, req.URL.Path, resp.StatusCode, shorten(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: 解析响应失败: %v", ErrSourceUnavailable, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

// shorten 仅保留响应的首行并限制长度，避免日志过长
func shorten(msg string) string {
	s := strings.TrimSpace(msg)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	const limit = 200
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return s
}
