package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Danmu    DanmuConfig    `mapstructure:"danmu"`
	Provider ProviderConfig `mapstructure:"provider"`
	Media    MediaConfig    `mapstructure:"media"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DanmuConfig 弹幕字幕生成参数
type DanmuConfig struct {
	Width           int      `mapstructure:"width"`
	Height          int      `mapstructure:"height"`
	FontFace        string   `mapstructure:"font_face"`
	FontSize        float64  `mapstructure:"font_size"`
	Alpha           float64  `mapstructure:"alpha"`            // 不透明度 0.0-1.0
	Duration        float64  `mapstructure:"duration"`         // 滚动弹幕显示秒数
	MaxComments     int      `mapstructure:"max_comments"`     // 0 表示不限制
	ExclusionHeight int      `mapstructure:"exclusion_height"` // 底部原生字幕区域高度（像素）
	OnlyFromBili    bool     `mapstructure:"only_from_bili"`
	UseTmdbID       bool     `mapstructure:"use_tmdb_id"` // 文件匹配失败时使用 TMDB ID 搜索
	Merge           bool     `mapstructure:"merge"`
	ExtractEmbedded bool     `mapstructure:"extract_embedded"` // 没有外挂字幕时尝试提取内嵌字幕
	ConvertText     bool     `mapstructure:"convert_text"`     // SRT/VTT 字幕先转换为 ASS 再合并
	MaxWorkers      int      `mapstructure:"max_workers"`
	Paths           []string `mapstructure:"paths"` // scan/watch 默认路径
}

// ProviderConfig 弹幕源 API
type ProviderConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	ChConvert int           `mapstructure:"ch_convert"` // 繁简转换：0 不转换，1 转简体，2 转繁体
}

type MediaConfig struct {
	FFmpegPath        string   `mapstructure:"ffmpeg_path"`
	FFprobePath       string   `mapstructure:"ffprobe_path"`
	SubtitleLanguages []string `mapstructure:"subtitle_languages"` // 允许提取的内嵌字幕语言
}

type LoggingConfig struct {
	Level      string       `mapstructure:"level"`
	FilePath   string       `mapstructure:"file_path"`
	StdoutPath string       `mapstructure:"stdout_path"`
	StderrPath string       `mapstructure:"stderr_path"`
	NoColor    bool         `mapstructure:"no_color"`
	Rotate     RotateConfig `mapstructure:"rotate"`
}

type RotateConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

type MetricsConfig struct {
	// Textfile 非空时在任务结束后写出 Prometheus textfile
	Textfile string `mapstructure:"textfile"`
}

var globalConfig *Config

// SetDefaults 注册默认值，与原插件的默认参数保持一致
func SetDefaults(v *viper.Viper) {
	v.SetDefault("danmu.width", 1920)
	v.SetDefault("danmu.height", 1080)
	v.SetDefault("danmu.font_face", "Arial")
	v.SetDefault("danmu.font_size", 50)
	v.SetDefault("danmu.alpha", 0.8)
	v.SetDefault("danmu.duration", 6)
	v.SetDefault("danmu.max_comments", 2000)
	v.SetDefault("danmu.exclusion_height", 150)
	v.SetDefault("danmu.only_from_bili", false)
	v.SetDefault("danmu.use_tmdb_id", true)
	v.SetDefault("danmu.merge", true)
	v.SetDefault("danmu.extract_embedded", true)
	v.SetDefault("danmu.convert_text", false)
	v.SetDefault("danmu.max_workers", 10)

	v.SetDefault("provider.base_url", "https://dandanapi.hankun.online/api/v1")
	v.SetDefault("provider.user_agent", "danmaku/1.0")
	v.SetDefault("provider.timeout", 30*time.Second)
	v.SetDefault("provider.ch_convert", 1)

	v.SetDefault("media.ffmpeg_path", "ffmpeg")
	v.SetDefault("media.ffprobe_path", "ffprobe")
	v.SetDefault("media.subtitle_languages", []string{"zh", "zho", "chi", "chs", "cht", "cn"})

	v.SetDefault("logging.level", "info")
}

// Load 读取配置文件（可选）、.env 与环境变量
func Load(configPath string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.GetViper()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.danmaku")
	}

	v.SetEnvPrefix("DANMAKU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 未指定配置文件时允许只使用默认值和环境变量
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg, err := Decode(v)
	if err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// Decode 从 viper 实例解析并校验配置
func Decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return &config, nil
}

func Get() *Config {
	return globalConfig
}

func validate(cfg *Config) error {
	d := cfg.Danmu
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("画布尺寸必须为正数: %dx%d", d.Width, d.Height)
	}
	if d.FontSize <= 0 {
		return fmt.Errorf("字号必须为正数: %v", d.FontSize)
	}
	if d.Alpha < 0 || d.Alpha > 1 {
		return fmt.Errorf("不透明度必须在 0 到 1 之间: %v", d.Alpha)
	}
	if d.Duration <= 0 {
		return fmt.Errorf("弹幕时长必须为正数: %v", d.Duration)
	}
	if d.MaxComments < 0 {
		return fmt.Errorf("弹幕数量上限不能为负数: %d", d.MaxComments)
	}
	if d.ExclusionHeight < 0 || d.ExclusionHeight >= d.Height {
		return fmt.Errorf("底部字幕区域高度非法: %d", d.ExclusionHeight)
	}
	if d.MaxWorkers < 1 {
		return fmt.Errorf("并发数至少为 1: %d", d.MaxWorkers)
	}
	if cfg.Provider.BaseURL == "" {
		return fmt.Errorf("弹幕源地址不能为空")
	}
	return nil
}
