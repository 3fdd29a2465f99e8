package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Script   ScriptConfig   `yaml:"script"`
	Assets   AssetsConfig   `yaml:"assets"`
	Video    VideoConfig    `yaml:"video"`
	Progress ProgressConfig `yaml:"progress"`
	Server   ServerConfig   `yaml:"server"`
	Upload   UploadConfig   `yaml:"upload"`
}

type ScriptConfig struct {
	Model       string  `yaml:"model"`
	MaxSegments int     `yaml:"max_segments"`
	Temperature float64 `yaml:"temperature"`
}

type AssetsConfig struct {
	ImageSearchURL    string `yaml:"image_search_url"`
	FallbackImageURL  string `yaml:"fallback_image_url"`
	SpeechURL         string `yaml:"speech_url"`
	Voice             string `yaml:"voice"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
}

type VideoConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`
	Preset string `yaml:"preset"`
	CRF    int    `yaml:"crf"`
}

// ProgressConfig holds the weighting constants of the progress model. The
// four weights must sum to 100. EncodeTimeMultiplier scales a segment's
// audio duration into the expected encode time used for interpolation.
type ProgressConfig struct {
	InitWeight           int     `yaml:"init_weight"`
	FetchWeight          int     `yaml:"fetch_weight"`
	EncodeWeight         int     `yaml:"encode_weight"`
	ConcatWeight         int     `yaml:"concat_weight"`
	EncodeTimeMultiplier float64 `yaml:"encode_time_multiplier"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type UploadConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Visibility string `yaml:"visibility"`
	CategoryID string `yaml:"category_id"`
}

// Default returns the built-in configuration used when no config file is
// given.
func Default() *Config {
	return &Config{
		Script: ScriptConfig{
			Model:       "gpt-4o-mini",
			MaxSegments: 8,
			Temperature: 0.7,
		},
		Assets: AssetsConfig{
			ImageSearchURL:    "https://api.pexels.com/v1/search",
			FallbackImageURL:  "https://images.pexels.com/photos/1103970/pexels-photo-1103970.jpeg",
			SpeechURL:         "https://api.openai.com/v1/audio/speech",
			Voice:             "alloy",
			RequestTimeoutSec: 60,
		},
		Video: VideoConfig{
			Width:  1080,
			Height: 1920,
			FPS:    30,
			Preset: "ultrafast",
			CRF:    28,
		},
		Progress: ProgressConfig{
			InitWeight:           10,
			FetchWeight:          30,
			EncodeWeight:         40,
			ConcatWeight:         20,
			EncodeTimeMultiplier: 2.0,
		},
		Server: ServerConfig{Addr: ":8080"},
		Upload: UploadConfig{Visibility: "unlisted", CategoryID: "24"},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configs the pipeline cannot run with.
func (c *Config) Validate() error {
	p := c.Progress
	if sum := p.InitWeight + p.FetchWeight + p.EncodeWeight + p.ConcatWeight; sum != 100 {
		return fmt.Errorf("progress weights must sum to 100, got %d", sum)
	}
	if p.EncodeTimeMultiplier <= 0 {
		return fmt.Errorf("encode_time_multiplier must be positive")
	}
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return fmt.Errorf("invalid output frame %dx%d", c.Video.Width, c.Video.Height)
	}
	return nil
}
