package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/novvoo/go-pdf-reader/pkg/remote"
	"github.com/novvoo/go-pdf-reader/pkg/viewer"
)

// Display 显示尺寸（像素）
type Display struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Log 日志设置
type Log struct {
	Verbosity int    `yaml:"verbosity"`
	File      string `yaml:"file"`
}

// Config 阅读器配置文件
type Config struct {
	Quality       float64 `yaml:"quality"`
	MaxBitmapDim  int     `yaml:"max_bitmap_dim"`
	CacheBudgetKB int     `yaml:"cache_budget_kb"` // 0 表示按内存上限自动计算
	Display       Display `yaml:"display"`
	Database      string  `yaml:"database"`
	DownloadDir   string  `yaml:"download_dir"`
	Log           Log     `yaml:"log"`
}

// Default 默认配置
func Default() Config {
	return Config{
		Quality:      viewer.DefaultQualityMultiplier,
		MaxBitmapDim: viewer.DefaultMaxBitmapDim,
		Display: Display{
			Width:  viewer.DefaultDisplay.WidthPixels,
			Height: viewer.DefaultDisplay.HeightPixels,
		},
		Database:    "pdfreader.db",
		DownloadDir: remote.DefaultDownloadDir(),
		Log:         Log{Verbosity: 1},
	}
}

// Load 读取 YAML 配置，未出现的字段保留默认值；path 为空时返回默认配置
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate 检查配置取值
func (c Config) Validate() error {
	var errs []error
	if err := c.QualitySettings().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.CacheBudgetKB < 0 {
		errs = append(errs, fmt.Errorf("cache_budget_kb %d must not be negative", c.CacheBudgetKB))
	}
	if c.Display.Width < 0 || c.Display.Height < 0 {
		errs = append(errs, fmt.Errorf("display %dx%d must not be negative", c.Display.Width, c.Display.Height))
	}
	if c.Log.Verbosity < -4 || c.Log.Verbosity > 2 {
		errs = append(errs, fmt.Errorf("log verbosity %d out of range [-4, 2]", c.Log.Verbosity))
	}
	return errors.Join(errs...)
}

// QualitySettings 质量设置
func (c Config) QualitySettings() viewer.Quality {
	return viewer.Quality{Multiplier: c.Quality, MaxBitmapDim: c.MaxBitmapDim}
}

// DisplayMetrics 显示尺寸
func (c Config) DisplayMetrics() viewer.DisplayMetrics {
	return viewer.DisplayMetrics{WidthPixels: c.Display.Width, HeightPixels: c.Display.Height}
}

// Write 将配置写为 YAML 文件
func (c Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
