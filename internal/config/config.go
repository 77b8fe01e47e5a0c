// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server ServerConfig `yaml:"server" toml:"server"`
	FFmpeg FFmpegConfig `yaml:"ffmpeg" toml:"ffmpeg"`
	Log    LogConfig    `yaml:"log" toml:"log"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Bind string `yaml:"bind" toml:"bind"`
}

// FFmpegConfig FFmpeg 配置
type FFmpegConfig struct {
	Path      string        `yaml:"path" toml:"path"`
	ProbePath string        `yaml:"probe_path" toml:"probe_path"`
	TmpDir    string        `yaml:"tmp_dir" toml:"tmp_dir"`
	Progress  bool          `yaml:"progress" toml:"progress"`
	LogLines  int           `yaml:"log_lines" toml:"log_lines"`
	Input     AddressFilter `yaml:"input" toml:"input"`
	Output    AddressFilter `yaml:"output" toml:"output"`
}

// AddressFilter holds allow/block regular expressions for input or output paths.
type AddressFilter struct {
	Allow []string `yaml:"allow" toml:"allow"`
	Block []string `yaml:"block" toml:"block"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{Bind: ":8080"},
		FFmpeg: FFmpegConfig{
			Path:      "ffmpeg",
			ProbePath: "ffprobe",
			TmpDir:    os.TempDir(),
			LogLines:  100,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load 从 YAML 或 TOML 文件加载配置，再应用环境变量覆盖
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		data = nil
	}

	if len(data) > 0 {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			err = toml.Unmarshal(data, cfg)
		default:
			err = yaml.Unmarshal(data, cfg)
		}
		if err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.fill()
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped; existing variables are kept.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from SONUS_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := lookup("SONUS_BIND"); ok {
		c.Server.Bind = v
	}
	if v, ok := lookup("SONUS_FFMPEG"); ok {
		c.FFmpeg.Path = v
	}
	if v, ok := lookup("SONUS_FFPROBE"); ok {
		c.FFmpeg.ProbePath = v
	}
	if v, ok := lookup("SONUS_TMP_DIR"); ok {
		c.FFmpeg.TmpDir = v
	}
	if v, ok := lookup("SONUS_PROGRESS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SONUS_PROGRESS: %w", err)
		}
		c.FFmpeg.Progress = b
	}
	if v, ok := lookup("SONUS_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	return nil
}

// 填充空值
func (c *Config) fill() {
	def := Default()
	if c.Server.Bind == "" {
		c.Server.Bind = def.Server.Bind
	}
	if c.FFmpeg.Path == "" {
		c.FFmpeg.Path = def.FFmpeg.Path
	}
	if c.FFmpeg.ProbePath == "" {
		c.FFmpeg.ProbePath = def.FFmpeg.ProbePath
	}
	if c.FFmpeg.TmpDir == "" {
		c.FFmpeg.TmpDir = def.FFmpeg.TmpDir
	}
	if c.FFmpeg.LogLines <= 0 {
		c.FFmpeg.LogLines = def.FFmpeg.LogLines
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
