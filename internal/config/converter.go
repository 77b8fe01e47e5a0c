// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package config

import (
	"fmt"
	"os"

	"github.com/ZSC714725/sonus/internal/ffmpeg"
	"github.com/ZSC714725/sonus/internal/logger"
)

// Logger returns a logger at the configured level, writing to stderr.
func (c *Config) Logger(prefix string) logger.Logger {
	return logger.NewWithLevel(prefix, logger.ParseLevel(c.Log.Level), os.Stderr)
}

// Converter translates the ffmpeg section into facade settings.
func (c *Config) Converter(log logger.Logger) (ffmpeg.Config, error) {
	in, err := ffmpeg.NewValidator(c.FFmpeg.Input.Allow, c.FFmpeg.Input.Block)
	if err != nil {
		return ffmpeg.Config{}, fmt.Errorf("ffmpeg.input: %w", err)
	}
	out, err := ffmpeg.NewValidator(c.FFmpeg.Output.Allow, c.FFmpeg.Output.Block)
	if err != nil {
		return ffmpeg.Config{}, fmt.Errorf("ffmpeg.output: %w", err)
	}
	return ffmpeg.Config{
		Binary:          c.FFmpeg.Path,
		ProbeBinary:     c.FFmpeg.ProbePath,
		TmpDir:          c.FFmpeg.TmpDir,
		Progress:        c.FFmpeg.Progress,
		MaxLogLines:     c.FFmpeg.LogLines,
		ValidatorInput:  in,
		ValidatorOutput: out,
		Logger:          log,
	}, nil
}
