// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ZSC714725/sonus/internal/config"
	"github.com/ZSC714725/sonus/internal/ffmpeg"
)

type commandContext struct {
	configFlag string
	ffmpegFlag string
	probeFlag  string
	tmpDirFlag string
	jsonFlag   bool

	once sync.Once
	ff   ffmpeg.FFmpeg
	err  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

// ensureFFmpeg loads the configuration once and creates the facade.
func (c *commandContext) ensureFFmpeg() (ffmpeg.FFmpeg, error) {
	c.once.Do(func() {
		if c.ff != nil {
			return
		}
		if err := config.LoadDotEnv(".env"); err != nil {
			c.err = err
			return
		}
		cfg, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.err = err
			return
		}
		if c.ffmpegFlag != "" {
			cfg.FFmpeg.Path = c.ffmpegFlag
		}
		if c.probeFlag != "" {
			cfg.FFmpeg.ProbePath = c.probeFlag
		}
		if c.tmpDirFlag != "" {
			cfg.FFmpeg.TmpDir = c.tmpDirFlag
		}

		ffcfg, err := cfg.Converter(cfg.Logger("sonus"))
		if err != nil {
			c.err = err
			return
		}
		c.ff, c.err = ffmpeg.New(ffcfg)
	})
	return c.ff, c.err
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sonus",
		Short:         "Query and drive ffmpeg/ffprobe",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFlag, "config", "c", "sonus.yaml", "Configuration file path (YAML or TOML)")
	flags.StringVar(&ctx.ffmpegFlag, "ffmpeg", "", "ffmpeg binary (overrides config)")
	flags.StringVar(&ctx.probeFlag, "ffprobe", "", "ffprobe binary (overrides config)")
	flags.StringVar(&ctx.tmpDirFlag, "tmp-dir", "", "Directory for progress logs (overrides config)")
	flags.BoolVar(&ctx.jsonFlag, "json", false, "Print JSON instead of tables")

	rootCmd.AddCommand(newVersionCommand(ctx))
	rootCmd.AddCommand(newFormatsCommand(ctx))
	rootCmd.AddCommand(newCodecsCommand(ctx, "encoders"))
	rootCmd.AddCommand(newCodecsCommand(ctx, "decoders"))
	rootCmd.AddCommand(newCapabilityCommand(ctx, "can-encode"))
	rootCmd.AddCommand(newCapabilityCommand(ctx, "can-decode"))
	rootCmd.AddCommand(newProbeCommand(ctx))
	rootCmd.AddCommand(newThumbnailsCommand(ctx))
	rootCmd.AddCommand(newConvertCommand(ctx))
	rootCmd.AddCommand(newProgressCommand(ctx))

	return rootCmd
}
