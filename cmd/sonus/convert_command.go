// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ZSC714725/sonus/internal/ffmpeg"
)

type convertOptions struct {
	inputs     []string
	outputs    []string
	overwrite  bool
	timeLimit  float64
	audioCodec string
	videoCodec string
	audioRate  float64
	videoRate  float64
	channels   int
	frequency  int
	progressID string
	raw        string
	watch      bool
	dryRun     bool
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var o convertOptions

	cmd := &cobra.Command{
		Use:   "convert -i <input> -o <output> [flags]",
		Short: "Build and run an ffmpeg conversion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ff, err := ctx.ensureFFmpeg()
			if err != nil {
				return err
			}

			b := buildConversion(ff, cmd, &o)
			var opts ffmpeg.ExecOptions
			if o.raw != "" {
				if opts.RawArgs, err = ffmpeg.SplitArgs(o.raw); err != nil {
					return err
				}
			}
			line, err := b.CommandLine(opts.RawArgs)
			if err != nil {
				return err
			}

			if o.dryRun {
				fmt.Fprintln(cmd.OutOrStdout(), line)
				return nil
			}

			if o.watch {
				err = watchConversion(cmd, b, opts)
			} else {
				var out string
				out, err = b.Execute(cmd.Context(), opts)
				if out != "" {
					fmt.Fprint(cmd.ErrOrStderr(), out)
				}
			}
			if err != nil {
				return err
			}

			for _, path := range o.outputs {
				if fi, err := os.Stat(path); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", path, humanize.Bytes(uint64(fi.Size())))
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&o.inputs, "input", "i", nil, "Input file (repeatable)")
	flags.StringArrayVarP(&o.outputs, "output", "o", nil, "Output file (repeatable)")
	flags.BoolVarP(&o.overwrite, "overwrite", "y", false, "Overwrite (true) or never overwrite (false) outputs")
	flags.Float64Var(&o.timeLimit, "timelimit", 0, "Stop after this many seconds")
	flags.StringVar(&o.audioCodec, "acodec", "", "Audio codec")
	flags.StringVar(&o.videoCodec, "vcodec", "", "Video codec")
	flags.Float64Var(&o.audioRate, "abitrate", 0, "Audio bitrate in kbit/s")
	flags.Float64Var(&o.videoRate, "vbitrate", 0, "Video bitrate in kbit/s")
	flags.IntVar(&o.channels, "channels", 0, "Audio channel count")
	flags.IntVar(&o.frequency, "frequency", 0, "Audio sample rate in Hz")
	flags.StringVar(&o.progressID, "id", "", "Progress id (default: current Unix time)")
	flags.StringVar(&o.raw, "raw", "", "Raw ffmpeg arguments replacing the options above")
	flags.BoolVarP(&o.watch, "watch", "w", false, "Run detached and draw a progress bar")
	flags.BoolVar(&o.dryRun, "dry-run", false, "Print the command without running it")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// buildConversion applies the flags that were set, in a fixed order.
func buildConversion(ff ffmpeg.FFmpeg, cmd *cobra.Command, o *convertOptions) *ffmpeg.Builder {
	flags := cmd.Flags()
	b := ff.Convert()
	for _, in := range o.inputs {
		b.Input(in)
	}
	if o.progressID != "" {
		b.ProgressID(o.progressID)
	}
	if flags.Changed("overwrite") {
		b.Overwrite(o.overwrite)
	}
	if flags.Changed("timelimit") {
		b.TimeLimit(o.timeLimit)
	}
	if o.audioCodec != "" {
		b.Codec(o.audioCodec, ffmpeg.TrackAudio)
	}
	if flags.Changed("abitrate") {
		b.Bitrate(o.audioRate, ffmpeg.TrackAudio)
	}
	if o.videoCodec != "" {
		b.Codec(o.videoCodec, ffmpeg.TrackVideo)
	}
	if flags.Changed("vbitrate") {
		b.Bitrate(o.videoRate, ffmpeg.TrackVideo)
	}
	if flags.Changed("channels") {
		b.Channels(o.channels)
	}
	if flags.Changed("frequency") {
		b.Frequency(o.frequency)
	}
	for _, out := range o.outputs {
		b.Output(out)
	}
	return b
}

func watchConversion(cmd *cobra.Command, b *ffmpeg.Builder, opts ffmpeg.ExecOptions) error {
	job, err := b.Launch(cmd.Context(), opts)
	if err != nil {
		return err
	}

	bar := newProgressBar(cmd.ErrOrStderr(), job.ID)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for job.IsRunning() {
		select {
		case <-cmd.Context().Done():
			job.Stop(true)
			return cmd.Context().Err()
		case <-ticker.C:
		}
		if s, err := job.Progress(); err == nil && s != nil {
			_ = bar.Set(s.Progress)
		}
	}

	if err := job.Wait(); err != nil {
		_ = bar.Exit()
		return err
	}
	if s, err := job.Progress(); err == nil && s != nil {
		_ = bar.Set(s.Progress)
	}
	_ = bar.Finish()
	fmt.Fprintln(cmd.ErrOrStderr())
	return nil
}

func newProgressBar(w io.Writer, id string) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("job "+id),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
	)
}
