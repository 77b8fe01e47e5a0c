// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ZSC714725/sonus/internal/ffmpeg"
	"github.com/ZSC714725/sonus/internal/ffmpeg/parse"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "probe <input>",
		Short: "Show container and stream information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ff, err := ctx.ensureFFmpeg()
			if err != nil {
				return err
			}

			// 指定了格式时原样输出
			if formatFlag != "" {
				format, err := ffmpeg.ParseProbeFormat(formatFlag)
				if err != nil {
					return err
				}
				out, err := ff.MediaInfoRaw(cmd.Context(), args[0], format)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			}

			info, err := ff.MediaInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, info.Raw)
			}

			duration := info.Format.Duration
			if secs, err := info.DurationSeconds(); err == nil {
				duration = parse.SecondsToTimestamp(secs)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  %s  (%d video, %d audio)\n",
				info.Format.Filename, info.Format.FormatName, duration, info.Format.BitRate,
				info.CountStreams("video"), info.CountStreams("audio"))
			rows := make([][]string, 0, len(info.Streams))
			for _, s := range info.Streams {
				detail := s.SampleRate
				if s.CodecType == "video" {
					detail = fmt.Sprintf("%dx%d", s.Width, s.Height)
				} else if s.Channels > 0 {
					detail = fmt.Sprintf("%s, %d ch", s.SampleRate, s.Channels)
				}
				rows = append(rows, []string{strconv.Itoa(s.Index), s.CodecType, s.CodecName, detail, s.BitRate})
			}
			printTable(cmd, []string{"#", "Type", "Codec", "Detail", "Bitrate"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight})
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Print the raw report as json, xml or csv")
	return cmd
}

func newThumbnailsCommand(ctx *commandContext) *cobra.Command {
	opts := ffmpeg.ThumbnailOptions{}

	cmd := &cobra.Command{
		Use:   "thumbnails <input> <output-prefix>",
		Short: "Capture frames at scene changes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ff, err := ctx.ensureFFmpeg()
			if err != nil {
				return err
			}
			opts.Input = args[0]
			opts.OutputPrefix = args[1]
			if err := ff.Thumbnails(cmd.Context(), opts); err != nil {
				return err
			}
			format := opts.Format
			if format == "" {
				format = "png"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote up to %d frames to %s%%02d.%s\n", opts.Count, opts.OutputPrefix, format)
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.Count, "count", "n", ffmpeg.DefaultThumbnailCount, "Number of frames")
	cmd.Flags().StringVar(&opts.Format, "format", "png", "Image extension")
	return cmd
}
