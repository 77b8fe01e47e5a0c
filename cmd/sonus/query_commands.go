// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ZSC714725/sonus/internal/ffmpeg/skills"
)

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ffmpeg version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ff, err := ctx.ensureFFmpeg()
			if err != nil {
				return err
			}
			v, err := ff.Version(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, v)
			}
			fmt.Fprintln(cmd.OutOrStdout(), v.String())
			return nil
		},
	}
}

func newFormatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List container formats and whether they demux (D) or mux (E)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ff, err := ctx.ensureFFmpeg()
			if err != nil {
				return err
			}
			formats, err := ff.Formats(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, formats)
			}

			names := make([]string, 0, len(formats))
			for name := range formats {
				names = append(names, name)
			}
			sort.Strings(names)
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, []string{name, formats[name]})
			}
			printTable(cmd, []string{"Format", "Flags"}, rows, nil)
			return nil
		},
	}
}

// newCodecsCommand builds "encoders" or "decoders".
func newCodecsCommand(ctx *commandContext, use string) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   use,
		Short: "List " + use + " of one kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := skills.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			ff, err := ctx.ensureFFmpeg()
			if err != nil {
				return err
			}

			list := ff.Encoders
			if use == "decoders" {
				list = ff.Decoders
			}
			names, err := list(cmd.Context(), kind)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				if names == nil {
					names = []string{}
				}
				return writeJSON(cmd, names)
			}
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, []string{name})
			}
			printTable(cmd, []string{string(kind) + " " + use}, rows, nil)
			return nil
		},
	}
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "audio", "audio, video or subtitle")
	return cmd
}

// newCapabilityCommand builds "can-encode" or "can-decode". The exit status
// is non-zero when the codec is not supported.
func newCapabilityCommand(ctx *commandContext, use string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <codec>",
		Short: "Report whether ffmpeg lists the codec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ff, err := ctx.ensureFFmpeg()
			if err != nil {
				return err
			}
			check := ff.CanEncode
			if use == "can-decode" {
				check = ff.CanDecode
			}
			ok, err := check(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, map[string]interface{}{"name": args[0], "supported": ok})
			}
			if !ok {
				return fmt.Errorf("%s: not supported", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: supported\n", args[0])
			return nil
		},
	}
}
