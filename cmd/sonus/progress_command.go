// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <id>",
		Short: "Print the progress of a conversion from its progress log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ff, err := ctx.ensureFFmpeg()
			if err != nil {
				return err
			}
			s, err := ff.Progress(args[0])
			if err != nil {
				return err
			}
			if s == nil {
				return fmt.Errorf("no progress log for %q", args[0])
			}
			if ctx.jsonFlag {
				data, err := s.JSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s / %s  %d%%\n", s.Current, s.Duration, s.Progress)
			return nil
		},
	}
}
