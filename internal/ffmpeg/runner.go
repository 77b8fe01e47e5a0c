// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package ffmpeg

import (
	"context"
	"io"
	"os/exec"
)

// Command is one external invocation.
type Command struct {
	Binary string
	Args   []string
	// Output receives stdout and stderr instead of them being captured.
	Output io.Writer
}

// Runner runs a Command to completion. It returns the combined output, or
// nothing when Command.Output is set.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands with os/exec. No shell is involved.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Binary, c.Args...)
	if c.Output != nil {
		cmd.Stdout = c.Output
		cmd.Stderr = c.Output
		return nil, cmd.Run()
	}
	return cmd.CombinedOutput()
}
