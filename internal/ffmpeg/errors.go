// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package ffmpeg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZSC714725/sonus/internal/ffmpeg/parse"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrProcess         = errors.New("external process failed")
	// ErrParse is re-exported so callers need not import the parse package.
	ErrParse = parse.ErrParse
)

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// processError wraps a failed invocation together with the tail of its output.
func processError(binary string, err error, output []byte) error {
	out := strings.TrimSpace(string(output))
	if len(out) > 512 {
		out = "..." + out[len(out)-512:]
	}
	if out == "" {
		return fmt.Errorf("%w: %s: %v", ErrProcess, binary, err)
	}
	return fmt.Errorf("%w: %s: %v: %s", ErrProcess, binary, err, out)
}
