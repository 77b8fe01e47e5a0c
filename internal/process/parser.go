// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package process

import "time"

// Parser consumes the converter's combined output, one line at a time.
// Lines are split on both '\n' and '\r' so status updates arrive individually.
type Parser interface {
	Parse(line string) uint64
	ResetStats()
	ResetLog()
	Log() []Line
}

// Line is a timestamped output line
type Line struct {
	Timestamp time.Time
	Data      string
}
