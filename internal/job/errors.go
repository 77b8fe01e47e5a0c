// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package job

import "errors"

var (
	ErrNotFound      = errors.New("job not found")
	ErrJobExists     = errors.New("job already exists")
	ErrInvalidConfig = errors.New("invalid config: need at least one input and one output")
	ErrNotLaunched   = errors.New("job has not been started")
)
