// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package job

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZSC714725/sonus/internal/ffmpeg"
)

// Step names one builder call
type Step struct {
	// Op is one of overwrite, timelimit, codec, bitrate, channels, frequency.
	Op    string `json:"op"`
	Value string `json:"value"`
	// Track is audio or video, only used by codec and bitrate.
	Track string `json:"track,omitempty"`
}

// Config for a conversion job
type Config struct {
	ID        string   `json:"id"`
	Reference string   `json:"reference"`
	Input     []string `json:"input"`
	Output    []string `json:"output"`
	Steps     []Step   `json:"steps"`
	// RawArgs replaces the steps when not empty. Split with shell rules.
	RawArgs   string `json:"raw_args"`
	Autostart bool   `json:"autostart"`
}

// Build applies the config to a new builder in order: inputs, steps, outputs.
// The job id doubles as the progress id.
func (c *Config) Build(ff ffmpeg.FFmpeg) (*ffmpeg.Builder, ffmpeg.ExecOptions, error) {
	var opts ffmpeg.ExecOptions

	if len(c.Input) == 0 || len(c.Output) == 0 {
		return nil, opts, ErrInvalidConfig
	}

	b := ff.Convert()
	if c.ID != "" {
		b.ProgressID(c.ID)
	}
	for _, in := range c.Input {
		b.Input(in)
	}
	if err := b.Err(); err != nil {
		return nil, opts, err
	}
	for i, s := range c.Steps {
		if err := applyStep(b, s); err != nil {
			return nil, opts, fmt.Errorf("step %d (%s): %w", i, s.Op, err)
		}
	}
	for _, out := range c.Output {
		b.Output(out)
	}
	if err := b.Err(); err != nil {
		return nil, opts, err
	}

	if strings.TrimSpace(c.RawArgs) != "" {
		raw, err := ffmpeg.SplitArgs(c.RawArgs)
		if err != nil {
			return nil, opts, err
		}
		opts.RawArgs = raw
	}
	return b, opts, nil
}

func applyStep(b *ffmpeg.Builder, s Step) error {
	value := strings.TrimSpace(s.Value)
	track := ffmpeg.Track(strings.ToLower(strings.TrimSpace(s.Track)))

	switch strings.ToLower(s.Op) {
	case "overwrite":
		v := true
		if value != "" {
			x, err := strconv.ParseBool(value)
			if err != nil {
				return notNumeric(s, err)
			}
			v = x
		}
		b.Overwrite(v)
	case "timelimit":
		x, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return notNumeric(s, err)
		}
		b.TimeLimit(x)
	case "codec":
		b.Codec(value, track)
	case "bitrate":
		x, err := strconv.ParseFloat(strings.TrimSuffix(value, "k"), 64)
		if err != nil {
			return notNumeric(s, err)
		}
		b.Bitrate(x, track)
	case "channels":
		x, err := strconv.Atoi(value)
		if err != nil {
			return notNumeric(s, err)
		}
		b.Channels(x)
	case "frequency":
		x, err := strconv.Atoi(value)
		if err != nil {
			return notNumeric(s, err)
		}
		b.Frequency(x)
	default:
		return fmt.Errorf("%w: unknown op %q", ffmpeg.ErrInvalidArgument, s.Op)
	}
	return b.Err()
}

func notNumeric(s Step, err error) error {
	return fmt.Errorf("%w: %s value %q: %v", ffmpeg.ErrInvalidArgument, s.Op, s.Value, err)
}
