// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package ffmpeg

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/ZSC714725/sonus/internal/ffmpeg/parse"
)

// Track selects the stream a codec or bitrate applies to
type Track string

const (
	TrackAudio Track = "audio"
	TrackVideo Track = "video"
)

func (t Track) specifier() (string, bool) {
	switch t {
	case TrackAudio:
		return "a", true
	case TrackVideo:
		return "v", true
	}
	return "", false
}

// Builder accumulates a conversion job through chained calls.
//
// The first failing call records an error wrapping ErrInvalidArgument and
// leaves the accumulated tokens untouched; every later call is a no-op and
// Err, Args, Execute and Launch report that error.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	ff         *ffmpeg
	inputs     [][]string
	outputs    [][]string
	params     [][]string
	progressID string
	err        error
}

// Input adds "-i path".
func (b *Builder) Input(path string) *Builder {
	if b.err != nil {
		return b
	}
	if strings.TrimSpace(path) == "" {
		b.err = invalidf("input path is empty")
		return b
	}
	if err := b.ff.validatorIn.Validate(path); err != nil {
		b.err = invalidf("input: %v", err)
		return b
	}
	b.inputs = append(b.inputs, []string{"-i", path})
	return b
}

// Output adds a bare output path.
func (b *Builder) Output(path string) *Builder {
	if b.err != nil {
		return b
	}
	if strings.TrimSpace(path) == "" {
		b.err = invalidf("output path is empty")
		return b
	}
	if err := b.ff.validatorOut.Validate(path); err != nil {
		b.err = invalidf("output: %v", err)
		return b
	}
	b.outputs = append(b.outputs, []string{path})
	return b
}

// ProgressID names the progress log of this job, replacing any earlier id.
func (b *Builder) ProgressID(id string) *Builder {
	if b.err != nil {
		return b
	}
	id, err := checkProgressID(id)
	if err != nil {
		b.err = err
		return b
	}
	b.progressID = id
	return b
}

// checkProgressID keeps progress logs inside the tmp directory.
func checkProgressID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", invalidf("progress id is empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", invalidf("progress id %q is not a file name", id)
	}
	return id, nil
}

// Overwrite adds -y (true) or -n (false).
func (b *Builder) Overwrite(overwrite bool) *Builder {
	if b.err != nil {
		return b
	}
	if overwrite {
		return b.param("-y")
	}
	return b.param("-n")
}

// TimeLimit adds "-timelimit seconds".
func (b *Builder) TimeLimit(seconds float64) *Builder {
	if b.err != nil {
		return b
	}
	if !isCount(seconds) {
		b.err = invalidf("time limit %v", seconds)
		return b
	}
	return b.param("-timelimit", formatNumber(seconds))
}

// Codec adds "-c:a name" or "-c:v name".
func (b *Builder) Codec(name string, track Track) *Builder {
	if b.err != nil {
		return b
	}
	spec, ok := track.specifier()
	if !ok {
		b.err = invalidf("track type %q", track)
		return b
	}
	if strings.TrimSpace(name) == "" {
		b.err = invalidf("codec name is empty")
		return b
	}
	return b.param("-c:"+spec, name)
}

// Bitrate adds "-b:a <kbps>k" or "-b:v <kbps>k".
func (b *Builder) Bitrate(kbps float64, track Track) *Builder {
	if b.err != nil {
		return b
	}
	spec, ok := track.specifier()
	if !ok {
		b.err = invalidf("track type %q", track)
		return b
	}
	if !isCount(kbps) {
		b.err = invalidf("bitrate %v", kbps)
		return b
	}
	return b.param("-b:"+spec, formatNumber(kbps)+"k")
}

// Channels adds "-ac count".
func (b *Builder) Channels(count int) *Builder {
	if b.err != nil {
		return b
	}
	if count < 1 {
		b.err = invalidf("channel count %d", count)
		return b
	}
	return b.param("-ac", strconv.Itoa(count))
}

// Frequency adds "-ar:a hz".
func (b *Builder) Frequency(hz int) *Builder {
	if b.err != nil {
		return b
	}
	if hz < 1 {
		b.err = invalidf("frequency %d", hz)
		return b
	}
	return b.param("-ar:a", strconv.Itoa(hz))
}

func (b *Builder) param(args ...string) *Builder {
	b.params = append(b.params, args)
	return b
}

// Err returns the first configuration error.
func (b *Builder) Err() error {
	return b.err
}

// Tokens returns the accumulated parameter tokens in call order, one per call.
func (b *Builder) Tokens() []string {
	out := make([]string, 0, len(b.params))
	for _, p := range b.params {
		out = append(out, shellquote.Join(p...))
	}
	return out
}

// Args renders the argument list: inputs, then parameters, then outputs.
// A non-nil raw replaces the accumulated parameters.
func (b *Builder) Args(raw []string) ([]string, error) {
	if b.err != nil {
		return nil, b.err
	}
	var args []string
	for _, in := range b.inputs {
		args = append(args, in...)
	}
	if raw != nil {
		args = append(args, raw...)
	} else {
		for _, p := range b.params {
			args = append(args, p...)
		}
	}
	for _, out := range b.outputs {
		args = append(args, out...)
	}
	return args, nil
}

// CommandLine renders the full command, shell-quoted.
func (b *Builder) CommandLine(raw []string) (string, error) {
	args, err := b.Args(raw)
	if err != nil {
		return "", err
	}
	return shellquote.Join(append([]string{b.ff.binary}, args...)...), nil
}

func (b *Builder) String() string {
	s, err := b.CommandLine(nil)
	if err != nil {
		return "<invalid: " + err.Error() + ">"
	}
	return s
}

// ExecOptions control how a built command is run
type ExecOptions struct {
	// RawArgs, when non-nil, replaces the accumulated parameter tokens.
	// Inputs and outputs are still taken from the builder.
	RawArgs []string
}

// Execute runs the converter and blocks until it exits. With progress
// tracking enabled the combined output goes to the progress log and the
// returned string is empty; otherwise the combined output is returned.
//
// No timeout is applied beyond ctx and an optional TimeLimit.
func (b *Builder) Execute(ctx context.Context, opts ExecOptions) (string, error) {
	args, err := b.Args(opts.RawArgs)
	if err != nil {
		return "", err
	}

	cmd := Command{Binary: b.ff.binary, Args: args}

	if b.ff.progress {
		path := parse.ProgressPath(b.ff.tmpDir, b.JobID())
		f, err := os.Create(path)
		if err != nil {
			return "", fmt.Errorf("create progress log: %w", err)
		}
		defer f.Close()
		cmd.Output = f

		b.ff.logger.Debug("run %s > %s", b, path)
		if _, err := b.ff.runner.Run(ctx, cmd); err != nil {
			return "", processError(b.ff.binary, err, nil)
		}
		return "", nil
	}

	b.ff.logger.Debug("run %s", b)
	out, err := b.ff.runner.Run(ctx, cmd)
	if err != nil {
		return string(out), processError(b.ff.binary, err, out)
	}
	return string(out), nil
}

// JobID returns the progress id, defaulting to the current Unix time in seconds.
func (b *Builder) JobID() string {
	if b.progressID != "" {
		return b.progressID
	}
	return strconv.FormatInt(b.ff.now().Unix(), 10)
}

// SplitArgs splits a raw argument string using shell word rules.
func SplitArgs(raw string) ([]string, error) {
	words, err := shellquote.Split(raw)
	if err != nil {
		return nil, invalidf("raw arguments: %v", err)
	}
	if words == nil {
		words = []string{}
	}
	return words, nil
}

func isCount(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
