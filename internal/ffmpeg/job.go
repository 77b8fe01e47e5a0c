// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZSC714725/sonus/internal/ffmpeg/parse"
	"github.com/ZSC714725/sonus/internal/process"
)

// Job is a converter run launched in the background
type Job struct {
	// ID is the progress id of the run.
	ID string
	// Path is the progress log, empty when progress tracking is disabled.
	Path string
	Args []string

	binary   string
	proc     process.Process
	recorder *parse.Recorder
}

// Launch starts the converter without waiting for it. Its output is written
// to the progress log line by line as it arrives (when progress tracking is
// enabled) and kept in a bounded in-memory log, so the job can be polled
// while it runs.
//
// ctx only bounds the start; the process outlives it. Use Job.Stop to end it.
func (b *Builder) Launch(ctx context.Context, opts ExecOptions) (*Job, error) {
	args, err := b.Args(opts.RawArgs)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := b.ff
	j := &Job{ID: b.JobID(), Args: args, binary: f.binary}

	var sink *os.File
	if f.progress {
		j.Path = parse.ProgressPath(f.tmpDir, j.ID)
		if sink, err = os.Create(j.Path); err != nil {
			return nil, fmt.Errorf("create progress log: %w", err)
		}
	}

	rc := parse.RecorderConfig{LogLines: f.logLines}
	if sink != nil {
		rc.Sink = sink
	}
	j.recorder = parse.NewRecorder(rc)

	proc, err := process.New(process.Config{
		Binary: f.binary,
		Args:   args,
		Parser: j.recorder,
		Logger: f.logger,
		OnExit: func() {
			if sink != nil {
				sink.Close()
			}
			if err := j.recorder.SinkErr(); err != nil {
				f.logger.Error("job %s progress log: %v", j.ID, err)
			}
		},
		OnStateChange: func(from, to string) {
			f.logger.Debug("job %s state %s -> %s", j.ID, from, to)
		},
	})
	if err != nil {
		if sink != nil {
			sink.Close()
		}
		return nil, err
	}
	j.proc = proc

	f.logger.Info("launch job %s: %s", j.ID, b)
	if err := proc.Start(); err != nil {
		if sink != nil {
			sink.Close()
		}
		return nil, processError(f.binary, err, nil)
	}
	return j, nil
}

// Wait blocks until the converter exits.
func (j *Job) Wait() error {
	if err := j.proc.Wait(); err != nil {
		return processError(j.binary, err, []byte(j.tail()))
	}
	return nil
}

// Stop interrupts the converter and optionally waits for it to exit.
func (j *Job) Stop(wait bool) error {
	return j.proc.Stop(wait)
}

// Status reports the process state and resource usage.
func (j *Job) Status() process.Status {
	return j.proc.Status()
}

// IsRunning reports whether the converter is still running.
func (j *Job) IsRunning() bool {
	return j.proc.IsRunning()
}

// Progress reads the progress log when there is one and it was written
// without errors, otherwise it reports what the in-memory recorder has seen.
func (j *Job) Progress() (*parse.Snapshot, error) {
	// 进度文件写入失败时以内存记录为准
	if j.Path != "" && j.recorder.SinkErr() == nil {
		s, err := parse.ReadProgress(filepath.Dir(j.Path), j.ID)
		if s != nil || err != nil {
			return s, err
		}
	}
	s, err := j.recorder.Snapshot()
	return &s, err
}

// Stats returns frame, size and speed counters seen so far.
func (j *Job) Stats() parse.Stats {
	return j.recorder.Stats()
}

// Log returns the most recent output lines.
func (j *Job) Log() []process.Line {
	return j.recorder.Log()
}

func (j *Job) tail() string {
	lines := j.recorder.Log()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1].Data
}
