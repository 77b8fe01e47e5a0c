// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package parse

import (
	"container/ring"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ZSC714725/sonus/internal/process"
)

// Stats holds counters parsed from FFmpeg status lines
type Stats struct {
	Frame uint64  `json:"frame"`
	Size  uint64  `json:"size_bytes"`
	Speed float64 `json:"speed"`
}

// Recorder implements process.Parser. Every line is appended to an optional
// sink (the job's progress log) and kept in a bounded in-memory log, while
// duration and position are tracked for live progress.
type Recorder struct {
	re struct {
		frame *regexp.Regexp
		size  *regexp.Regexp
		speed *regexp.Regexp
	}

	sink     io.Writer
	sinkErr  error
	log      *ring.Ring
	logLines int

	duration string
	current  string
	stats    Stats
	lock     sync.RWMutex
}

// RecorderConfig for the recorder
type RecorderConfig struct {
	LogLines int
	Sink     io.Writer
}

// NewRecorder creates a Recorder
func NewRecorder(config RecorderConfig) *Recorder {
	r := &Recorder{
		logLines: config.LogLines,
		sink:     config.Sink,
	}
	if r.logLines <= 0 {
		r.logLines = 100
	}
	r.re.frame = regexp.MustCompile(`frame=\s*([0-9]+)`)
	r.re.size = regexp.MustCompile(`size=\s*([0-9]+)(?:kB|KiB)`)
	r.re.speed = regexp.MustCompile(`speed=\s*([0-9\.]+)x`)
	r.log = ring.New(r.logLines)
	return r
}

// Parse records one output line. It returns a non-zero value for status lines.
func (r *Recorder) Parse(line string) uint64 {
	now := time.Now()

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.sink != nil && r.sinkErr == nil {
		_, r.sinkErr = io.WriteString(r.sink, line+"\n")
	}
	r.log.Value = process.Line{Timestamp: now, Data: line}
	r.log = r.log.Next()

	if r.duration == "" {
		if d, ok := ExtractBetween(line, "Duration: ", ", start:"); ok {
			r.duration = d
		}
	}

	if !strings.Contains(line, "time=") {
		return 0
	}
	if all := reTime.FindAllStringSubmatch(line, -1); len(all) > 0 {
		if t := all[len(all)-1][1]; t != timeUnknown || r.current == "" {
			r.current = t
		}
	}
	if m := r.re.frame.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			r.stats.Frame = x
		}
	}
	if m := r.re.size.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			r.stats.Size = x * 1024
		}
	}
	if m := r.re.speed.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseFloat(m[1], 64); err == nil {
			r.stats.Speed = x
		}
	}
	// 音频转码没有 frame 计数
	return r.stats.Frame + 1
}

// ResetStats clears duration, position and counters.
func (r *Recorder) ResetStats() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.duration = ""
	r.current = ""
	r.stats = Stats{}
}

// ResetLog clears the in-memory log. The sink is left untouched.
func (r *Recorder) ResetLog() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.log = ring.New(r.logLines)
}

// Log returns the buffered lines, oldest first.
func (r *Recorder) Log() []process.Line {
	var out []process.Line
	r.lock.RLock()
	r.log.Do(func(v interface{}) {
		if v != nil {
			out = append(out, v.(process.Line))
		}
	})
	r.lock.RUnlock()
	return out
}

// Snapshot returns the live progress seen so far.
func (r *Recorder) Snapshot() (Snapshot, error) {
	r.lock.RLock()
	s := Snapshot{Duration: r.duration, Current: r.current}
	r.lock.RUnlock()
	return s, s.compute()
}

// Stats returns the latest counters.
func (r *Recorder) Stats() Stats {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.stats
}

// SinkErr reports the first error writing to the sink, if any.
func (r *Recorder) SinkErr() error {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.sinkErr
}
