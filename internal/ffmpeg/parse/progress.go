// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package parse

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ErrParse is returned when FFmpeg output does not have the expected shape.
// Parsers return whatever they could extract together with an error wrapping
// ErrParse, so callers that prefer partial data may ignore it.
var ErrParse = errors.New("unexpected ffmpeg output")

// ProgressExt is the extension of progress log files.
const ProgressExt = ".sonustmp"

var (
	reDuration = regexp.MustCompile(`Duration: (.*?), start:`)
	reTime     = regexp.MustCompile(`time=(.*?) bitrate`)
)

// Snapshot is the progress of a conversion at the time its log was read.
type Snapshot struct {
	Duration string `json:"duration"`
	Current  string `json:"current"`
	Progress int    `json:"progress"`
}

// JSON returns the serialized form of the snapshot.
func (s Snapshot) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// ProgressPath returns the progress log location for a job id.
func ProgressPath(dir, id string) string {
	return filepath.Join(dir, id+ProgressExt)
}

// ReadProgress reads and parses the progress log of a job. A missing, unreadable
// or empty log yields (nil, nil).
func ReadProgress(dir, id string) (*Snapshot, error) {
	data, err := os.ReadFile(ProgressPath(dir, id))
	if err != nil || len(data) == 0 {
		return nil, nil
	}
	s, err := ParseProgress(string(data))
	return &s, err
}

// timeUnknown is printed as the position before the first packet is written.
const timeUnknown = "N/A"

// ParseProgress extracts the input duration (first "Duration: ..., start:")
// and the latest position (last "time=... bitrate") from a converter log.
//
// A log without any known position yet reports 0%. A zero duration also
// reports 0%.
func ParseProgress(content string) (Snapshot, error) {
	var s Snapshot

	m := reDuration.FindStringSubmatch(content)
	if m == nil {
		return s, fmt.Errorf("%w: no duration", ErrParse)
	}
	s.Duration = m[1]

	for _, m := range reTime.FindAllStringSubmatch(content, -1) {
		if m[1] != timeUnknown || s.Current == "" {
			s.Current = m[1]
		}
	}

	return s, s.compute()
}

func (s *Snapshot) compute() error {
	s.Progress = 0
	// ffmpeg 在第一个包之前输出 time=N/A
	if s.Duration == "" || s.Current == "" || s.Current == timeUnknown {
		return nil
	}
	total, err := TimestampToSeconds(s.Duration)
	if err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	current, err := TimestampToSeconds(s.Current)
	if err != nil {
		return fmt.Errorf("current time: %w", err)
	}
	s.Progress = Percentage(current, total)
	return nil
}

// TimestampToSeconds converts "[[HH:]MM:]SS[.ff]" to seconds. The seconds
// field may be fractional; minutes and hours must be integers.
func TimestampToSeconds(ts string) (float64, error) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return 0, fmt.Errorf("%w: empty timestamp", ErrParse)
	}
	parts := strings.Split(ts, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: timestamp %q", ErrParse, ts)
	}

	// 倒序：秒、分、时
	n := len(parts)
	secs, err := strconv.ParseFloat(parts[n-1], 64)
	if err != nil || secs < 0 || math.IsInf(secs, 0) || math.IsNaN(secs) {
		return 0, fmt.Errorf("%w: timestamp %q", ErrParse, ts)
	}
	total := secs
	for i, mul := n-2, 60.0; i >= 0; i, mul = i-1, mul*60 {
		v, err := strconv.Atoi(parts[i])
		if err != nil || v < 0 {
			return 0, fmt.Errorf("%w: timestamp %q", ErrParse, ts)
		}
		total += float64(v) * mul
	}
	return total, nil
}

// SecondsToTimestamp formats seconds as HH:MM:SS. Fractions are dropped, so
// only whole seconds survive a round trip through TimestampToSeconds.
func SecondsToTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	s := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// Percentage returns round(current/total*100) clamped to [0,100].
// A non-positive total yields 0.
func Percentage(current, total float64) int {
	if total <= 0 || math.IsNaN(total) || math.IsNaN(current) {
		return 0
	}
	p := math.Round(current / total * 100)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}

// ExtractBetween returns the trimmed text between the first start marker and
// the next end marker.
func ExtractBetween(s, start, end string) (string, bool) {
	i := strings.Index(s, start)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:j]), true
}
