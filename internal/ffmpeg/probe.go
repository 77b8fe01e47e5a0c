// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/ZSC714725/sonus/internal/ffmpeg/parse"
)

// ProbeFormat is the prober's report representation
type ProbeFormat string

const (
	ProbeJSON ProbeFormat = "json"
	ProbeXML  ProbeFormat = "xml"
	ProbeCSV  ProbeFormat = "csv"
)

// ParseProbeFormat accepts json, xml and csv. An empty string means json.
func ParseProbeFormat(s string) (ProbeFormat, error) {
	switch f := ProbeFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return ProbeJSON, nil
	case ProbeJSON, ProbeXML, ProbeCSV:
		return f, nil
	}
	return "", invalidf("probe format %q", s)
}

// MediaInfo is the prober's format and stream report. Values are the
// prober's "-pretty" strings, e.g. "0:03:05.120000" or "128 Kbit/s".
type MediaInfo struct {
	Streams []Stream               `json:"streams"`
	Format  Format                 `json:"format"`
	Raw     map[string]interface{} `json:"-"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int               `json:"index"`
	CodecName  string            `json:"codec_name"`
	CodecType  string            `json:"codec_type"`
	Duration   string            `json:"duration"`
	BitRate    string            `json:"bit_rate"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	SampleRate string            `json:"sample_rate"`
	Channels   int               `json:"channels"`
	Tags       map[string]string `json:"tags"`
}

// Format captures container-level metadata.
type Format struct {
	Filename   string            `json:"filename"`
	NBStreams  int               `json:"nb_streams"`
	FormatName string            `json:"format_name"`
	Duration   string            `json:"duration"`
	Size       string            `json:"size"`
	BitRate    string            `json:"bit_rate"`
	Tags       map[string]string `json:"tags"`
}

// CountStreams returns how many streams have the given codec type.
func (m *MediaInfo) CountStreams(codecType string) int {
	n := 0
	for _, s := range m.Streams {
		if strings.EqualFold(s.CodecType, codecType) {
			n++
		}
	}
	return n
}

// DurationSeconds parses the pretty container duration.
func (m *MediaInfo) DurationSeconds() (float64, error) {
	return parse.TimestampToSeconds(m.Format.Duration)
}

func probeArgs(input string, format ProbeFormat) []string {
	// 兼容调用方误传的 "-i " 前缀
	input = strings.TrimPrefix(input, "-i ")
	return []string{
		"-v", "quiet",
		"-print_format", string(format),
		"-show_format",
		"-show_streams",
		"-pretty",
		"-i", input,
	}
}

func (f *ffmpeg) MediaInfoRaw(ctx context.Context, input string, format ProbeFormat) (string, error) {
	if format == "" {
		format = ProbeJSON
	}
	if _, err := ParseProbeFormat(string(format)); err != nil {
		return "", err
	}
	if strings.TrimSpace(strings.TrimPrefix(input, "-i ")) == "" {
		return "", invalidf("probe input is empty")
	}
	if err := f.validatorIn.Validate(strings.TrimPrefix(input, "-i ")); err != nil {
		return "", invalidf("probe input: %v", err)
	}
	out, err := f.run(ctx, f.probe, probeArgs(input, format)...)
	return string(out), err
}

func (f *ffmpeg) MediaInfo(ctx context.Context, input string) (*MediaInfo, error) {
	out, err := f.MediaInfoRaw(ctx, input, ProbeJSON)
	if err != nil {
		return nil, err
	}
	return ParseMediaInfo([]byte(out))
}

// ParseMediaInfo decodes a JSON report into typed fields plus the raw mapping.
func ParseMediaInfo(data []byte) (*MediaInfo, error) {
	var info MediaInfo
	if err := json.Unmarshal(data, &info.Raw); err != nil {
		return nil, fmt.Errorf("%w: probe report: %v", ErrParse, err)
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return &info, fmt.Errorf("%w: probe report: %v", ErrParse, err)
	}
	return &info, nil
}

// ThumbnailOptions for Thumbnails
type ThumbnailOptions struct {
	Input string
	// OutputPrefix is followed by a two-digit sequence number and the extension.
	OutputPrefix string
	// Count must be at least 1. Callers usually start from DefaultThumbnailCount.
	Count int
	// Format is the image extension, png by default.
	Format string
}

// DefaultThumbnailCount is the number of frames captured when none is requested.
const DefaultThumbnailCount = 5

func thumbnailArgs(opts ThumbnailOptions) []string {
	return []string{
		"-i", opts.Input,
		"-vf", `select=gt(scene\,0.5)`,
		"-frames:v", strconv.Itoa(opts.Count),
		"-vsync", "vfr",
		opts.OutputPrefix + "%02d." + opts.Format,
	}
}

// Thumbnails captures up to Count frames at scene changes. Files are not
// checked afterwards; a nil error only means the converter exited cleanly.
func (f *ffmpeg) Thumbnails(ctx context.Context, opts ThumbnailOptions) error {
	if opts.Count < 1 {
		return invalidf("thumbnail count %d", opts.Count)
	}
	if strings.TrimSpace(opts.Input) == "" || strings.TrimSpace(opts.OutputPrefix) == "" {
		return invalidf("thumbnail input and output prefix are required")
	}
	if err := f.validatorIn.Validate(opts.Input); err != nil {
		return invalidf("thumbnail input: %v", err)
	}
	if err := f.validatorOut.Validate(opts.OutputPrefix); err != nil {
		return invalidf("thumbnail output: %v", err)
	}
	if opts.Format == "" {
		opts.Format = "png"
	}
	_, err := f.run(ctx, f.binary, thumbnailArgs(opts)...)
	return err
}
