// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package skills

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ZSC714725/sonus/internal/ffmpeg/parse"
)

// Kind is the media type column of -encoders/-decoders listings
type Kind string

const (
	Audio    Kind = "audio"
	Video    Kind = "video"
	Subtitle Kind = "subtitle"
)

// ParseKind accepts "audio", "video" and "subtitle".
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Audio, Video, Subtitle:
		return k, nil
	}
	return "", fmt.Errorf("unknown codec kind %q", s)
}

// Version is the converter release triple
type Version struct {
	Major    int `json:"major"`
	Minor    int `json:"minor"`
	Revision int `json:"rev"`
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
}

// Library represents a linked av library
type Library struct {
	Name     string `json:"name"`
	Compiled string `json:"compiled"`
	Linked   string `json:"linked"`
}

// Info is everything the -version banner reports
type Info struct {
	Version       Version   `json:"version"`
	Compiler      string    `json:"compiler"`
	Configuration string    `json:"configuration"`
	Libraries     []Library `json:"libraries"`
}

// Codecs groups codec names by kind
type Codecs struct {
	Audio    []string `json:"audio"`
	Video    []string `json:"video"`
	Subtitle []string `json:"subtitle"`
}

// Names returns the names of one kind.
func (c Codecs) Names(kind Kind) []string {
	switch kind {
	case Audio:
		return c.Audio
	case Video:
		return c.Video
	case Subtitle:
		return c.Subtitle
	}
	return nil
}

// Has reports whether name is an audio or video codec.
func (c Codecs) Has(name string) bool {
	for _, list := range [][]string{c.Audio, c.Video} {
		for _, n := range list {
			if n == name {
				return true
			}
		}
	}
	return false
}

// Skills are the detected capabilities of FFmpeg
type Skills struct {
	FFmpeg   Info              `json:"ffmpeg"`
	Formats  map[string]string `json:"formats"`
	Encoders Codecs            `json:"encoders"`
	Decoders Codecs            `json:"decoders"`
}

var (
	reVersion       = regexp.MustCompile(`^ffmpeg version n?([0-9]+)\.([0-9]+)(?:\.([0-9]+))?`)
	reCompiler      = regexp.MustCompile(`(?m)^\s*built with (.*)$`)
	reConfiguration = regexp.MustCompile(`(?m)^\s*configuration: (.*)$`)
	reLibrary       = regexp.MustCompile(`(?m)^\s*(lib(?:[a-z]+))\s+([0-9]+\.\s*[0-9]+\.\s*[0-9]+) /\s+([0-9]+\.\s*[0-9]+\.\s*[0-9]+)`)
	reFormat        = regexp.MustCompile(`^\s([D. ])([E. ])([d. ]?)\s+([0-9A-Za-z_,\-]+)\s+(.*)$`)
	reCoder         = regexp.MustCompile(`^\s([VAS])([.A-Z]{5})\s+([0-9A-Za-z_\-]+)\s`)
)

// ParseVersion reads "ffmpeg version MAJOR.MINOR[.REVISION]" from the first
// line. A missing revision is reported as 0.
func ParseVersion(data []byte) (Version, error) {
	first, _, _ := bytes.Cut(bytes.TrimLeft(data, " \t\r\n"), []byte("\n"))
	m := reVersion.FindSubmatch(first)
	if m == nil {
		return Version{}, fmt.Errorf("%w: no version in %q", parse.ErrParse, strings.TrimSpace(string(first)))
	}
	var v Version
	v.Major, _ = strconv.Atoi(string(m[1]))
	v.Minor, _ = strconv.Atoi(string(m[2]))
	if len(m[3]) > 0 {
		v.Revision, _ = strconv.Atoi(string(m[3]))
	}
	return v, nil
}

// ParseInfo parses the whole -version banner. The returned Info holds every
// field that matched even when the version line did not.
func ParseInfo(data []byte) (Info, error) {
	var f Info
	v, err := ParseVersion(data)
	f.Version = v

	if m := reCompiler.FindSubmatch(data); m != nil {
		f.Compiler = string(m[1])
	}
	if m := reConfiguration.FindSubmatch(data); m != nil {
		f.Configuration = string(m[1])
	}
	for _, m := range reLibrary.FindAllSubmatch(data, -1) {
		f.Libraries = append(f.Libraries, Library{
			Name:     string(m[1]),
			Compiled: string(m[2]),
			Linked:   string(m[3]),
		})
	}
	return f, err
}

// ParseFormats maps every format name listed by -formats to its mux flags
// ("D", "E" or "DE"). Aliases such as "mov,mp4,m4a" get one entry each.
func ParseFormats(data []byte) (map[string]string, error) {
	formats := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		m := reFormat.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		flags := strings.Trim(m[1]+m[2], ". ")
		flags = strings.ReplaceAll(flags, ".", "")
		flags = strings.ReplaceAll(flags, " ", "")
		if flags == "" {
			continue
		}
		for _, name := range strings.Split(m[4], ",") {
			if name == "" {
				continue
			}
			formats[name] = flags
		}
	}
	if len(formats) == 0 {
		return formats, fmt.Errorf("%w: no formats listed", parse.ErrParse)
	}
	return formats, nil
}

// ParseCodecList parses -encoders or -decoders output.
func ParseCodecList(data []byte) (Codecs, error) {
	var c Codecs
	n := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		m := reCoder.FindStringSubmatch(scanner.Text() + " ")
		if m == nil {
			continue
		}
		switch m[1] {
		case "A":
			c.Audio = append(c.Audio, m[3])
		case "V":
			c.Video = append(c.Video, m[3])
		case "S":
			c.Subtitle = append(c.Subtitle, m[3])
		}
		n++
	}
	if n == 0 {
		return c, fmt.Errorf("%w: no codecs listed", parse.ErrParse)
	}
	return c, nil
}
