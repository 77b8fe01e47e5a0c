// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package api

import (
	"sort"
	"strings"

	"github.com/ZSC714725/sonus/internal/ffmpeg/skills"
)

// SkillsResponse for API
type SkillsResponse struct {
	FFmpeg struct {
		Version       string           `json:"version"`
		Compiler      string           `json:"compiler"`
		Configuration string           `json:"configuration"`
		Libraries     []skills.Library `json:"libraries"`
	} `json:"ffmpeg"`

	Codecs struct {
		Audio    []SkillsCodec `json:"audio"`
		Video    []SkillsCodec `json:"video"`
		Subtitle []SkillsCodec `json:"subtitle"`
	} `json:"codecs"`

	Formats struct {
		Demuxers []string `json:"demuxers"`
		Muxers   []string `json:"muxers"`
	} `json:"formats"`
}

type SkillsCodec struct {
	ID     string `json:"id"`
	Encode bool   `json:"encode"`
	Decode bool   `json:"decode"`
}

func skillsToAPI(s skills.Skills) SkillsResponse {
	resp := SkillsResponse{}

	resp.FFmpeg.Version = s.FFmpeg.Version.String()
	resp.FFmpeg.Compiler = s.FFmpeg.Compiler
	resp.FFmpeg.Configuration = s.FFmpeg.Configuration
	resp.FFmpeg.Libraries = s.FFmpeg.Libraries
	if resp.FFmpeg.Libraries == nil {
		resp.FFmpeg.Libraries = []skills.Library{}
	}

	resp.Codecs.Audio = mergeCodecs(s.Encoders.Audio, s.Decoders.Audio)
	resp.Codecs.Video = mergeCodecs(s.Encoders.Video, s.Decoders.Video)
	resp.Codecs.Subtitle = mergeCodecs(s.Encoders.Subtitle, s.Decoders.Subtitle)

	resp.Formats.Demuxers = []string{}
	resp.Formats.Muxers = []string{}
	for name, flags := range s.Formats {
		if strings.Contains(flags, "D") {
			resp.Formats.Demuxers = append(resp.Formats.Demuxers, name)
		}
		if strings.Contains(flags, "E") {
			resp.Formats.Muxers = append(resp.Formats.Muxers, name)
		}
	}
	sort.Strings(resp.Formats.Demuxers)
	sort.Strings(resp.Formats.Muxers)

	return resp
}

// mergeCodecs joins encoder and decoder names into one sorted list.
func mergeCodecs(encoders, decoders []string) []SkillsCodec {
	index := map[string]*SkillsCodec{}
	for _, name := range encoders {
		index[name] = &SkillsCodec{ID: name, Encode: true}
	}
	for _, name := range decoders {
		if c, ok := index[name]; ok {
			c.Decode = true
			continue
		}
		index[name] = &SkillsCodec{ID: name, Decode: true}
	}

	out := make([]SkillsCodec, 0, len(index))
	for _, c := range index {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
