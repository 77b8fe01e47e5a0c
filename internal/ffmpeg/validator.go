// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package ffmpeg

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator decides whether a path may be used as converter input or output
type Validator interface {
	// Validate returns nil for acceptable paths and a reason otherwise.
	Validate(path string) error
}

type validator struct {
	allow []*regexp.Regexp
	block []*regexp.Regexp
}

// NewValidator creates a Validator from allow and block expressions. Block
// wins over allow; with no allow expressions every unblocked path passes.
// Empty expressions are ignored.
func NewValidator(allow, block []string) (Validator, error) {
	v := &validator{}
	var err error
	if v.allow, err = compileAll("allow", allow); err != nil {
		return nil, err
	}
	if v.block, err = compileAll("block", block); err != nil {
		return nil, err
	}
	return v, nil
}

func compileAll(kind string, exps []string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for _, exp := range exps {
		exp = strings.TrimSpace(exp)
		if exp == "" {
			continue
		}
		re, err := regexp.Compile(exp)
		if err != nil {
			return nil, fmt.Errorf("invalid %s expression '%s': %w", kind, exp, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func (v *validator) Validate(path string) error {
	for _, e := range v.block {
		if e.MatchString(path) {
			return fmt.Errorf("%q matches block expression %q", path, e.String())
		}
	}
	if len(v.allow) == 0 {
		return nil
	}
	for _, e := range v.allow {
		if e.MatchString(path) {
			return nil
		}
	}
	return fmt.Errorf("%q matches no allow expression", path)
}
