// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/ZSC714725/sonus/internal/ffmpeg/parse"
	"github.com/ZSC714725/sonus/internal/ffmpeg/skills"
	"github.com/ZSC714725/sonus/internal/logger"
)

// FFmpeg builds converter jobs and answers questions about the installed
// converter and prober.
//
// Capability queries (Version, Formats, Encoders, Decoders, CanEncode,
// CanDecode) run the binary on every call. Skills is the cached variant.
type FFmpeg interface {
	Convert() *Builder

	Version(ctx context.Context) (skills.Version, error)
	Formats(ctx context.Context) (map[string]string, error)
	Encoders(ctx context.Context, kind skills.Kind) ([]string, error)
	Decoders(ctx context.Context, kind skills.Kind) ([]string, error)
	CanEncode(ctx context.Context, name string) (bool, error)
	CanDecode(ctx context.Context, name string) (bool, error)

	MediaInfo(ctx context.Context, input string) (*MediaInfo, error)
	MediaInfoRaw(ctx context.Context, input string, format ProbeFormat) (string, error)
	Thumbnails(ctx context.Context, opts ThumbnailOptions) error

	Progress(jobID string) (*parse.Snapshot, error)

	Skills(ctx context.Context) (skills.Skills, error)
	ReloadSkills(ctx context.Context) error
}

// Config for FFmpeg
type Config struct {
	Binary      string
	ProbeBinary string
	TmpDir      string
	// Progress sends converter output to <TmpDir>/<job id>.sonustmp.
	Progress        bool
	MaxLogLines     int
	ValidatorInput  Validator
	ValidatorOutput Validator
	// Runner defaults to ExecRunner, in which case the converter must be
	// found in PATH.
	Runner Runner
	Logger logger.Logger
}

type ffmpeg struct {
	binary       string
	probe        string
	tmpDir       string
	progress     bool
	logLines     int
	validatorIn  Validator
	validatorOut Validator
	runner       Runner
	logger       logger.Logger
	now          func() time.Time

	skills     *skills.Skills
	skillsLock sync.RWMutex
}

// New creates FFmpeg
func New(config Config) (FFmpeg, error) {
	f := &ffmpeg{
		binary:       config.Binary,
		probe:        config.ProbeBinary,
		tmpDir:       config.TmpDir,
		progress:     config.Progress,
		logLines:     config.MaxLogLines,
		validatorIn:  config.ValidatorInput,
		validatorOut: config.ValidatorOutput,
		runner:       config.Runner,
		logger:       config.Logger,
		now:          time.Now,
	}

	if f.binary == "" {
		f.binary = "ffmpeg"
	}
	if f.probe == "" {
		f.probe = "ffprobe"
	}
	if f.logLines <= 0 {
		f.logLines = 100
	}
	if f.logger == nil {
		f.logger = logger.Nop()
	}
	if f.validatorIn == nil {
		f.validatorIn, _ = NewValidator(nil, nil)
	}
	if f.validatorOut == nil {
		f.validatorOut, _ = NewValidator(nil, nil)
	}

	if f.runner == nil {
		binary, err := exec.LookPath(f.binary)
		if err != nil {
			return nil, fmt.Errorf("invalid ffmpeg binary: %w", err)
		}
		f.binary = binary
		if probe, err := exec.LookPath(f.probe); err == nil {
			f.probe = probe
		} else {
			f.logger.Error("ffprobe not usable, media info will fail: %v", err)
		}
		f.runner = ExecRunner{}
	}

	return f, nil
}

func (f *ffmpeg) Convert() *Builder {
	return &Builder{ff: f}
}

// run invokes the converter and returns its combined output.
func (f *ffmpeg) run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	f.logger.Debug("exec %s %v", binary, args)
	out, err := f.runner.Run(ctx, Command{Binary: binary, Args: args})
	if err != nil {
		return out, processError(binary, err, out)
	}
	return out, nil
}

func (f *ffmpeg) Version(ctx context.Context) (skills.Version, error) {
	out, err := f.run(ctx, f.binary, "-version")
	if err != nil {
		return skills.Version{}, err
	}
	return skills.ParseVersion(out)
}

func (f *ffmpeg) Formats(ctx context.Context) (map[string]string, error) {
	out, err := f.run(ctx, f.binary, "-formats")
	if err != nil {
		return nil, err
	}
	return skills.ParseFormats(out)
}

func (f *ffmpeg) codecs(ctx context.Context, flag string) (skills.Codecs, error) {
	out, err := f.run(ctx, f.binary, flag)
	if err != nil {
		return skills.Codecs{}, err
	}
	return skills.ParseCodecList(out)
}

func (f *ffmpeg) Encoders(ctx context.Context, kind skills.Kind) ([]string, error) {
	c, err := f.codecs(ctx, "-encoders")
	return c.Names(kind), err
}

func (f *ffmpeg) Decoders(ctx context.Context, kind skills.Kind) ([]string, error) {
	c, err := f.codecs(ctx, "-decoders")
	return c.Names(kind), err
}

func (f *ffmpeg) CanEncode(ctx context.Context, name string) (bool, error) {
	c, err := f.codecs(ctx, "-encoders")
	if err != nil {
		return false, err
	}
	return c.Has(name), nil
}

func (f *ffmpeg) CanDecode(ctx context.Context, name string) (bool, error) {
	c, err := f.codecs(ctx, "-decoders")
	if err != nil {
		return false, err
	}
	return c.Has(name), nil
}

func (f *ffmpeg) Progress(jobID string) (*parse.Snapshot, error) {
	jobID, err := checkProgressID(jobID)
	if err != nil {
		return nil, err
	}
	return parse.ReadProgress(f.tmpDir, jobID)
}

func (f *ffmpeg) Skills(ctx context.Context) (skills.Skills, error) {
	f.skillsLock.RLock()
	s := f.skills
	f.skillsLock.RUnlock()
	if s != nil {
		return *s, nil
	}
	if err := f.ReloadSkills(ctx); err != nil {
		return skills.Skills{}, err
	}
	f.skillsLock.RLock()
	defer f.skillsLock.RUnlock()
	return *f.skills, nil
}

// ReloadSkills queries the converter again. The cache is only replaced when
// every listing could be fetched and parsed.
func (f *ffmpeg) ReloadSkills(ctx context.Context) error {
	var s skills.Skills

	out, err := f.run(ctx, f.binary, "-version")
	if err != nil {
		return fmt.Errorf("reload skills: %w", err)
	}
	if s.FFmpeg, err = skills.ParseInfo(out); err != nil {
		return fmt.Errorf("reload skills: %w", err)
	}
	if s.Formats, err = f.Formats(ctx); err != nil {
		return fmt.Errorf("reload skills: %w", err)
	}
	if s.Encoders, err = f.codecs(ctx, "-encoders"); err != nil {
		return fmt.Errorf("reload skills: %w", err)
	}
	if s.Decoders, err = f.codecs(ctx, "-decoders"); err != nil {
		return fmt.Errorf("reload skills: %w", err)
	}

	f.skillsLock.Lock()
	f.skills = &s
	f.skillsLock.Unlock()
	f.logger.Info("ffmpeg %s: %d formats, %d audio / %d video encoders",
		s.FFmpeg.Version, len(s.Formats), len(s.Encoders.Audio), len(s.Encoders.Video))
	return nil
}
