// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package job

import (
	"context"
	"sync"
	"time"

	"github.com/ZSC714725/sonus/internal/ffmpeg"
	"github.com/ZSC714725/sonus/internal/ffmpeg/parse"
	"github.com/ZSC714725/sonus/internal/logger"
	"github.com/ZSC714725/sonus/internal/process"

	"github.com/lithammer/shortuuid/v4"
)

// Job is a conversion job
type Job struct {
	ID        string
	Reference string
	Config    *Config
	CreatedAt int64
	UpdatedAt int64
	// Command is the rendered command line.
	Command string

	ff    ffmpeg.FFmpeg
	run   *ffmpeg.Job
	order string
	mu    sync.RWMutex
}

// Status returns process status. A job that was never started reports
// "finished" with order "stop".
func (j *Job) Status() process.Status {
	j.mu.RLock()
	run, order := j.run, j.order
	j.mu.RUnlock()
	if run == nil {
		return process.Status{State: "finished", Order: order}
	}
	s := run.Status()
	s.Order = order
	return s
}

// Progress reads the job's progress log. Before the first start it looks for
// a log left by an earlier run with the same id.
func (j *Job) Progress() (*parse.Snapshot, error) {
	j.mu.RLock()
	run := j.run
	j.mu.RUnlock()
	if run == nil {
		return j.ff.Progress(j.ID)
	}
	return run.Progress()
}

// Stats returns frame, size and speed counters of the current run
func (j *Job) Stats() parse.Stats {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.run == nil {
		return parse.Stats{}
	}
	return j.run.Stats()
}

// Log returns process log lines
func (j *Job) Log() []process.Line {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.run == nil {
		return nil
	}
	return j.run.Log()
}

// IsRunning returns whether the converter is running
func (j *Job) IsRunning() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.run != nil && j.run.IsRunning()
}

// Wait blocks until the current run exits.
func (j *Job) Wait() error {
	j.mu.RLock()
	run := j.run
	j.mu.RUnlock()
	if run == nil {
		return ErrNotLaunched
	}
	return run.Wait()
}

func (j *Job) start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.run != nil && j.run.IsRunning() {
		return nil
	}
	b, opts, err := j.Config.Build(j.ff)
	if err != nil {
		return err
	}
	run, err := b.Launch(ctx, opts)
	if err != nil {
		return err
	}
	j.run = run
	j.order = "start"
	return nil
}

func (j *Job) stop() error {
	j.mu.Lock()
	run := j.run
	j.order = "stop"
	j.mu.Unlock()

	if run == nil {
		return nil
	}
	return run.Stop(true)
}

// Store manages jobs in memory
type Store interface {
	Add(config *Config) (*Job, error)
	Get(id string) (*Job, error)
	List(ids []string, reference string) []*Job
	Update(id string, config *Config) (*Job, error)
	Delete(id string) error
	Start(id string) error
	Stop(id string) error
	Restart(id string) error
}

type store struct {
	ffmpeg ffmpeg.FFmpeg
	logger logger.Logger
	jobs   map[string]*Job
	mu     sync.RWMutex
}

// NewStore creates a job store
func NewStore(ff ffmpeg.FFmpeg, log logger.Logger) Store {
	if log == nil {
		log = logger.Nop()
	}
	return &store{
		ffmpeg: ff,
		logger: log,
		jobs:   make(map[string]*Job),
	}
}

// render validates the config and returns the command line it produces.
func (s *store) render(config *Config) (string, error) {
	b, opts, err := config.Build(s.ffmpeg)
	if err != nil {
		return "", err
	}
	return b.CommandLine(opts.RawArgs)
}

func (s *store) Add(config *Config) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(config.ID) == 0 {
		config.ID = shortuuid.New()
	}
	if _, exists := s.jobs[config.ID]; exists {
		return nil, ErrJobExists
	}

	command, err := s.render(config)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	j := &Job{
		ID:        config.ID,
		Reference: config.Reference,
		Config:    config,
		CreatedAt: now,
		UpdatedAt: now,
		Command:   command,
		ff:        s.ffmpeg,
		order:     "stop",
	}

	if config.Autostart {
		if err := j.start(context.Background()); err != nil {
			return nil, err
		}
	}

	s.jobs[config.ID] = j
	s.logger.Info("job %s added: %s", j.ID, command)
	return j, nil
}

func (s *store) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j, nil
}

func (s *store) List(ids []string, reference string) []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Job
	for _, j := range s.jobs {
		if len(reference) > 0 && j.Reference != reference {
			continue
		}
		if len(ids) > 0 {
			found := false
			for _, id := range ids {
				if j.ID == id {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, j)
	}
	return out
}

// Update replaces the config of a job. A running job is stopped and started
// again with the new config.
func (s *store) Update(id string, config *Config) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}

	config.ID = id
	config.Reference = j.Reference

	command, err := s.render(config)
	if err != nil {
		return nil, err
	}

	wasRunning := j.IsRunning()
	if wasRunning {
		if err := j.stop(); err != nil {
			s.logger.Error("job %s stop: %v", id, err)
		}
	}

	j.mu.Lock()
	j.Config = config
	j.Command = command
	j.UpdatedAt = time.Now().Unix()
	j.mu.Unlock()

	if wasRunning || config.Autostart {
		if err := j.start(context.Background()); err != nil {
			return nil, err
		}
	}
	return j, nil
}

func (s *store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}

	if err := j.stop(); err != nil {
		s.logger.Error("job %s stop: %v", id, err)
	}
	delete(s.jobs, id)
	s.logger.Info("job %s deleted", id)
	return nil
}

func (s *store) Start(id string) error {
	j, err := s.Get(id)
	if err != nil {
		return err
	}
	return j.start(context.Background())
}

func (s *store) Stop(id string) error {
	j, err := s.Get(id)
	if err != nil {
		return err
	}
	return j.stop()
}

func (s *store) Restart(id string) error {
	j, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := j.stop(); err != nil {
		return err
	}
	return j.start(context.Background())
}
