// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析
//
// Package process runs a converter detached from the caller and feeds its
// combined stdout/stderr to a Parser line by line.

package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unicode/utf8"
)

// Process represents a process
type Process interface {
	Status() Status
	Start() error
	Stop(wait bool) error
	IsRunning() bool
	// Wait blocks until the current run has exited and returns its exit error.
	Wait() error
}

// Config for a process
type Config struct {
	Binary        string
	Args          []string
	Env           []string
	Parser        Parser
	OnStart       func()
	OnExit        func()
	OnStateChange func(from, to string)
	Logger        Logger
	Limiter       Limiter
}

// Status of a process
type Status struct {
	State    string
	States   States
	Order    string
	Duration time.Duration
	Time     time.Time
	ExitCode int
	CPU      struct {
		Current float64
		Limit   float64
	}
	Memory struct {
		Current uint64
		Limit   uint64
	}
}

// States cumulative counts
type States struct {
	Finished  uint64
	Starting  uint64
	Running   uint64
	Finishing uint64
	Failed    uint64
	Killed    uint64
}

// Logger interface
type Logger interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

type stateType string

const (
	stateFinished  stateType = "finished"
	stateStarting  stateType = "starting"
	stateRunning   stateType = "running"
	stateFinishing stateType = "finishing"
	stateFailed    stateType = "failed"
	stateKilled    stateType = "killed"
)

func (s stateType) String() string { return string(s) }

func (s stateType) IsRunning() bool {
	return s == stateStarting || s == stateRunning || s == stateFinishing
}

// ErrNotStarted is returned by Wait before the first Start.
var ErrNotStarted = errors.New("process not started")

type process struct {
	binary string
	args   []string
	env    []string
	cmd    *exec.Cmd
	pid    int32
	output io.ReadCloser

	state struct {
		state    stateType
		time     time.Time
		states   States
		exitCode int
		lock     sync.Mutex
	}
	order struct {
		order string
		lock  sync.Mutex
	}
	run struct {
		done chan struct{}
		err  error
		lock sync.Mutex
	}
	parser        Parser
	killTimer     *time.Timer
	killTimerLock sync.Mutex
	logger        Logger
	limits        Limiter
	callbacks     struct {
		onStart       func()
		onExit        func()
		onStateChange func(from, to string)
		lock          sync.Mutex
	}
}

// New creates a new process
func New(config Config) (Process, error) {
	p := &process{
		binary: config.Binary,
		args:   config.Args,
		env:    config.Env,
		parser: config.Parser,
		logger: config.Logger,
		limits: config.Limiter,
	}

	if len(p.binary) == 0 {
		return nil, fmt.Errorf("no valid binary given")
	}

	if p.parser == nil {
		p.parser = &nullParser{}
	}

	if p.logger == nil {
		p.logger = &nopLogger{}
	}

	if p.limits == nil {
		p.limits = NewSysLimiter()
	}

	p.order.order = "stop"
	p.initState(stateFinished)
	p.callbacks.onStart = config.OnStart
	p.callbacks.onExit = config.OnExit
	p.callbacks.onStateChange = config.OnStateChange

	return p, nil
}

func (p *process) initState(state stateType) {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()
	p.state.state = state
	p.state.time = time.Now()
}

func (p *process) setState(state stateType) error {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()

	prevState := p.state.state
	failed := false

	switch p.state.state {
	case stateFinished, stateFailed, stateKilled:
		if state == stateStarting {
			p.state.state = state
			p.state.states.Starting++
		} else {
			failed = true
		}
	case stateStarting:
		switch state {
		case stateRunning:
			p.state.states.Running++
		case stateFailed:
			p.state.states.Failed++
		default:
			failed = true
		}
	case stateRunning:
		switch state {
		case stateFinished:
			p.state.states.Finished++
		case stateFinishing:
			p.state.states.Finishing++
		case stateFailed:
			p.state.states.Failed++
		case stateKilled:
			p.state.states.Killed++
		default:
			failed = true
		}
	case stateFinishing:
		switch state {
		case stateFinished:
			p.state.states.Finished++
		case stateFailed:
			p.state.states.Failed++
		case stateKilled:
			p.state.states.Killed++
		default:
			failed = true
		}
	default:
		return fmt.Errorf("unhandled state: %s", p.state.state)
	}

	if failed {
		return fmt.Errorf("can't change from %s to %s", p.state.state, state)
	}

	p.state.state = state
	p.state.time = time.Now()
	if p.callbacks.onStateChange != nil {
		go p.callbacks.onStateChange(prevState.String(), p.state.state.String())
	}
	return nil
}

func (p *process) getState() stateType {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()
	return p.state.state
}

func (p *process) isRunning() bool {
	return p.getState().IsRunning()
}

func (p *process) Status() Status {
	cpu, memory := p.limits.Current()
	cpuLimit, memoryLimit := p.limits.Limits()

	p.state.lock.Lock()
	stateTime := p.state.time
	stateString := p.state.state.String()
	states := p.state.states
	exitCode := p.state.exitCode
	p.state.lock.Unlock()

	p.order.lock.Lock()
	order := p.order.order
	p.order.lock.Unlock()

	s := Status{
		State:    stateString,
		States:   states,
		Order:    order,
		Duration: time.Since(stateTime),
		Time:     stateTime,
		ExitCode: exitCode,
	}
	s.CPU.Current = cpu
	s.CPU.Limit = cpuLimit
	s.Memory.Current = memory
	s.Memory.Limit = memoryLimit
	return s
}

func (p *process) IsRunning() bool {
	return p.isRunning()
}

func (p *process) Start() error {
	p.order.lock.Lock()
	defer p.order.lock.Unlock()

	if p.order.order == "start" && p.isRunning() {
		return nil
	}
	p.order.order = "start"
	return p.start()
}

func (p *process) start() error {
	if p.isRunning() {
		return nil
	}

	p.setState(stateStarting)

	done := make(chan struct{})
	p.run.lock.Lock()
	p.run.done = done
	p.run.err = nil
	p.run.lock.Unlock()

	fail := func(err error) error {
		p.setState(stateFailed)
		p.parser.Parse(err.Error())
		p.finishRun(err)
		return err
	}

	p.cmd = exec.Command(p.binary, p.args...)
	p.cmd.Env = p.env

	// stdout 与 stderr 合并到同一个管道
	r, w, err := os.Pipe()
	if err != nil {
		return fail(err)
	}
	p.cmd.Stdout = w
	p.cmd.Stderr = w

	if err := p.cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return fail(err)
	}
	w.Close()
	p.output = r

	p.pid = int32(p.cmd.Process.Pid)
	if err := p.limits.Start(int(p.pid)); err != nil {
		p.logger.Debug("limiter for pid %d: %v", p.pid, err)
	}

	p.setState(stateRunning)
	p.logger.Debug("started %s (pid %d)", p.binary, p.pid)

	if p.callbacks.onStart != nil {
		go p.callbacks.onStart()
	}

	go p.reader()

	return nil
}

func (p *process) Stop(wait bool) error {
	p.order.lock.Lock()
	defer p.order.lock.Unlock()

	if p.order.order == "stop" {
		return nil
	}
	p.order.order = "stop"
	return p.stop(wait)
}

func (p *process) stop(wait bool) error {
	if !p.isRunning() {
		return nil
	}
	if p.getState() == stateFinishing {
		return nil
	}

	p.setState(stateFinishing)

	var err error
	if runtime.GOOS == "windows" {
		err = p.cmd.Process.Kill()
	} else {
		err = p.cmd.Process.Signal(os.Interrupt)
		if err != nil {
			err = p.cmd.Process.Kill()
		} else {
			p.killTimerLock.Lock()
			p.killTimer = time.AfterFunc(5*time.Second, func() {
				p.cmd.Process.Kill()
			})
			p.killTimerLock.Unlock()
		}
	}

	if err != nil {
		p.parser.Parse(err.Error())
		p.setState(stateFailed)
		return err
	}

	if wait {
		p.Wait()
	}
	return nil
}

func (p *process) Wait() error {
	p.run.lock.Lock()
	done := p.run.done
	p.run.lock.Unlock()

	if done == nil {
		return ErrNotStarted
	}
	<-done

	p.run.lock.Lock()
	defer p.run.lock.Unlock()
	return p.run.err
}

func (p *process) finishRun(err error) {
	p.run.lock.Lock()
	p.run.err = err
	if p.run.done != nil {
		select {
		case <-p.run.done:
		default:
			close(p.run.done)
		}
	}
	p.run.lock.Unlock()
}

func (p *process) reader() {
	scanner := bufio.NewScanner(p.output)
	scanner.Split(scanLine)

	p.parser.ResetStats()
	p.parser.ResetLog()

	for scanner.Scan() {
		p.parser.Parse(scanner.Text())
	}
	p.output.Close()

	p.waiter()
}

func (p *process) waiter() {
	err := p.cmd.Wait()
	exitCode := 0
	if err != nil {
		var exiterr *exec.ExitError
		if errors.As(err, &exiterr) {
			status := exiterr.Sys().(syscall.WaitStatus)
			exitCode = status.ExitStatus()
			if status.Exited() {
				// ffmpeg 收到 SIGINT 后以 255 退出
				if exitCode == 255 && p.getState() == stateFinishing {
					p.setState(stateFinished)
					err = nil
				} else {
					p.setState(stateFailed)
				}
			} else {
				p.setState(stateKilled)
			}
		} else {
			p.setState(stateKilled)
		}
	} else {
		p.setState(stateFinished)
	}

	p.state.lock.Lock()
	p.state.exitCode = exitCode
	p.state.lock.Unlock()

	p.limits.Stop()

	p.killTimerLock.Lock()
	if p.killTimer != nil {
		p.killTimer.Stop()
		p.killTimer = nil
	}
	p.killTimerLock.Unlock()

	p.logger.Debug("%s (pid %d) exited with code %d", p.binary, p.pid, exitCode)

	p.callbacks.lock.Lock()
	onExit := p.callbacks.onExit
	p.callbacks.lock.Unlock()
	if onExit != nil {
		onExit()
	}

	p.finishRun(err)
}

func scanLine(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) {
		r, w := utf8.DecodeRune(data[start:])
		if r != '\n' && r != '\r' {
			break
		}
		start += w
	}

	for i := start; i < len(data); {
		r, w := utf8.DecodeRune(data[i:])
		if r == '\n' || r == '\r' {
			return i + w, data[start:i], nil
		}
		i += w
	}

	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

type nullParser struct{}

func (p *nullParser) Parse(line string) uint64 { return 1 }
func (p *nullParser) ResetStats()              {}
func (p *nullParser) ResetLog()                {}
func (p *nullParser) Log() []Line              { return nil }

type nopLogger struct{}

func (l *nopLogger) Info(format string, args ...interface{})  {}
func (l *nopLogger) Error(format string, args ...interface{}) {}
func (l *nopLogger) Debug(format string, args ...interface{}) {}
