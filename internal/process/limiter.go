// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package process

import (
	"sync"

	gopsutilprocess "github.com/shirou/gopsutil/v3/process"
)

// Limiter samples resource usage of a running converter. Limits reports the
// peak values observed during the current run.
type Limiter interface {
	Start(pid int) error
	Stop()
	Current() (cpu float64, memory uint64)
	Limits() (cpu float64, memory uint64)
}

type nullLimiter struct{}

// NewNullLimiter returns a no-op limiter
func NewNullLimiter() Limiter {
	return &nullLimiter{}
}

func (l *nullLimiter) Start(pid int) error        { return nil }
func (l *nullLimiter) Stop()                      {}
func (l *nullLimiter) Current() (float64, uint64) { return 0, 0 }
func (l *nullLimiter) Limits() (float64, uint64)  { return 0, 0 }

// sysLimiter 使用 gopsutil 采集进程 CPU 和内存
type sysLimiter struct {
	mu      sync.Mutex
	proc    *gopsutilprocess.Process
	peakCPU float64
	peakMem uint64
}

// NewSysLimiter 创建基于 gopsutil 的采样器
func NewSysLimiter() Limiter {
	return &sysLimiter{}
}

func (l *sysLimiter) Start(pid int) error {
	proc, err := gopsutilprocess.NewProcess(int32(pid))
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.proc = proc
	l.peakCPU = 0
	l.peakMem = 0
	return nil
}

func (l *sysLimiter) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.proc = nil
}

func (l *sysLimiter) Current() (cpu float64, memory uint64) {
	l.mu.Lock()
	proc := l.proc
	l.mu.Unlock()
	if proc == nil {
		return 0, 0
	}
	if pct, err := proc.CPUPercent(); err == nil {
		cpu = pct
	}
	if info, err := proc.MemoryInfo(); err == nil && info != nil {
		memory = info.RSS
	}

	l.mu.Lock()
	if cpu > l.peakCPU {
		l.peakCPU = cpu
	}
	if memory > l.peakMem {
		l.peakMem = memory
	}
	l.mu.Unlock()
	return cpu, memory
}

func (l *sysLimiter) Limits() (float64, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peakCPU, l.peakMem
}
