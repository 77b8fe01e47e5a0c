// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// Sonus - FFmpeg 命令构建与输出解析

package logger

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Logger provides a simple logging interface
type Logger interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

// Level 日志级别
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

// ParseLevel maps "debug", "info" and "error" to a Level. Unknown values fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

const (
	ansiReset = "\033[0m"
	ansiRed   = "\033[31m"
	ansiCyan  = "\033[36m"
	ansiGray  = "\033[90m"
)

type defaultLogger struct {
	prefix string
	level  Level
	color  bool
	out    *log.Logger
}

// New returns an info-level logger writing to stderr.
func New(prefix string) Logger {
	return NewWithLevel(prefix, LevelInfo, os.Stderr)
}

// NewWithLevel returns a logger that drops messages below level.
// Level tags are colored when w is a terminal.
func NewWithLevel(prefix string, level Level, w io.Writer) Logger {
	if prefix != "" && !strings.HasSuffix(prefix, " ") {
		prefix += " "
	}
	return &defaultLogger{
		prefix: prefix,
		level:  level,
		color:  isTerminal(w),
		out:    log.New(w, "", log.LstdFlags),
	}
}

func (l *defaultLogger) Info(format string, args ...interface{}) {
	l.emit(LevelInfo, "[INFO] ", ansiCyan, format, args)
}

func (l *defaultLogger) Error(format string, args ...interface{}) {
	l.emit(LevelError, "[ERROR] ", ansiRed, format, args)
}

func (l *defaultLogger) Debug(format string, args ...interface{}) {
	l.emit(LevelDebug, "[DEBUG] ", ansiGray, format, args)
}

func (l *defaultLogger) emit(level Level, tag, color, format string, args []interface{}) {
	if level < l.level {
		return
	}
	if l.color {
		tag = color + tag + ansiReset
	}
	l.out.Printf(tag+l.prefix+format, args...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Info(format string, args ...interface{})  {}
func (nopLogger) Error(format string, args ...interface{}) {}
func (nopLogger) Debug(format string, args ...interface{}) {}
