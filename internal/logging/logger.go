// Package logging provides the leveled, optionally colored logger used by
// every muxtag package.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/backmassage/muxtag/internal/config"
	"github.com/backmassage/muxtag/internal/term"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

func parseLevel(s string) level {
	switch s {
	case config.LevelDebug:
		return levelDebug
	case config.LevelWarn:
		return levelWarn
	case config.LevelError:
		return levelError
	}
	return levelInfo
}

// Logger provides leveled, optionally colored logging with an optional file
// sink. It is safe for concurrent use: pad-linking callbacks log from engine
// threads.
type Logger struct {
	mu     sync.Mutex
	min    level
	out    io.Writer
	errOut io.Writer
	file   *os.File
}

// NewLogger configures terminal colors from cfg and optionally opens
// cfg.LogFile for appending. Call Close() when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)
	return newLogger(cfg, os.Stdout, os.Stderr)
}

func newLogger(cfg *config.Config, out, errOut io.Writer) (*Logger, error) {
	l := &Logger{min: parseLevel(cfg.LogLevel), out: out, errOut: errOut}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
	}
	return l, nil
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *Logger) line(lv level, name, color, text string) {
	if lv < l.min {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05")
	l.mu.Lock()
	defer l.mu.Unlock()
	plain := ts + " [" + name + "] " + text + "\n"
	out := l.out
	if lv == levelError {
		out = l.errOut
	}
	if color != "" {
		_, _ = io.WriteString(out, ts+" "+color+"["+name+"]"+term.NC+" "+text+"\n")
	} else {
		_, _ = io.WriteString(out, plain)
	}
	if l.file != nil {
		_, _ = io.WriteString(l.file, plain)
	}
}

// Debug logs at DEBUG level (cyan); dropped unless the level is debug.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.line(levelDebug, "DEBUG", term.Cyan, fmt.Sprintf(format, args...))
}

// Info logs at INFO level (blue).
func (l *Logger) Info(format string, args ...interface{}) {
	l.line(levelInfo, "INFO", term.Blue, fmt.Sprintf(format, args...))
}

// Success logs at SUCCESS level (green). It is filtered like INFO.
func (l *Logger) Success(format string, args ...interface{}) {
	l.line(levelInfo, "SUCCESS", term.Green, fmt.Sprintf(format, args...))
}

// Warn logs at WARN level (yellow).
func (l *Logger) Warn(format string, args ...interface{}) {
	l.line(levelWarn, "WARN", term.Yellow, fmt.Sprintf(format, args...))
}

// Error logs at ERROR level (red), to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.line(levelError, "ERROR", term.Red, fmt.Sprintf(format, args...))
}
