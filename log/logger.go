// Package log provides the categorised logger used across seauto.
package log

import (
	"fmt"
	"io"
	"regexp"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus and prefixes every entry with a category, such as
// "poll" or "cdp:Execute", that can be filtered with a regexp.
type Logger struct {
	*logrus.Logger

	mu             sync.Mutex
	lastLogCall    int64
	debugOverride  bool
	categoryFilter *regexp.Regexp
}

// NewNullLogger returns a logger that discards everything.
func NewNullLogger() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return New(l, false, nil)
}

// New returns a Logger backed by logger. When debugOverride is set, debug
// entries are printed even if the underlying level is higher.
func New(logger *logrus.Logger, debugOverride bool, categoryFilter *regexp.Regexp) *Logger {
	return &Logger{
		Logger:         logger,
		debugOverride:  debugOverride,
		categoryFilter: categoryFilter,
	}
}

// NewWithLevel builds a text logger writing to out at the given level name.
func NewWithLevel(level string, out io.Writer) (*Logger, error) {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}
	l.SetLevel(lvl)

	return New(l, false, nil), nil
}

// FileOptions controls log file rotation.
type FileOptions struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewFileLogger returns a logger writing to a rotated file at path.
func NewFileLogger(path, level string, opts FileOptions) (*Logger, io.Closer, error) {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	l, err := NewWithLevel(level, w)
	if err != nil {
		_ = w.Close()
		return nil, nil, err
	}
	l.SetFormatter(&logrus.JSONFormatter{})

	return l, w, nil
}

// Tracef logs a trace message.
func (l *Logger) Tracef(category string, msg string, args ...interface{}) {
	l.Logf(logrus.TraceLevel, category, msg, args...)
}

// Debugf logs a debug message.
func (l *Logger) Debugf(category string, msg string, args ...interface{}) {
	l.Logf(logrus.DebugLevel, category, msg, args...)
}

// Errorf logs an error message.
func (l *Logger) Errorf(category string, msg string, args ...interface{}) {
	l.Logf(logrus.ErrorLevel, category, msg, args...)
}

// Infof logs an info message.
func (l *Logger) Infof(category string, msg string, args ...interface{}) {
	l.Logf(logrus.InfoLevel, category, msg, args...)
}

// Warnf logs a warning message.
func (l *Logger) Warnf(category string, msg string, args ...interface{}) {
	l.Logf(logrus.WarnLevel, category, msg, args...)
}

// Logf logs a message at level under category.
func (l *Logger) Logf(level logrus.Level, category string, msg string, args ...interface{}) {
	if l == nil || l.Logger == nil {
		return
	}
	if l.GetLevel() < level && !(l.debugOverride && level == logrus.DebugLevel) {
		return
	}
	if l.categoryFilter != nil && !l.categoryFilter.MatchString(category) {
		return
	}

	l.mu.Lock()
	now := time.Now().UnixNano() / int64(time.Millisecond)
	elapsed := now - l.lastLogCall
	if l.lastLogCall == 0 {
		elapsed = 0
	}
	l.lastLogCall = now
	l.mu.Unlock()

	entry := l.WithFields(logrus.Fields{
		"category": category,
		"elapsed":  fmt.Sprintf("%d ms", elapsed),
	})
	if l.GetLevel() < level && l.debugOverride {
		entry.Printf(msg, args...)
		return
	}
	entry.Logf(level, msg, args...)
}

// SetLevel sets the logger level from a level string.
func (l *Logger) SetLevel(level string) error {
	pl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.Logger.SetLevel(pl)
	return nil
}

// SetCategoryFilter only lets categories matching re through.
func (l *Logger) SetCategoryFilter(re *regexp.Regexp) {
	l.categoryFilter = re
}

// DebugMode returns true if the logger level is set to Debug or higher.
func (l *Logger) DebugMode() bool {
	return l.GetLevel() >= logrus.DebugLevel
}
