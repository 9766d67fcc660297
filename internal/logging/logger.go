package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const envLogLevel = "FHEVM_LOG_LEVEL"

// Logger prefixes every message with a component tag and forwards it to a
// shared logrus logger.
type Logger struct {
	prefix string
	base   *logrus.Logger
}

// New wraps base. A nil base logs to stderr at info level.
func New(prefix string, base *logrus.Logger) *Logger {
	if base == nil {
		base = logrus.New()
		base.SetOutput(os.Stderr)
	}
	return &Logger{prefix: tag(prefix), base: base}
}

// FromEnv builds a stderr logger whose level is read from FHEVM_LOG_LEVEL.
// Unknown levels fall back to info.
func FromEnv(prefix string) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if raw := strings.TrimSpace(os.Getenv(envLogLevel)); raw != "" {
		if lvl, err := logrus.ParseLevel(raw); err == nil {
			base.SetLevel(lvl)
		}
	}
	return New(prefix, base)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{base: base}
}

// Named derives a logger sharing the same sink with a nested prefix.
func (l *Logger) Named(prefix string) *Logger {
	if l == nil {
		return Discard()
	}
	return &Logger{prefix: l.prefix + tag(prefix), base: l.base}
}

// Base exposes the underlying logrus logger (used to plug into gin).
func (l *Logger) Base() *logrus.Logger {
	if l == nil {
		return nil
	}
	return l.base
}

func (l *Logger) Debug(format string, args ...any) {
	if l == nil {
		return
	}
	l.base.Debugf(l.prefix+format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	if l == nil {
		return
	}
	l.base.Infof(l.prefix+format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	if l == nil {
		return
	}
	l.base.Warnf(l.prefix+format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	if l == nil {
		return
	}
	l.base.Errorf(l.prefix+format, args...)
}

// Err logs err at error level.
func (l *Logger) Err(err error) {
	if l == nil || err == nil {
		return
	}
	l.base.Error(l.prefix + err.Error())
}

func tag(prefix string) string {
	if prefix == "" {
		return ""
	}
	return "[" + prefix + "] "
}
