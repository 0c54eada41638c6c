// Package log is the package-level logging facade. Callers use the
// Debugf/Infof/Warnf/Errorf helpers; the backing Logger can be swapped with
// SetLogger (tests install a silent one).
package log

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the minimal leveled logger the facade delegates to.
type Logger interface {
	Errorf(format string, args ...interface{})
	Error(args ...interface{})
	Warnf(format string, args ...interface{})
	Warn(args ...interface{})
	Debugf(format string, args ...interface{})
	Debug(args ...interface{})
	Infof(format string, args ...interface{})
	Info(args ...interface{})
}

var (
	mu  sync.RWMutex
	log Logger = newLogrus(os.Stderr, "info", "text")
)

// SetLogger replaces the package logger.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	log = l
}

// GetLogger returns the package logger.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Configure installs a logrus logger writing to w at level in the given
// format ("text" or "json").
func Configure(w io.Writer, level, format string) error {
	if _, err := logrus.ParseLevel(level); err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}
	switch format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	SetLogger(newLogrus(w, level, format))
	return nil
}

func newLogrus(w io.Writer, level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	}
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// Silent is a Logger that discards everything.
type Silent struct{}

func (Silent) Errorf(string, ...interface{}) {}
func (Silent) Error(...interface{})          {}
func (Silent) Warnf(string, ...interface{})  {}
func (Silent) Warn(...interface{})           {}
func (Silent) Debugf(string, ...interface{}) {}
func (Silent) Debug(...interface{})          {}
func (Silent) Infof(string, ...interface{})  {}
func (Silent) Info(...interface{})           {}

func Errorf(format string, args ...interface{}) {
	GetLogger().Errorf(format, args...)
}

func Error(args ...interface{}) {
	GetLogger().Error(args...)
}

func Warnf(format string, args ...interface{}) {
	GetLogger().Warnf(format, args...)
}

func Warn(args ...interface{}) {
	GetLogger().Warn(args...)
}

func Debugf(format string, args ...interface{}) {
	GetLogger().Debugf(format, args...)
}

func Debug(args ...interface{}) {
	GetLogger().Debug(args...)
}

func Infof(format string, args ...interface{}) {
	GetLogger().Infof(format, args...)
}

func Info(args ...interface{}) {
	GetLogger().Info(args...)
}
