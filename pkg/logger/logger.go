package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Leveled logger shared by the service and the demo.
// Init(level) picks the threshold, SetFormat switches between text and json.

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu    sync.RWMutex
	base  = newBase(os.Stdout)
	level = LevelInfo
	// exit is swapped in tests so Fatalf does not kill the test binary
	exit = os.Exit
)

func newBase(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	return l
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Unknown values fall back to info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	case "fatal":
		level = LevelFatal
	default:
		level = LevelInfo
	}
}

// SetFormat selects "json" or "text" (default) output.
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	if strings.EqualFold(strings.TrimSpace(f), "json") {
		base.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	base.SetOutput(w)
}

func shouldLog(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= level
}

func Debugf(format string, v ...interface{}) {
	if !shouldLog(LevelDebug) {
		return
	}
	base.Debugf(format, v...)
}

func Infof(format string, v ...interface{}) {
	if !shouldLog(LevelInfo) {
		return
	}
	base.Infof(format, v...)
}

func Warnf(format string, v ...interface{}) {
	if !shouldLog(LevelWarn) {
		return
	}
	base.Warnf(format, v...)
}

func Errorf(format string, v ...interface{}) {
	if !shouldLog(LevelError) {
		return
	}
	base.Errorf(format, v...)
}

func Fatalf(format string, v ...interface{}) {
	base.Errorf(format, v...)
	exit(1)
}

// With returns an entry carrying structured fields, filtered by the current level.
func With(fields map[string]interface{}) *Entry {
	return &Entry{e: base.WithFields(logrus.Fields(fields))}
}

// Entry is a field-scoped logger.
type Entry struct {
	e *logrus.Entry
}

func (e *Entry) Debugf(format string, v ...interface{}) {
	if shouldLog(LevelDebug) {
		e.e.Debugf(format, v...)
	}
}

func (e *Entry) Infof(format string, v ...interface{}) {
	if shouldLog(LevelInfo) {
		e.e.Infof(format, v...)
	}
}

func (e *Entry) Warnf(format string, v ...interface{}) {
	if shouldLog(LevelWarn) {
		e.e.Warnf(format, v...)
	}
}

func (e *Entry) Errorf(format string, v ...interface{}) {
	if shouldLog(LevelError) {
		e.e.Errorf(format, v...)
	}
}

func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}
