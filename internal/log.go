package internal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelError LogLevel = 1
	LogLevelInfo  LogLevel = 2
	LogLevelDebug LogLevel = 3
)

// Logger interface for leveled diagnostics. Probe results are printed to
// stdout by the Printer; the logger only ever writes to its own output.
type Logger interface {
	Error(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	SetLevel(level LogLevel)
	GetLevel() LogLevel
}

type logger struct {
	level LogLevel
	out   io.Writer
}

var globalLogger Logger = &logger{level: LogLevelInfo, out: os.Stderr}

// GetLogger returns the global logger instance
func GetLogger() Logger {
	return globalLogger
}

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(l Logger) {
	globalLogger = l
}

// SetLogLevel sets the log level for the global logger
func SetLogLevel(level LogLevel) {
	globalLogger.SetLevel(level)
}

// SetLogOutput redirects the global logger. A nil writer restores stderr.
func SetLogOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	if l, ok := globalLogger.(*logger); ok {
		l.out = w
	}
}

// ParseLogLevel maps the config spelling ("error", "info", "debug") to a level.
func ParseLogLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "error":
		return LogLevelError, nil
	case "", "info", "warn":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

func (l *logger) Error(msg string, args ...interface{}) {
	if l.level >= LogLevelError {
		l.log("ERROR", msg, args...)
	}
}

// Warn shares the info threshold; there is no separate warn level.
func (l *logger) Warn(msg string, args ...interface{}) {
	if l.level >= LogLevelInfo {
		l.log("WARN", msg, args...)
	}
}

func (l *logger) Info(msg string, args ...interface{}) {
	if l.level >= LogLevelInfo {
		l.log("INFO", msg, args...)
	}
}

func (l *logger) Debug(msg string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		l.log("DEBUG", msg, args...)
	}
}

func (l *logger) SetLevel(level LogLevel) {
	l.level = level
}

func (l *logger) GetLevel() LogLevel {
	return l.level
}

func (l *logger) log(level, msg string, args ...interface{}) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	formattedMsg := msg
	if len(args) > 0 {
		formattedMsg = fmt.Sprintf(msg, args...)
	}

	out := l.out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "[%s] %s %s\n", level, timestamp, formattedMsg)
}

func LogError(msg string, args ...interface{}) {
	globalLogger.Error(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	globalLogger.Warn(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	globalLogger.Info(msg, args...)
}

func LogDebug(msg string, args ...interface{}) {
	globalLogger.Debug(msg, args...)
}
