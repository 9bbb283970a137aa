// Package log is a small leveled logger that writes one JSON object per line.
package log

import (
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sync"
)

// Level orders log severities; lower is more severe.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarn:
		return "warn"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "unknown"
	}
}

// ParseLevel parses error, warn, info, debug or trace.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "error":
		return LevelError, nil
	case "warn":
		return LevelWarn, nil
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "trace":
		return LevelTrace, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

// Fields are attached to every line written by a Logger.
type Fields map[string]interface{}

// Logger writes leveled JSON lines.
type Logger struct {
	mu     *sync.Mutex
	out    *stdlog.Logger
	level  *Level
	fields Fields
}

// New returns a Logger writing to w at the given level.
func New(w io.Writer, level Level) *Logger {
	lvl := level
	return &Logger{
		mu:    &sync.Mutex{},
		out:   stdlog.New(w, "", stdlog.Ldate|stdlog.Ltime),
		level: &lvl,
	}
}

// Discard returns a Logger that writes nothing.
func Discard() *Logger {
	return New(io.Discard, LevelError)
}

var std = New(os.Stdout, LevelInfo)

// Default returns the process-wide logger.
func Default() *Logger { return std }

// SetLevel changes the level of l and of every logger derived from it with With.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	*l.level = level
	l.mu.Unlock()
}

// With returns a logger that adds fields to every line.
func (l *Logger) With(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{mu: l.mu, out: l.out, level: l.level, fields: merged}
}

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level > *l.level {
		return
	}
	entry := make(map[string]interface{}, len(l.fields)+2)
	for k, v := range l.fields {
		entry[k] = v
	}
	entry["level"] = level.String()
	entry["msg"] = fmt.Sprintf(format, args...)
	b, err := json.Marshal(entry)
	if err != nil {
		b = []byte(fmt.Sprintf(`{"level":%q,"msg":%q}`, level.String(), entry["msg"]))
	}
	l.out.Print(string(b))
}

func (l *Logger) Error(format string, args ...interface{}) { l.logf(LevelError, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Trace(format string, args ...interface{}) { l.logf(LevelTrace, format, args...) }

func Error(format string, args ...interface{}) { std.Error(format, args...) }
func Warn(format string, args ...interface{})  { std.Warn(format, args...) }
func Info(format string, args ...interface{})  { std.Info(format, args...) }
func Debug(format string, args ...interface{}) { std.Debug(format, args...) }
