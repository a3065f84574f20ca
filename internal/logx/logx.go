// Package logx is a small leveled wrapper over the standard logger, used
// across the core so failure-semantics messages (dropped frames, evicted
// pending ops, timed-out presence) are consistently gated by LOG_LEVEL.
//
// Beyond the package-level Debug/Info/Error gate, logx also hands out
// component-scoped Loggers (New) with logfmt-style structured fields
// (Field/F), so a component that currently hand-composes its own
// "dispatch[%s]: " prefix on every call site can carry that prefix once
// instead of repeating it.
package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level represents the logging verbosity.
type Level int

const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
)

var current Level = LevelInfo

// Init sets the package level from the LOG_LEVEL environment variable.
func Init() {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		current = LevelDebug
	case "error":
		current = LevelError
	default:
		current = LevelInfo
	}
}

// SetLevel overrides the level directly.
func SetLevel(l Level) {
	current = l
}

// Debug logs a debug message (only if LOG_LEVEL=debug).
func Debug(format string, v ...interface{}) {
	if current >= LevelDebug {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Info logs an info message (if LOG_LEVEL=info or debug).
func Info(format string, v ...interface{}) {
	if current >= LevelInfo {
		log.Printf("[INFO] "+format, v...)
	}
}

// Error logs an error message (always logged).
func Error(format string, v ...interface{}) {
	log.Printf("[ERROR] "+format, v...)
}

// Field is one structured key=value pair a call site can attach to a log
// line instead of composing it into the format string by hand.
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

func appendFields(msg string, fields []Field) string {
	if len(fields) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		fmt.Fprint(&b, f.Value)
	}
	return b.String()
}

// Logger is a component-scoped wrapper: every line it emits is prefixed
// with component, so a package no longer needs to interpolate its own
// name into every format string it passes to Debug/Info/Error.
type Logger struct {
	component string
}

// New returns a Logger scoped to component (e.g. "dispatch[<trace-id>]").
func New(component string) *Logger {
	return &Logger{component: component}
}

// Debug logs at debug level, prefixed with the component name.
func (l *Logger) Debug(format string, v ...interface{}) {
	Debug("%s: "+format, append([]interface{}{l.component}, v...)...)
}

// Info logs at info level, prefixed with the component name.
func (l *Logger) Info(format string, v ...interface{}) {
	Info("%s: "+format, append([]interface{}{l.component}, v...)...)
}

// Error logs at error level, prefixed with the component name.
func (l *Logger) Error(format string, v ...interface{}) {
	Error("%s: "+format, append([]interface{}{l.component}, v...)...)
}

// InfoFields logs msg at info level with structured fields appended in
// logfmt style (key=value key2=value2), prefixed with the component name.
func (l *Logger) InfoFields(msg string, fields ...Field) {
	Info("%s: %s", l.component, appendFields(msg, fields))
}
