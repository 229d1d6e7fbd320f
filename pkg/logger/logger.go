// Package logger defines the logging contract shared by every tradesim component.
package logger

import (
	"fmt"
	"strings"
)

type Level int8

const (
	Disabled   Level = -1   // Disabled turns logging off.
	TraceLevel Level = iota // TraceLevel is used for per-tick diagnostics.
	DebugLevel              // DebugLevel is used for debugging information.
	InfoLevel               // InfoLevel is used for lifecycle messages.
	WarnLevel               // WarnLevel is used for recoverable upstream failures.
	ErrorLevel              // ErrorLevel is used for failed operations.
	FatalLevel              // FatalLevel logs and exits the program.
	PanicLevel              // PanicLevel logs and panics.
	NoLevel                 // NoLevel logs without a level.
)

// Fields is a set of structured key-value pairs attached to a log entry
type Fields = map[string]any

type Logger interface {
	// Derived loggers carrying structured context
	WithField(key string, value any) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger

	Print(args ...any)
	Trace(args ...any)
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Fatal(args ...any)
	Panic(args ...any)

	Printf(format string, args ...any)
	Tracef(format string, args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
	Panicf(format string, args ...any)

	SetLevel(level Level)
	GetLevel() Level
}

// ParseLevel converts a level name such as "debug" or "warn" into a Level
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "disabled", "off":
		return Disabled, nil
	case "trace":
		return TraceLevel, nil
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	case "panic":
		return PanicLevel, nil
	}
	return NoLevel, fmt.Errorf("unknown log level %q", name)
}
