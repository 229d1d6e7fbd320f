package zerolog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/goterm/term"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	messageWidth = 72
	callerWidth  = 16
)

// New builds a zerolog logger. Console output is colored with goterm unless
// colored is false; jsonFormat switches to plain JSON lines.
func New(level, timeLayout string, colored, jsonFormat bool) (*zerolog.Logger, error) {
	return NewWithWriter(os.Stdout, level, timeLayout, colored, jsonFormat)
}

// NewWithWriter is New with an explicit destination
func NewWithWriter(out io.Writer, level, timeLayout string, colored, jsonFormat bool) (*zerolog.Logger, error) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)

	var writer io.Writer = out
	if !jsonFormat {
		console := zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    !colored,
			TimeFormat: timeLayout,
		}
		if colored {
			console.FormatLevel = formatLevel
			console.FormatMessage = formatMessage
			console.FormatCaller = formatCaller
			console.FormatTimestamp = func(i any) string {
				return formatTimestamp(i, timeLayout)
			}
		}
		writer = console
	}

	log := zerolog.New(writer).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()

	return &log, nil
}

func formatLevel(i any) string {
	switch i {
	case zerolog.LevelTraceValue:
		return term.Cyanf("[TRC]")
	case zerolog.LevelDebugValue:
		return term.Cyanf("[DBG]")
	case zerolog.LevelInfoValue:
		return term.Greenf("[INF]")
	case zerolog.LevelWarnValue:
		return term.Yellowf("[WRN]")
	case zerolog.LevelErrorValue:
		return term.Redf("[ERR]")
	case zerolog.LevelFatalValue:
		return term.Redf("[FTL]")
	case zerolog.LevelPanicValue:
		return term.Redf("[PNC]")
	}
	return term.Whitef("[???]")
}

func formatMessage(i any) string {
	msg, ok := i.(string)
	if !ok || msg == "" {
		return ">"
	}
	if len(msg) > messageWidth {
		msg = msg[:messageWidth]
	}
	return term.Whitef("> %-*s", messageWidth, msg)
}

// formatCaller keeps file:line at a fixed width so columns line up
func formatCaller(i any) string {
	caller, ok := i.(string)
	if !ok || caller == "" {
		return ""
	}

	file, line, found := strings.Cut(filepath.Base(caller), ":")
	if !found {
		return term.Yellowf("[%s]", caller)
	}
	if len(file) > callerWidth {
		file = file[:callerWidth]
	}
	return term.Yellowf("[%-*s:%4s]", callerWidth, file, line)
}

func formatTimestamp(i any, layout string) string {
	raw, ok := i.(string)
	if !ok {
		return term.Cyanf("[%v]", i)
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		raw = ts.Local().Format(layout)
	}
	return term.Cyanf("[%s]", raw)
}
