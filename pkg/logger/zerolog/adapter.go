package zerolog

import (
	"fmt"

	"github.com/raykavin/tradesim/pkg/logger"
	"github.com/rs/zerolog"
)

// Adapter exposes a zerolog logger through logger.Logger
type Adapter struct {
	*zerolog.Logger
}

// NewAdapter wraps a zerolog logger
func NewAdapter(log *zerolog.Logger) *Adapter {
	return &Adapter{log}
}

// NewNop returns an adapter that discards everything, used by tests
func NewNop() *Adapter {
	nop := zerolog.Nop()
	return &Adapter{&nop}
}

func (z *Adapter) derive(ctx zerolog.Context) logger.Logger {
	next := ctx.Logger()
	return &Adapter{&next}
}

// WithError implements logger.Logger.
func (z *Adapter) WithError(err error) logger.Logger {
	return z.derive(z.With().Err(err))
}

// WithField implements logger.Logger.
func (z *Adapter) WithField(key string, value any) logger.Logger {
	return z.derive(z.With().Interface(key, value))
}

// WithFields implements logger.Logger.
func (z *Adapter) WithFields(fields logger.Fields) logger.Logger {
	return z.derive(z.With().Fields(fields))
}

func (z *Adapter) Print(args ...any) { z.Logger.Print(args...) }
func (z *Adapter) Trace(args ...any) { z.Logger.Trace().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Debug(args ...any) { z.Logger.Debug().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Info(args ...any)  { z.Logger.Info().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Warn(args ...any)  { z.Logger.Warn().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Error(args ...any) { z.Logger.Error().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Fatal(args ...any) { z.Logger.Fatal().Msg(fmt.Sprint(args...)) }
func (z *Adapter) Panic(args ...any) { z.Logger.Panic().Msg(fmt.Sprint(args...)) }

func (z *Adapter) Printf(format string, args ...any) { z.Logger.Printf(format, args...) }
func (z *Adapter) Tracef(format string, args ...any) { z.Logger.Trace().Msgf(format, args...) }
func (z *Adapter) Debugf(format string, args ...any) { z.Logger.Debug().Msgf(format, args...) }
func (z *Adapter) Infof(format string, args ...any)  { z.Logger.Info().Msgf(format, args...) }
func (z *Adapter) Warnf(format string, args ...any)  { z.Logger.Warn().Msgf(format, args...) }
func (z *Adapter) Errorf(format string, args ...any) { z.Logger.Error().Msgf(format, args...) }
func (z *Adapter) Fatalf(format string, args ...any) { z.Logger.Fatal().Msgf(format, args...) }
func (z *Adapter) Panicf(format string, args ...any) { z.Logger.Panic().Msgf(format, args...) }

// SetLevel implements logger.Logger. The level is global to zerolog.
func (z *Adapter) SetLevel(level logger.Level) {
	zerolog.SetGlobalLevel(toZerologLevel(level))
}

// GetLevel implements logger.Logger.
func (z *Adapter) GetLevel() logger.Level {
	return toLevel(z.Logger.GetLevel())
}

var levels = map[logger.Level]zerolog.Level{
	logger.Disabled:   zerolog.Disabled,
	logger.NoLevel:    zerolog.NoLevel,
	logger.TraceLevel: zerolog.TraceLevel,
	logger.DebugLevel: zerolog.DebugLevel,
	logger.InfoLevel:  zerolog.InfoLevel,
	logger.WarnLevel:  zerolog.WarnLevel,
	logger.ErrorLevel: zerolog.ErrorLevel,
	logger.FatalLevel: zerolog.FatalLevel,
	logger.PanicLevel: zerolog.PanicLevel,
}

// toLevel converts zerolog.Level to logger.Level.
func toLevel(level zerolog.Level) logger.Level {
	for l, zl := range levels {
		if zl == level {
			return l
		}
	}
	return logger.NoLevel
}

// toZerologLevel converts logger.Level to zerolog.Level.
func toZerologLevel(level logger.Level) zerolog.Level {
	if zl, ok := levels[level]; ok {
		return zl
	}
	return zerolog.NoLevel
}
