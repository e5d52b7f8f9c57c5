package tepilora

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger returns a Logger backed by zerolog writing to w at
// the given level.
func NewZerologLogger(w io.Writer, level zerolog.Level) Logger {
	return &zerologLogger{
		log: zerolog.New(w).Level(level).With().Timestamp().Str("component", "tepilora").Logger(),
	}
}

// DefaultLogger returns the stderr zerolog logger used when Debug is
// enabled without an explicit Logger.
func DefaultLogger() Logger {
	return NewZerologLogger(os.Stderr, zerolog.DebugLevel)
}

func (l *zerologLogger) Debug(msg string, fields map[string]interface{}) {
	l.log.Debug().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Info(msg string, fields map[string]interface{}) {
	l.log.Info().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Warn(msg string, fields map[string]interface{}) {
	l.log.Warn().Fields(fields).Msg(msg)
}

func (l *zerologLogger) Error(msg string, fields map[string]interface{}) {
	l.log.Error().Fields(fields).Msg(msg)
}
