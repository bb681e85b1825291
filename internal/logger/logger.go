// Package logger provides a thin wrapper around zerolog.Logger used by every
// linewarden component.
//
// The Logger type embeds zerolog.Logger so all standard zerolog methods
// (Debug, Info, Warn, Error, etc.) are available directly on *Logger. Code
// passes *Logger by pointer and derives request-scoped loggers with With or
// FromContext.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is a thin wrapper around zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

// Output formats accepted by New.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// New constructs a logger writing to stderr at the given level ("debug",
// "info", "warn", "error") in the given format ("json" or "text").
func New(level, format string) (*Logger, error) {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level, format string) (*Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	switch strings.ToLower(format) {
	case "", FormatJSON:
	case FormatText:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: true}
	default:
		return nil, fmt.Errorf("invalid log format %q (want json or text)", format)
	}

	l := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &Logger{l}, nil
}

// Nop returns a *Logger that discards all log output.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// Component returns a child logger tagged with a "component" field.
func (l *Logger) Component(name string) *Logger {
	return &Logger{l.With().Str("component", name).Logger()}
}

// WithContext attaches l to ctx so FromContext can retrieve it.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.Logger.WithContext(ctx)
}

// FromContext extracts the logger stored in ctx by WithContext.
// If none was attached a disabled logger is returned, never nil.
func FromContext(ctx context.Context) *Logger {
	return &Logger{*log.Ctx(ctx)}
}
