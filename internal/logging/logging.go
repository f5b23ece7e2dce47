// Package logging builds the zerolog loggers shared by the entrypoints.
package logging

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// New returns a JSON logger at level; an unparsable level falls back to info.
func New(level string) zerolog.Logger {
	return NewWithWriter(os.Stdout, level)
}

func NewWithWriter(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// WithRequest attaches a child logger carrying a fresh request id to ctx.
func WithRequest(ctx context.Context, base zerolog.Logger, fields map[string]any) context.Context {
	l := base.With().Str("request_id", uuid.NewString()).Fields(fields).Logger()
	return l.WithContext(ctx)
}
