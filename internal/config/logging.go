package config

import (
	"io"
	"log/slog"
)

// NewLogger builds the slog logger described by l. verbose forces debug level.
func (l LogConfig) NewLogger(w io.Writer, verbose bool) (*slog.Logger, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if l.Format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
