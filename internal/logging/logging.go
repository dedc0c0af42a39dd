// Package logging builds the slog logger used by the gcmodel commands.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mabhi256/gcmodel/internal/config"
)

// Logger is a *slog.Logger that may own a rotating file sink.
type Logger struct {
	*slog.Logger

	file *lumberjack.Logger
}

// New writes records to w and, when cfg.File is set, to a size-rotated file
// as well. The format is text unless cfg.Format is "json".
func New(w io.Writer, cfg config.LoggingConfig, level slog.Level) *Logger {
	l := &Logger{}

	if cfg.File != "" {
		l.file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		w = io.MultiWriter(w, l.file)
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l.Logger = slog.New(handler).With("app", "gcmodel")
	return l
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
