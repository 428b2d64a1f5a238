package cli

import (
	"io"
	"log/slog"
)

// SetupLogger installs a text slog handler on w as the default logger.
// Diagnostics go through slog; the build log goes through Output.
func SetupLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
