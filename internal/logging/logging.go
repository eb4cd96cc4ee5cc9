// Package logging configures the process-wide slog logger.
//
// Development builds get a colorized, human-readable handler; everything
// else gets JSON at Info so client debug logging (request/response lines)
// never reaches production output.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Setup builds a logger for the given mode and makes it the slog default.
// In development mode the handler logs at Debug with colors when w is a
// terminal; otherwise it emits JSON at Info.
func Setup(dev bool, w io.Writer) *slog.Logger {
	var handler slog.Handler
	if dev {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(w),
		})
	} else {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
