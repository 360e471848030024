package logs

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

const logFile = "lantern.log"

// FileLogger returns a JSON logger appending to the lantern.log audit trail.
// Every run appends; operators rotate the file themselves.
func FileLogger() (*slog.Logger, error) {
	f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelDebug,
	}

	return slog.New(slog.NewJSONHandler(f, opts)), nil
}

func ConsoleLogger() *slog.Logger {
	w := os.Stderr

	logger := slog.New(tint.NewHandler(w, nil))

	// set global logger with custom options
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.Kitchen,
		}),
	))
	return logger
}
