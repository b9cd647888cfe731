package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

const defaultTimeFormat = "15:04:05.000"

type Config struct {
	Env              string
	Level            string // overrides the env default when set
	AddSource        bool
	SourcePathLength int
	TimeFormat       string
	Output           io.Writer
}

// Logger is a wrapper around slog.Logger with additional methods
type Logger struct {
	*slog.Logger
}

// New builds a logger for the given environment and installs it as the slog default.
func New(config Config) (*Logger, error) {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.TimeFormat == "" {
		config.TimeFormat = defaultTimeFormat
	}

	handler, err := createHandler(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create log handler: %w", err)
	}

	l := slog.New(handler)
	slog.SetDefault(l)

	return &Logger{Logger: l}, nil
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

