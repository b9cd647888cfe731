package logger

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

var envLevels = map[string]slog.Level{
	"dev":  slog.LevelDebug,
	"prod": slog.LevelInfo,
	"test": slog.LevelError,
}

// createHandler picks the handler for an environment: text with a short
// clock for dev, JSON for prod, and errors only for test.
func createHandler(config Config) (slog.Handler, error) {
	env := strings.ToLower(config.Env)
	if _, ok := envLevels[env]; !ok {
		return nil, fmt.Errorf("unknown environment: %s (use 'dev', 'prod', or 'test')", config.Env)
	}

	opts := &slog.HandlerOptions{
		Level:       parseLogLevel(env, config.Level),
		AddSource:   config.AddSource && env != "test",
		ReplaceAttr: replaceAttr(env, config),
	}

	if env == "prod" {
		return slog.NewJSONHandler(config.Output, opts), nil
	}
	return slog.NewTextHandler(config.Output, opts), nil
}

func parseLogLevel(env, explicit string) slog.Level {
	if explicit != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(explicit)); err == nil {
			return lvl
		}
	}
	if lvl, ok := envLevels[strings.ToLower(env)]; ok {
		return lvl
	}
	return slog.LevelInfo
}

func replaceAttr(env string, config Config) func([]string, slog.Attr) slog.Attr {
	return func(_ []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.TimeKey:
			if env != "dev" {
				return a
			}
			if t, ok := a.Value.Any().(time.Time); ok {
				a.Value = slog.StringValue(t.Format(config.TimeFormat))
			}
		case slog.SourceKey:
			if src, ok := a.Value.Any().(*slog.Source); ok && src != nil && config.SourcePathLength > 0 {
				src.File = shortenPath(src.File, config.SourcePathLength)
			}
		}
		return a
	}
}

// shortenPath keeps the last n segments of path.
func shortenPath(path string, n int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if n <= 0 || len(parts) <= n {
		return path
	}
	return strings.Join(parts[len(parts)-n:], "/")
}
