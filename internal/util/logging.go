package util

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type loggerContextKey struct{}

// LogConfig controls the process-wide slog logger.
type LogConfig struct {
	Level   string
	Service string
	// Dir, when set, receives a copy of every record in <Dir>/<Service>.log.
	Dir string
}

// InitLogger configures the global slog logger with JSON output. Accepted
// levels are debug, info, warn and error; unknown input means info. The
// returned closer flushes the optional log file.
func InitLogger(cfg LogConfig) (*slog.Logger, io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if dir := strings.TrimSpace(cfg.Dir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create logs dir: %w", err)
		}
		name := strings.TrimSpace(cfg.Service)
		if name == "" {
			name = "service"
		}
		f, err := os.OpenFile(filepath.Join(dir, name+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closer = f
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     ParseLevel(cfg.Level),
		AddSource: true,
	})
	logger := slog.New(handler)
	if s := strings.TrimSpace(cfg.Service); s != "" {
		logger = logger.With("service", s)
	}
	slog.SetDefault(logger)
	return logger, closer, nil
}

// ParseLevel maps a config string onto a slog level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ContextWithLogger stores logger in ctx.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// LoggerFromContext returns the request-scoped logger, or slog.Default().
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// Fatal logs msg at error level and exits the process.
func Fatal(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error(msg, args...)
	os.Exit(1)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
