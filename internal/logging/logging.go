// Package logging provides structured logging infrastructure for
// paramsearch, with one log file per component under a timestamped run
// directory (log/<timestamp>/<component>.log) so master and per-rank
// executor logs stay separate.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/yourorg/paramsearch/internal/config"
)

// RunDir returns a fresh timestamped log directory under baseDir, creating
// it if necessary. Call once per process start and reuse for every
// component logger that process opens.
func RunDir(baseDir string) (string, error) {
	dir := filepath.Join(baseDir, time.Now().Format("20060102-150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// NewComponent opens (or appends to) <runDir>/<component>.log and returns a
// logger writing to both that file and stderr.
func NewComponent(cfg *config.Config, runDir, component string, level slog.Level) (*slog.Logger, io.Closer, error) {
	path := filepath.Join(runDir, component+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	w := io.MultiWriter(os.Stderr, file)
	handler := newHandler(cfg.Logging.Format, w, level)
	return slog.New(handler).With("component", component), file, nil
}

// NewDefault creates a default logger writing to stderr only.
func NewDefault() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// NewForTest creates a silent logger for tests.
func NewForTest() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// ParseLevel converts a config log level to slog.Level.
func ParseLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelInfo:
		return slog.LevelInfo
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(format config.LogFormat, w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case config.LogFormatText:
		return slog.NewTextHandler(w, opts)
	default:
		return slog.NewJSONHandler(w, opts)
	}
}

// WithRank returns a logger tagged with the executor rank it serves.
func WithRank(logger *slog.Logger, rank int) *slog.Logger {
	return logger.With("rank", rank)
}

// WithRun returns a logger tagged with the run/state-file identifier.
func WithRun(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}
