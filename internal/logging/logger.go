package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vidsub/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	// Console receives human-facing output. Defaults to stdout.
	Console io.Writer
	// FilePath, when set, receives a JSON copy of every record regardless of Format.
	FilePath string
	// Development adds file:line to every record. Debug level implies it.
	Development bool
}

type handlerFactory func(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler

var formats = map[string]handlerFactory{
	"":        newConsoleHandler,
	"console": newConsoleHandler,
	"json":    newJSONHandler,
}

// New builds a logger writing opts.Format to the console and, with FilePath,
// JSON lines to that file as well.
func New(opts Options) (*slog.Logger, error) {
	build, ok := formats[strings.ToLower(strings.TrimSpace(opts.Format))]
	if !ok {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
	level := parseLevel(opts.Level)
	addSource := opts.Development || level <= slog.LevelDebug

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	handlers := []slog.Handler{build(console, level, addSource)}

	if path := strings.TrimSpace(opts.FilePath); path != "" {
		file, err := openLogFile(path)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, newJSONHandler(file, level, addSource))
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0]), nil
	}
	return slog.New(newFanoutHandler(handlers...)), nil
}

// NewFromConfig applies [logging] and writes the file copy to
// <log_dir>/vidsub.log. A nil config yields an info-level console logger.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{})
	}
	opts := Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		opts.FilePath = filepath.Join(dir, "vidsub.log")
	}
	return New(opts)
}

// parseLevel accepts slog's names in any case plus "warning"; anything
// unrecognized is info.
func parseLevel(value string) slog.Level {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "warning") {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
