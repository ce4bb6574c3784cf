package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/robotctl/internal/infrastructure/config"
)

// serviceName is attached to every record.
const serviceName = "robotctl"

// levels maps config level names to slog levels. Unknown names mean info.
var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Logger is the structured logger passed to every robotctl component.
// It is safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing to the destination named by cfg.Output.
//
// Only "stdout" selects standard output; anything else, including the
// empty string, means stderr. Commands that serve MCP over stdio must not
// log to stdout.
//
// Parameters:
//   - cfg: Logging configuration (level, format, output)
//   - version: Build version attached to every record
//
// Returns:
//   - *Logger: Configured logger
func New(cfg config.LoggingConfig, version string) *Logger {
	var out io.Writer = os.Stderr
	if strings.EqualFold(strings.TrimSpace(cfg.Output), "stdout") {
		out = os.Stdout
	}
	return NewWithWriter(cfg, version, out)
}

// NewWithWriter creates a Logger writing to w, ignoring cfg.Output.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	return &Logger{Logger: slog.New(h).With("service", serviceName, "version", version)}
}

func parseLevel(name string) slog.Level {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(name))]; ok {
		return l
	}
	return slog.LevelInfo
}

// With returns a child Logger carrying args on every record, typically a
// "component" attribute.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// StdLogger adapts the Logger for libraries that only accept *log.Logger.
// Every line is logged at level.
func (l *Logger) StdLogger(level slog.Level) *log.Logger {
	return slog.NewLogLogger(l.Handler(), level)
}

// Default is the logger used when a component is constructed without one:
// JSON at info level on stderr.
func Default() *Logger {
	return New(config.LoggingConfig{}, "dev")
}
