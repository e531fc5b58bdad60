package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-home/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "grayhome"

// Logger is the structured logger shared by every component.
//
// Loggers derived with With or Component share one level, so SetLevel on
// any of them changes filtering for the whole process.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New creates a Logger from the logging section of config.yaml.
//
// Parameters:
//   - cfg: Level ("debug", "info", "warn", "error"), format ("json" or
//     "text") and output ("stdout", "stderr" or "discard")
//   - version: Build version attached to every entry
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	return newWithWriter(cfg, version, destination(cfg.Output))
}

// destination resolves the configured output name. Unknown names fall
// back to stdout.
func destination(name string) io.Writer {
	switch strings.ToLower(name) {
	case "stderr":
		return os.Stderr
	case "discard":
		return io.Discard
	default:
		return os.Stdout
	}
}

func newWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.Level))

	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: utcTime}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	l := slog.New(h).With("service", serviceName, "version", version)
	return &Logger{Logger: l, level: level}
}

// utcTime renders the record timestamp in UTC so entries line up with the
// activity ledger.
func utcTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.TimeValue(a.Value.Time().UTC().Truncate(time.Millisecond))
	}
	return a
}

// parseLevel maps a level name to slog.Level. Unrecognised names mean info.
func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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

// SetLevel changes the minimum level at runtime.
//
// Returns:
//   - error: If name is not one of debug, info, warn, warning, error
func (l *Logger) SetLevel(name string) error {
	switch strings.ToLower(name) {
	case "debug", "info", "warn", "warning", "error":
		l.level.Set(parseLevel(name))
		return nil
	default:
		return fmt.Errorf("unknown log level %q", name)
	}
}

// Level returns the current minimum level name in lower case.
func (l *Logger) Level() string {
	return strings.ToLower(l.level.Level().String())
}

// With returns a child logger carrying extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), level: l.level}
}

// Component tags entries with the subsystem that wrote them.
//
//	log.Component("broker").Info("connected") // component=broker
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default is used before configuration has been loaded.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// Discard returns a logger that drops everything. Intended for tests.
func Discard() *Logger {
	return newWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard)
}
