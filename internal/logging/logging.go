package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Log source tags used in structured logger contexts.
const (
	SourceApp      = "app"
	SourceExtract  = "extract"
	SourcePipeline = "pipeline"
	SourceRules    = "rules"
	SourceStore    = "store"
	SourceServer   = "server"
	SourceQueue    = "queue"
)

// Options configures the root logger.
type Options struct {
	Level  string // debug | info | warn | error
	Format string // json | logfmt | text
	Output io.Writer
}

// ParseLevel maps a level name onto slog; unknown names fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func charmLevel(l slog.Level) charmlog.Level {
	switch {
	case l <= slog.LevelDebug:
		return charmlog.DebugLevel
	case l <= slog.LevelInfo:
		return charmlog.InfoLevel
	case l <= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.ErrorLevel
	}
}

// New builds the root *slog.Logger. The logfmt format uses charmbracelet/log as the handler.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	level := ParseLevel(opts.Level)

	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case "logfmt":
		h = charmlog.NewWithOptions(out, charmlog.Options{
			TimeFunction:    charmlog.NowUTC,
			TimeFormat:      time.RFC3339Nano,
			Level:           charmLevel(level),
			ReportTimestamp: true,
			Formatter:       charmlog.LogfmtFormatter,
		})
	case "text":
		h = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	default:
		h = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	}
	return slog.New(h)
}

// Logger returns a child logger tagged with the provided source.
func Logger(base *slog.Logger, source string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("source", source)
}
