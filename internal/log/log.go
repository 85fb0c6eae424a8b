package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	logger     *slog.Logger
	loggerOnce sync.Once
	minLevel   = new(slog.LevelVar)
)

// initLogger installs a text handler on stderr unless Setup already ran.
// stdout is left alone so the CLI can stream documents there.
func initLogger() {
	loggerOnce.Do(func() {
		minLevel.Set(slog.LevelInfo)
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: minLevel}))
	})
}

// Setup configures the package logger.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// A nil writer means stderr.
func Setup(level, format string, w io.Writer) {
	initLogger()
	if w == nil {
		w = os.Stderr
	}
	SetLevel(ParseLevel(level))

	opts := &slog.HandlerOptions{Level: minLevel}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// ParseLevel converts a config string to a Level. Unknown strings map to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func SetLevel(l Level) {
	initLogger()
	minLevel.Set(toSlog(l))
}

func Debug(msg string, kv ...any) {
	logWithLevel(context.Background(), LevelDebug, msg, kv...)
}

func Info(msg string, kv ...any) {
	logWithLevel(context.Background(), LevelInfo, msg, kv...)
}

func Warn(msg string, kv ...any) {
	logWithLevel(context.Background(), LevelWarn, msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logWithLevel(context.Background(), LevelError, msg, extended...)
}

// FromContext returns the package logger enriched with chi's request id,
// when the context carries one.
func FromContext(ctx context.Context) *slog.Logger {
	initLogger()
	l := logger
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		l = l.With("request_id", reqID)
	}
	return l
}

func logWithLevel(ctx context.Context, level Level, msg string, kv ...any) {
	initLogger()
	lvl := toSlog(level)
	if !logger.Enabled(ctx, lvl) {
		return
	}
	// Odd trailing keys are dropped rather than rendered as !BADKEY.
	if len(kv)%2 != 0 {
		kv = kv[:len(kv)-1]
	}
	logger.Log(ctx, lvl, msg, kv...)
}

func toSlog(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
