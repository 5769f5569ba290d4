package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr, "info", "text")
)

// Setup replaces the process logger. format is "text" (tint, colorised on a TTY) or "json".
func Setup(w io.Writer, level, format string) {
	l := newLogger(w, level, format)
	mu.Lock()
	logger = l
	mu.Unlock()
	slog.SetDefault(l)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal(w),
	}))
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to info.
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

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Logger returns the current process logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// With returns a logger scoped to a component.
func With(component string) *slog.Logger {
	return Logger().With("component", component)
}

func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }
func Info(msg string, args ...any)  { Logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger().Warn(msg, args...) }
func Error(msg string, args ...any) { Logger().Error(msg, args...) }

func DebugWithComponent(component, msg string, args ...any) { With(component).Debug(msg, args...) }
func InfoWithComponent(component, msg string, args ...any)  { With(component).Info(msg, args...) }
func WarnWithComponent(component, msg string, args ...any)  { With(component).Warn(msg, args...) }
func ErrorWithComponent(component, msg string, args ...any) { With(component).Error(msg, args...) }
