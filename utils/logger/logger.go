package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
)

const instrumentationName = "auth-bridge"

// Init initializes a JSON logger with optional OTel support
func Init(level string, enableOTel bool) *slog.Logger {
	logger := New(os.Stdout, level, enableOTel)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing JSON to w. With enableOTel, records are also
// exported through the global OTel logger provider.
func New(w io.Writer, level string, enableOTel bool) *slog.Logger {
	lvl := parseLevel(level)

	// Wrap JSONHandler with TraceContextHandler to add trace_id/span_id to stdout logs
	var handler slog.Handler = NewTraceContextHandler(
		slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}),
	)
	if enableOTel {
		handler = NewMultiHandler(handler, otelslog.NewHandler(
			instrumentationName,
			otelslog.WithLoggerProvider(global.GetLoggerProvider()),
		))
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// MultiHandler sends logs to multiple handlers
type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			_ = handler.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: newHandlers}
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &MultiHandler{handlers: newHandlers}
}
