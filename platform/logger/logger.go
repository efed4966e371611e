// Package logger wraps log/slog with the conventions used by the CRM
// services: JSON in deployed environments, text while developing, and
// request-scoped attributes pulled from the context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

type ctxKey int

const (
	requestIDCtxKey ctxKey = iota
	userIDCtxKey
)

// Logger is a slog.Logger with a few domain helpers.
type Logger struct {
	*slog.Logger
}

// Options configures NewWithOptions. Zero values are usable.
type Options struct {
	// Env selects the output format. "development" gets text, anything else JSON.
	Env string
	// Level overrides the default level (debug in development, info elsewhere).
	Level string
	// Writer defaults to stdout.
	Writer io.Writer
}

// NewWithOptions builds a logger from opts.
func NewWithOptions(opts Options) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	dev := strings.EqualFold(opts.Env, "development")
	level := slog.LevelInfo
	if dev {
		level = slog.LevelDebug
	}
	if parsed, ok := parseLevel(opts.Level); ok {
		level = parsed
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if dev {
		return &Logger{Logger: slog.New(slog.NewTextHandler(w, handlerOpts))}
	}
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, handlerOpts))}
}

// Discard drops every record.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func parseLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// ContextWithRequestID tags ctx so WithContext can add request_id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey, id)
}

// ContextWithUserID tags ctx so WithContext can add user_id.
func ContextWithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDCtxKey, id)
}

// RequestIDFrom returns the request id stored on ctx.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey).(string)
	return id
}

// With returns a child logger carrying args.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithContext returns a logger carrying request_id and user_id from ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	var attrs []any
	if id := RequestIDFrom(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if id, _ := ctx.Value(userIDCtxKey).(string); id != "" {
		attrs = append(attrs, slog.String("user_id", id))
	}
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}

// RequestEntry describes one served HTTP request.
type RequestEntry struct {
	Method   string
	Path     string
	Status   int
	Latency  time.Duration
	ClientIP string
	Err      error
}

// Request logs e at info, or at error when it carries a failure.
func (l *Logger) Request(e RequestEntry) {
	attrs := []any{
		slog.String("method", e.Method),
		slog.String("path", e.Path),
		slog.Int("status", e.Status),
		slog.Float64("latency_ms", float64(e.Latency.Microseconds())/1000),
		slog.String("client_ip", e.ClientIP),
	}
	if e.Err != nil {
		l.Error("http_error", append(attrs, slog.String("error", e.Err.Error()))...)
		return
	}
	l.Info("http_request", attrs...)
}
