// Package observability provides structured logging for the EIR gateway.
// Loggers are slog-based with optional OpenTelemetry trace correlation and
// automatic redaction of sensitive fields.
package observability

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// RequestLogger is a structured logger scoped to a single chat request.
// It wraps slog.Logger and adds request context and trace correlation.
type RequestLogger struct {
	logger          *slog.Logger
	requestID       string
	component       string
	redactSensitive bool
}

// NewRequestLogger creates a logger that stamps every entry with the request
// id and the producing component (orchestrator, executive, speaker, ...).
func NewRequestLogger(handler slog.Handler, requestID, component string) *RequestLogger {
	return &RequestLogger{
		logger:          slog.New(handler),
		requestID:       requestID,
		component:       component,
		redactSensitive: true,
	}
}

// Debug logs a debug-level message. Debug logs include all fields without
// redaction.
func (l *RequestLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.WithContext(ctx).Debug(msg, args...)
}

// Info logs an info-level message. Sensitive values are redacted.
func (l *RequestLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.redactSensitive {
		args = redactSensitiveData(args)
	}
	l.WithContext(ctx).Info(msg, args...)
}

// Warn logs a warning-level message. Sensitive values are redacted.
func (l *RequestLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.redactSensitive {
		args = redactSensitiveData(args)
	}
	l.WithContext(ctx).Warn(msg, args...)
}

// Error logs an error-level message. Sensitive values are redacted.
func (l *RequestLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.redactSensitive {
		args = redactSensitiveData(args)
	}
	l.WithContext(ctx).Error(msg, args...)
}

// WithContext creates a slog.Logger with request and trace correlation fields.
// Extracts trace_id and span_id from the OpenTelemetry span in the context
// when a recording span is present.
func (l *RequestLogger) WithContext(ctx context.Context) *slog.Logger {
	logger := l.logger.With(
		slog.String("request_id", l.requestID),
		slog.String("component", l.component),
	)

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()
		logger = logger.With(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}

	return logger
}

// NewJSONHandler creates a JSON log handler with the specified output and level.
// JSON format is intended for production deployments.
func NewJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
}

// NewTextHandler creates a text log handler with the specified output and level.
func NewTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
}

// redactSensitiveData redacts sensitive fields in log arguments. Sensitive
// fields are replaced with "[REDACTED]" to prevent key leakage via upstream
// provider overrides.
func redactSensitiveData(args []any) []any {
	if len(args)%2 != 0 {
		return args
	}

	sensitiveFields := map[string]bool{
		"apikey":     true,
		"secret":     true,
		"password":   true,
		"token":      true,
		"credential": true,
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 0; i < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			normalizedKey := strings.ToLower(strings.ReplaceAll(key, "_", ""))
			if sensitiveFields[normalizedKey] {
				redacted[i+1] = "[REDACTED]"
			}
		}
	}

	return redacted
}
