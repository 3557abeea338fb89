package logger

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// With stores a child logger carrying fields, so request-scoped attributes
// such as request_id and user_id follow the call chain.
func With(ctx context.Context, fields ...any) context.Context {
	return WithLogger(ctx, From(ctx).With(fields...))
}

func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// From returns the request logger, or the process logger outside a request.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return LoggerWrapper()
}
