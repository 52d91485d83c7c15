package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey struct{}

var loggerCtxKey = contextKey{}

// Get extracts a logger from the context.
// If no logger is found in the context, it returns the global logger.
// This function is safe to call with a nil context.
func Get(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return zap.L()
	}
	if ctxLogger, ok := ctx.Value(loggerCtxKey).(*zap.Logger); ok && ctxLogger != nil {
		return ctxLogger
	}
	return zap.L()
}

// With returns a new context with the provided logger attached.
func With(ctx context.Context, log *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerCtxKey, log)
}
