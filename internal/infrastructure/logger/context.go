package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// TenantIDKey is the context key for tenant ID
	TenantIDKey contextKey = "tenant_id"
	// UserIDKey is the context key for user ID
	UserIDKey contextKey = "user_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context. Returns a no-op logger
// when none is attached so callers never nil-check.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// attach stores an identifier under key and returns a logger carrying it
// as a field with the same name.
func attach(ctx context.Context, logger *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, key, value)
	enriched := logger.With(zap.String(string(key), value))
	return WithContext(ctx, enriched), enriched
}

// WithRequestID stores the request ID in the context and returns a logger
// carrying it as a field. The SQL trace logger picks the ID back up so
// query logs correlate with the request that issued them.
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return attach(ctx, logger, RequestIDKey, requestID)
}

// WithTenantID stores the tenant ID in the context and returns a logger
// carrying it as a field.
func WithTenantID(ctx context.Context, logger *zap.Logger, tenantID string) (context.Context, *zap.Logger) {
	return attach(ctx, logger, TenantIDKey, tenantID)
}

// WithUserID stores the user ID in the context and returns a logger
// carrying it as a field.
func WithUserID(ctx context.Context, logger *zap.Logger, userID string) (context.Context, *zap.Logger) {
	return attach(ctx, logger, UserIDKey, userID)
}

func stringFrom(ctx context.Context, key contextKey) string {
	if value, ok := ctx.Value(key).(string); ok {
		return value
	}
	return ""
}

// GetRequestID retrieves the request ID from context, or "" if absent.
func GetRequestID(ctx context.Context) string {
	return stringFrom(ctx, RequestIDKey)
}

// GetTenantID retrieves the tenant ID from context, or "" if absent.
func GetTenantID(ctx context.Context) string {
	return stringFrom(ctx, TenantIDKey)
}

// GetUserID retrieves the user ID from context, or "" if absent.
func GetUserID(ctx context.Context) string {
	return stringFrom(ctx, UserIDKey)
}
