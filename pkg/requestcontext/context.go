// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// It defines context keys and getter/setter functions for values that are set
// by middleware but consumed by services. Keeping this package free of
// net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	donorID := requestcontext.DonorID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	donorIDKey     struct{}
	adminIDKey     struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyDonorID     = donorIDKey{}
	ContextKeyAdminID     = adminIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// DonorID retrieves the authenticated donor ID from the context.
// Returns the empty string if not set.
func DonorID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyDonorID).(string); ok {
		return id
	}
	return ""
}

// WithDonorID injects a donor ID into the context.
func WithDonorID(ctx context.Context, donorID string) context.Context {
	return context.WithValue(ctx, ContextKeyDonorID, donorID)
}

// AdminID retrieves the acting administrator ID from the context.
func AdminID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyAdminID).(string); ok {
		return id
	}
	return ""
}

// WithAdminID injects an administrator ID into the context.
func WithAdminID(ctx context.Context, adminID string) context.Context {
	return context.WithValue(ctx, ContextKeyAdminID, adminID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts such as CLI commands and tests that
// don't inject one.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the full HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
