package httpx

import (
	"context"

	"github.com/Kyoronginus/accountlink/internal/adapters/oidc"
)

type (
	requestIDKey struct{}
	callerKey    struct{}
)

// SetRequestID returns a child context carrying id.
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id set by the RequestID middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// SetCallerInContext returns a child context carrying the verified caller.
func SetCallerInContext(ctx context.Context, c oidc.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the verified caller and whether one was set.
func CallerFromContext(ctx context.Context) (oidc.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(oidc.Caller)
	return c, ok
}
