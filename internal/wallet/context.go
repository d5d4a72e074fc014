package wallet

import (
	"context"

	"github.com/google/uuid"
)

type traceKey struct{}

// WithTraceID attaches a correlation id that events emitted on behalf of ctx will carry.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey{}, traceID)
}

// TraceIDFrom returns the correlation id attached to ctx, if any.
func TraceIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(traceKey{}).(string)
	return id, ok && id != ""
}

func traceID(ctx context.Context) string {
	if id, ok := TraceIDFrom(ctx); ok {
		return id
	}
	return uuid.NewString()
}
