package logger

import "context"

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// correlationKey is the key for the correlation ID in context.Context
var correlationKey = contextKey{}

// WithCorrelation returns a new context carrying the given correlation ID.
// Every public operation of the engine receives its correlation ID explicitly
// as a parameter; the context copy exists so log calls deep in the stack can
// enrich their output without threading the ID through every helper.
func WithCorrelation(ctx context.Context, correlationID string) context.Context {
	if correlationID == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey, correlationID)
}

// CorrelationID retrieves the correlation ID from ctx, or "" if not present.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	cid, _ := ctx.Value(correlationKey).(string)
	return cid
}
