// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

// SystemActor is recorded when no operator is attached to the context.
const SystemActor = "system"

// ActorKey is the context key for the operator ID.
type ActorKey struct{}

// WithActorID returns a context carrying the operator ID that performs the call.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorKey{}, actorID)
}

// ActorFromContext returns the operator ID from context, or empty string if not set.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ActorKey{}).(string); ok {
		return v
	}
	return ""
}

// ActorOrSystem returns the operator ID, falling back to SystemActor.
func ActorOrSystem(ctx context.Context) string {
	if id := ActorFromContext(ctx); id != "" {
		return id
	}
	return SystemActor
}
