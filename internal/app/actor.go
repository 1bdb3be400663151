package app

import (
	"context"
	"strings"
)

// Actor names the surface that issued a mutation.
type Actor string

// Known actors; any other non-empty value is kept verbatim.
const (
	ActorTUI    Actor = "tui"
	ActorHTTP   Actor = "http"
	ActorMCP    Actor = "mcp"
	ActorSystem Actor = "system"
)

// WithActor attaches a normalized actor to ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, normalizeActor(actor))
}

// ActorFromContext returns the actor attached to ctx, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return "", false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok || actor == "" {
		return "", false
	}
	return actor, true
}

type actorContextKey struct{}

// actorOrSystem resolves the attribution for one change event.
func actorOrSystem(ctx context.Context) Actor {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor
	}
	return ActorSystem
}

func normalizeActor(actor Actor) Actor {
	return Actor(strings.ToLower(strings.TrimSpace(string(actor))))
}
