package auth

import (
	"context"

	"github.com/google/uuid"
)

// Actor is the acting user supplied by the authentication layer.
type Actor struct {
	UserID  uuid.UUID
	StoreID uuid.UUID
	IsAdmin bool
}

type actorContextKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
