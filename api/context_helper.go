package api

import (
	"context"
	"time"

	"github.com/slotline/slotline-api/models"
)

// QueryTimeout is the default timeout for database queries
const QueryTimeout = 10 * time.Second

type contextKey string

const actorKey contextKey = "actor"

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

// WithActor stores the resolved actor on the request context. The middleware
// calls this exactly once per request; core packages never look further than
// the Actor value handed to them.
func WithActor(parent context.Context, actor models.Actor) context.Context {
	return context.WithValue(parent, actorKey, actor)
}

// ActorFrom retrieves the actor resolved at the request boundary
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(models.Actor)
	return actor, ok
}
