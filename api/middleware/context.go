package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/assignmentpoint-backend/pkg/enums"
)

type actorKey struct{}

// actor is the verified identity Auth attaches to a request.
type actor struct {
	id   uuid.UUID
	role enums.Role
}

// WithActor injects the user and role, as Auth does for a verified token.
func WithActor(ctx context.Context, userID uuid.UUID, role enums.Role) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor{id: userID, role: role})
}

// ActorFromContext returns the authenticated user and role. ok is false when the request
// never passed through Auth or carries an unusable identity.
func ActorFromContext(ctx context.Context) (uuid.UUID, enums.Role, bool) {
	if ctx == nil {
		return uuid.Nil, "", false
	}
	a, ok := ctx.Value(actorKey{}).(actor)
	if !ok || a.id == uuid.Nil || !a.role.IsValid() {
		return uuid.Nil, "", false
	}
	return a.id, a.role, true
}

// UserIDFromContext is the actor id as a string, empty for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	id, _, ok := ActorFromContext(ctx)
	if !ok {
		return ""
	}
	return id.String()
}
