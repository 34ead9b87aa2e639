package core

import "context"

// Roles
const (
	RoleAdmin      = "admin"
	RoleOperations = "operations"
	RoleDriver     = "driver"
)

var AllRoles = []string{RoleAdmin, RoleOperations, RoleDriver}

// Actor is the user performing an operation. Identity is asserted by the upstream gateway.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

func (a Actor) IsZero() bool { return a.ID == "" }

type actorCtxKey struct{}

func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, actor)
}

// ActorFromContext returns the Actor stored in ctx, or the "system" actor when none is set.
func ActorFromContext(ctx context.Context) Actor {
	if actor, ok := ctx.Value(actorCtxKey{}).(Actor); ok {
		return actor
	}
	return Actor{ID: "system", Name: "System", Role: RoleAdmin}
}
