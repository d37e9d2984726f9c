// Package reqctx provides request-scoped values extraction.
package reqctx

import (
	"context"
)

// Role is the access role of the acting user, resolved by the boundary
// layer before any domain call.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAttendant Role = "attendant"
	RoleMechanic  Role = "mechanic"
	RoleClient    Role = "client"

	// RoleSystem is used by lifecycle event handlers acting on behalf of
	// the process itself (budget spawning, approval side effects).
	RoleSystem Role = "system"
)

// Valid reports whether the role is one the platform knows.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAttendant, RoleMechanic, RoleClient, RoleSystem:
		return true
	}
	return false
}

// Actor identifies who is performing the current request.
type Actor struct {
	SubjectID string
	Role      Role
	Email     string
}

type actorContextKey struct{}

// WithActor adds Actor to context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor returns Actor from context, or nil when the request is
// unauthenticated.
func GetActor(ctx context.Context) *Actor {
	if v, ok := ctx.Value(actorContextKey{}).(*Actor); ok {
		return v
	}
	return nil
}

// GetRole returns the acting role from context, or empty Role.
func GetRole(ctx context.Context) Role {
	if a := GetActor(ctx); a != nil {
		return a.Role
	}
	return ""
}

// GetSubjectID returns the acting subject id from context or empty string.
func GetSubjectID(ctx context.Context) string {
	if a := GetActor(ctx); a != nil {
		return a.SubjectID
	}
	return ""
}

// SystemActor returns the actor used by in-process lifecycle handlers.
func SystemActor() *Actor {
	return &Actor{SubjectID: "system", Role: RoleSystem}
}
