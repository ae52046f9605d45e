package auth

import "context"

// Actor identifies who performed an operation. It is built once at the HTTP
// boundary and passed explicitly into service calls, so nothing below the
// handler layer reaches into request-scoped state to discover the current
// user.
type Actor struct {
	ID    string
	Name  string
	Roles []string
}

// ActorFromContext materializes the authenticated principal set by the JWT
// or dev middleware.
func ActorFromContext(ctx context.Context) Actor {
	return Actor{
		ID:    UserIDFromContext(ctx),
		Name:  UserNameFromContext(ctx),
		Roles: RolesFromContext(ctx),
	}
}

// HasRole reports whether the actor carries the given role. Admins pass every
// role check.
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role || r == "admin" {
			return true
		}
	}
	return false
}

// DisplayName returns the actor's name, falling back to the id when the token
// carried no name claim.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
