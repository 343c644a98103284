// Package auth contains the identity types and session state machine for the
// SOC console.
package auth

// Role represents a user role for authorization purposes.
type Role string

const (
	// RoleAdmin has full control: users, system setup, agents.
	RoleAdmin Role = "admin"
	// RoleAnalyst views dashboards, alerts, and incidents.
	RoleAnalyst Role = "analyst"
	// RoleManager views overview reports, health, and metrics.
	RoleManager Role = "manager"
	// RoleViewer has read-only access.
	RoleViewer Role = "viewer"
)

// IsValid returns true if the role is a known valid role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleAnalyst, RoleManager, RoleViewer:
		return true
	default:
		return false
	}
}

// Identity represents an authenticated console user, derived from the ID
// token claims. Recreated whenever the underlying token changes and cleared
// on unload or logout.
type Identity struct {
	// Subject is the stable subject identifier from the token.
	Subject string
	// Name is the optional display name.
	Name string
	// Email is the optional email address.
	Email string
	// Roles are the role names assigned to this identity. Order carries no
	// meaning; treat as a set.
	Roles []string
}

// HasRole returns true if the identity has the specified role.
func (i *Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole returns true if the identity has any of the specified roles.
// An empty argument list returns false.
func (i *Identity) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i.HasRole(string(RoleAdmin))
}

// State is the session lifecycle state.
type State int

const (
	// StateLoading means initialization has not completed yet.
	StateLoading State = iota
	// StateAnonymous means no authenticated identity is present.
	StateAnonymous
	// StateAuthenticated means a current Identity is available.
	StateAuthenticated
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}
