package claims

// realmAccessClaim is the claims path Keycloak uses for realm-level roles.
const realmAccessClaim = "realm_access"

// Roles extracts the realm role names from decoded claims.
// It reads realm_access.roles and returns an empty, non-nil slice when the
// path is missing or any element has an unexpected type. Callers can rely on
// ranging over the result without a nil check.
func Roles(c Claims) []string {
	roles := []string{}
	if c == nil {
		return roles
	}

	access, ok := c[realmAccessClaim].(map[string]any)
	if !ok {
		return roles
	}

	list, ok := access["roles"].([]any)
	if !ok {
		return roles
	}

	for _, r := range list {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}
