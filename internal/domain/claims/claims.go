// Package claims decodes JWT payload segments for display and role routing.
//
// Nothing in this package verifies signatures. Decoded claims are an untrusted
// hint for the UI (which name to show, which views to route to) and must never
// gate a state-changing action; the backend re-checks authorization on every
// authenticated request.
package claims

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Claims is the decoded payload segment of a compact JWT.
// A nil Claims means the token could not be decoded.
type Claims map[string]any

// Decode extracts the payload claims from a compact three-segment token.
// It returns nil on any malformed input: wrong segment count, invalid
// base64url, or invalid JSON. It never returns an error and never panics.
func Decode(token string) Claims {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}

	payload := parts[1]
	if payload == "" {
		return nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		// Some issuers pad the segment. Retry with standard base64url.
		raw, err = base64.URLEncoding.DecodeString(payload)
		if err != nil {
			return nil
		}
	}

	var c Claims
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil
	}
	return c
}

// String returns the claim under key as a string, or "" if the claim is
// missing or not a string.
func (c Claims) String(key string) string {
	if c == nil {
		return ""
	}
	s, _ := c[key].(string)
	return s
}

// Subject returns the "sub" claim.
func (c Claims) Subject() string { return c.String("sub") }

// Name returns the "name" claim.
func (c Claims) Name() string { return c.String("name") }

// Email returns the "email" claim.
func (c Claims) Email() string { return c.String("email") }
