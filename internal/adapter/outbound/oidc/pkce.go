package oidc

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// verifierBytes is the entropy of the PKCE code verifier. 32 bytes is
	// 256 bits, encoding to 43 base64url characters.
	verifierBytes = 32

	// stateBytes is the entropy of the anti-forgery state parameter.
	stateBytes = 32
)

// pkceChallenge holds the verifier and its S256 challenge for one
// authorization request. The verifier never leaves the process.
type pkceChallenge struct {
	Verifier  string
	Challenge string
}

// generatePKCE creates a fresh code verifier and its S256 challenge.
func generatePKCE() (*pkceChallenge, error) {
	raw := make([]byte, verifierBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate PKCE verifier: %w", err)
	}

	verifier := base64.RawURLEncoding.EncodeToString(raw)
	sum := sha256.Sum256([]byte(verifier))

	return &pkceChallenge{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(sum[:]),
	}, nil
}

// generateState creates a random state parameter linking the authorization
// response back to the request that initiated it.
func generateState() (string, error) {
	raw := make([]byte, stateBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
