package token

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in OS keyring storage.
	keyringService = "soc-console"
	// keyringUser is the account name used in OS keyring storage.
	keyringUser = "access-token"
	// fallbackFileMode restricts the fallback file to the owning user.
	fallbackFileMode = 0o600
)

// KeyringStore persists the bearer token in the OS keyring (macOS Keychain,
// Windows Credential Manager, Linux Secret Service) with a plain-file fallback
// under the user config directory for non-interactive environments.
// The token survives process restarts within the same user profile.
type KeyringStore struct {
	service      string
	fallbackPath string
}

// NewKeyringStore creates a KeyringStore using the default service name and
// fallback path (<user config dir>/soc-console/token).
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{
		service:      keyringService,
		fallbackPath: defaultFallbackPath(),
	}
}

// NewKeyringStoreWithConfig creates a KeyringStore with a custom service name
// and fallback file path. An empty fallbackPath disables the file fallback.
func NewKeyringStoreWithConfig(service, fallbackPath string) *KeyringStore {
	if service == "" {
		service = keyringService
	}
	return &KeyringStore{service: service, fallbackPath: fallbackPath}
}

// Get returns the stored token, checking the keyring first and the file
// fallback second. Returns ErrNoToken when neither holds a token.
func (s *KeyringStore) Get(_ context.Context) (string, error) {
	if tok, err := keyring.Get(s.service, keyringUser); err == nil && tok != "" {
		return tok, nil
	}

	if tok := s.readFallback(); tok != "" {
		return tok, nil
	}

	return "", ErrNoToken
}

// Set stores the token in the keyring, falling back to the file when the
// keyring is unavailable.
func (s *KeyringStore) Set(_ context.Context, tok string) error {
	if err := keyring.Set(s.service, keyringUser, tok); err == nil {
		return nil
	}

	return s.writeFallback(tok)
}

// Clear removes the token from both the keyring and the file fallback.
// Clearing an empty store is not an error.
func (s *KeyringStore) Clear(_ context.Context) error {
	keyringErr := keyring.Delete(s.service, keyringUser)
	if keyringErr != nil && errors.Is(keyringErr, keyring.ErrNotFound) {
		keyringErr = nil
	}

	var fileErr error
	if s.fallbackPath != "" {
		fileErr = os.Remove(s.fallbackPath)
		if fileErr != nil && os.IsNotExist(fileErr) {
			fileErr = nil
		}
	}

	if keyringErr != nil && fileErr != nil {
		return fmt.Errorf("failed to clear stored token: %w", keyringErr)
	}
	return nil
}

// readFallback reads the token from the file fallback.
func (s *KeyringStore) readFallback() string {
	if s.fallbackPath == "" {
		return ""
	}
	data, err := os.ReadFile(s.fallbackPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// writeFallback writes the token to the file fallback, creating the parent
// directory if needed.
func (s *KeyringStore) writeFallback(tok string) error {
	if s.fallbackPath == "" {
		return fmt.Errorf("keyring unavailable and no fallback path configured")
	}
	if err := os.MkdirAll(filepath.Dir(s.fallbackPath), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(s.fallbackPath, []byte(tok), fallbackFileMode); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// defaultFallbackPath returns <user config dir>/soc-console/token, or ""
// when the config dir cannot be determined (fallback disabled).
func defaultFallbackPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "soc-console", "token")
}
