package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cyberblue/soc-console/internal/domain/claims"
	"github.com/cyberblue/soc-console/internal/domain/token"
)

// TokenSet is the credential bundle returned by the identity provider.
type TokenSet struct {
	// AccessToken is the bearer credential for API calls. Persisted.
	AccessToken string
	// IDToken carries the identity claims. Not persisted separately.
	IDToken string
	// Expiry is the access token expiry reported by the provider.
	// Zero means unknown; the token's own exp claim is consulted instead.
	Expiry time.Time
}

// Callback holds the one-time query parameters of an authorization redirect.
type Callback struct {
	// Code is the authorization code, empty when the provider returned an error.
	Code string
	// State is the anti-forgery state parameter.
	State string
	// ErrorCode is the provider error code, if any.
	ErrorCode string
	// ErrorDescription is the human-readable provider error, if any.
	ErrorDescription string
}

// Provider is the identity provider port the session manager drives.
// Implementations: OIDC authorization-code adapter (prod), fake (test).
type Provider interface {
	// Exchange completes an authorization-code callback, returning the token
	// set on success.
	Exchange(ctx context.Context, code string) (*TokenSet, error)

	// BeginLogin initiates the sign-in redirect. Fire-and-forget: the result
	// arrives later as a Callback, not as a return value here.
	BeginLogin(ctx context.Context) error

	// BeginLogout initiates the sign-out redirect. Fire-and-forget.
	BeginLogout(ctx context.Context) error
}

// Subscriber receives session state changes. Called outside the manager's
// lock; the Identity argument is a copy and nil unless state is Authenticated.
type Subscriber func(State, *Identity)

// Manager owns the session lifecycle:
//
//	Loading -> {Anonymous, Authenticated}
//	Authenticated -> Anonymous   (logout, user unloaded)
//	Anonymous -> Authenticated   (sign-in, callback completion, user loaded)
//
// All transitions are serialized by an internal mutex. When a provider event
// races with an in-flight callback exchange, the exchange result is applied at
// its own completion and is authoritative: the explicit user action in flight
// wins over background events.
type Manager struct {
	store    token.Store
	provider Provider
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	identity *Identity
	subs     map[int]Subscriber
	nextSub  int
}

// NewManager creates a session manager in the Loading state.
func NewManager(store token.Store, provider Provider, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		provider: provider,
		logger:   logger,
		state:    StateLoading,
		subs:     make(map[int]Subscriber),
	}
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity returns a copy of the current identity, or nil when the session is
// not Authenticated.
func (m *Manager) Identity() *Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyIdentity(m.identity)
}

// Subscribe registers a state change callback and returns an unsubscribe
// function. The callback is immediately invoked with the current state.
func (m *Manager) Subscribe(sub Subscriber) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = sub
	state, identity := m.state, copyIdentity(m.identity)
	m.mu.Unlock()

	sub(state, identity)

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Initialize resolves the initial session state.
//
//  1. A stored, non-expired token restores the session: identity is decoded
//     from its claims and the state becomes Authenticated.
//  2. Otherwise, when cb carries an authorization code it is exchanged via the
//     provider; success yields Authenticated, failure is logged and yields
//     Anonymous (the user retries login manually). The caller must treat the
//     callback parameters as consumed either way.
//  3. Otherwise the state becomes Anonymous.
//
// Initialize never returns an error for an auth failure; the error return is
// reserved for token store write failures after a successful exchange.
func (m *Manager) Initialize(ctx context.Context, cb *Callback) error {
	if tok, err := m.store.Get(ctx); err == nil && !tokenExpired(tok) {
		m.setAuthenticated(identityFromToken(tok))
		m.logger.Debug("session restored from stored token")
		return nil
	}

	if cb != nil && (cb.Code != "" || cb.ErrorCode != "") {
		return m.completeCallback(ctx, cb)
	}

	m.setAnonymous()
	return nil
}

// completeCallback exchanges the authorization code and applies the result.
func (m *Manager) completeCallback(ctx context.Context, cb *Callback) error {
	if cb.ErrorCode != "" {
		m.logger.Error("authorization callback returned an error",
			"error_code", cb.ErrorCode,
			"description", cb.ErrorDescription,
		)
		m.setAnonymous()
		return nil
	}

	set, err := m.provider.Exchange(ctx, cb.Code)
	if err != nil {
		m.logger.Error("authorization code exchange failed", "error", err)
		m.setAnonymous()
		return nil
	}

	if err := m.store.Set(ctx, set.AccessToken); err != nil {
		m.setAnonymous()
		return fmt.Errorf("failed to persist token: %w", err)
	}

	m.setAuthenticated(identityFromTokenSet(set))
	m.logger.Info("session established from authorization callback")
	return nil
}

// HandleUserLoaded applies a provider userLoaded event: the identity is
// recomputed from the fresh token set and the state becomes Authenticated.
func (m *Manager) HandleUserLoaded(ctx context.Context, set *TokenSet) {
	if set == nil || set.AccessToken == "" {
		return
	}
	if err := m.store.Set(ctx, set.AccessToken); err != nil {
		m.logger.Error("failed to persist renewed token", "error", err)
	}
	m.setAuthenticated(identityFromTokenSet(set))
	m.logger.Debug("user loaded", "state", StateAuthenticated.String())
}

// HandleUserUnloaded applies a provider userUnloaded event: the identity is
// cleared and the state becomes Anonymous.
func (m *Manager) HandleUserUnloaded(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("failed to clear stored token", "error", err)
	}
	m.setAnonymous()
	m.logger.Debug("user unloaded", "state", StateAnonymous.String())
}

// HandleSilentRenewError logs a silent renew failure without changing state;
// the current token may remain valid until its natural expiry.
func (m *Manager) HandleSilentRenewError(err error) {
	m.logger.Error("silent renew failed", "error", err)
}

// Login initiates the sign-in redirect. Fire-and-forget: completion arrives
// later through Initialize or HandleUserLoaded.
func (m *Manager) Login(ctx context.Context) {
	if err := m.provider.BeginLogin(ctx); err != nil {
		m.logger.Error("failed to initiate login", "error", err)
	}
}

// Logout clears the session and initiates the sign-out redirect.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("failed to clear stored token", "error", err)
	}
	m.setAnonymous()
	if err := m.provider.BeginLogout(ctx); err != nil {
		m.logger.Error("failed to initiate logout", "error", err)
	}
}

// setAuthenticated transitions to Authenticated with the given identity.
func (m *Manager) setAuthenticated(identity *Identity) {
	m.apply(StateAuthenticated, identity)
}

// setAnonymous transitions to Anonymous.
func (m *Manager) setAnonymous() {
	m.apply(StateAnonymous, nil)
}

// apply commits a transition and notifies subscribers outside the lock.
func (m *Manager) apply(state State, identity *Identity) {
	m.mu.Lock()
	m.state = state
	m.identity = identity
	subs := make([]Subscriber, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	snapshot := copyIdentity(identity)
	m.mu.Unlock()

	for _, s := range subs {
		s(state, copyIdentity(snapshot))
	}
}

// ParseCallback extracts authorization callback parameters from a redirect
// URL and returns the URL with the one-time parameters stripped, suitable for
// a replace-history navigation. Returns a nil Callback when the URL carries
// neither a code nor an error parameter.
func ParseCallback(u *url.URL) (*Callback, *url.URL) {
	q := u.Query()
	if q.Get("code") == "" && q.Get("error") == "" {
		return nil, u
	}

	cb := &Callback{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		ErrorCode:        q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	for _, p := range []string{"code", "state", "error", "error_description", "session_state", "iss"} {
		q.Del(p)
	}
	clean := *u
	clean.RawQuery = q.Encode()
	return cb, &clean
}

// identityFromTokenSet derives an Identity from a token set, preferring the
// ID token claims and falling back to the access token.
func identityFromTokenSet(set *TokenSet) *Identity {
	if set.IDToken != "" {
		if id := identityFromToken(set.IDToken); id.Subject != "" || len(id.Roles) > 0 {
			return id
		}
	}
	return identityFromToken(set.AccessToken)
}

// identityFromToken derives an Identity from a single token's claims.
// Malformed tokens yield an identity with empty fields and no roles.
func identityFromToken(tok string) *Identity {
	c := claims.Decode(tok)
	return &Identity{
		Subject: c.Subject(),
		Name:    c.Name(),
		Email:   c.Email(),
		Roles:   claims.Roles(c),
	}
}

// tokenExpired reports whether the token's exp claim is in the past.
// Signature is not verified; this is a freshness check for session restore
// only, not an authorization decision. Tokens without a readable exp claim
// are treated as unexpired and left for the backend to reject.
func tokenExpired(tok string) bool {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, mc); err != nil {
		return false
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

// copyIdentity returns a deep copy, or nil for nil.
func copyIdentity(i *Identity) *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.Roles = append([]string(nil), i.Roles...)
	return &c
}
