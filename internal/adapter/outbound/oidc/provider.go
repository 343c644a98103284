// Package oidc implements the identity provider port with an OpenID Connect
// authorization-code flow. The console is a public client, so every login
// carries a PKCE challenge and the redirect lands on a short-lived loopback
// server.
package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/cyberblue/soc-console/internal/domain/auth"
)

// ErrNoLoginInProgress is returned when Exchange or WaitForCallback is called
// without a preceding BeginLogin.
var ErrNoLoginInProgress = errors.New("no login flow in progress")

// ErrStateMismatch is returned when the redirect's state parameter does not
// match the one issued for the login in progress.
var ErrStateMismatch = errors.New("state parameter mismatch")

// metadataCacheTTL bounds how long discovered endpoints are reused.
const metadataCacheTTL = time.Hour

// defaultScopes are requested when the configuration names none.
var defaultScopes = []string{"openid", "profile", "email"}

// metadata is the subset of the OIDC discovery document the console needs.
type metadata struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	EndSessionEndpoint    string `json:"end_session_endpoint,omitempty"`
}

// Config configures the OIDC provider adapter.
type Config struct {
	// IssuerURL is the identity provider base URL, e.g.
	// https://keycloak.example.com/realms/soc.
	IssuerURL string

	// ClientID is the registered public client identifier.
	ClientID string

	// Scopes requested at login. Default: openid profile email.
	Scopes []string

	// CallbackPort for the loopback redirect server. 0 picks the default.
	CallbackPort int

	// HTTPClient for discovery and token exchange. Default: 30s timeout.
	HTTPClient *http.Client

	// Logger for flow events. Default: slog.Default().
	Logger *slog.Logger

	// OpenBrowser launches the user's browser. Default: OpenBrowser.
	// Overridable so tests and headless environments can capture the URL.
	OpenBrowser func(url string) error
}

// loginFlow is the per-login state between BeginLogin and Exchange.
type loginFlow struct {
	pkce     *pkceChallenge
	state    string
	server   *callbackServer
	oauthCfg *oauth2.Config
	cancel   context.CancelFunc
}

// Provider drives browser-based logins against an OIDC issuer. It implements
// the session manager's identity provider port.
type Provider struct {
	cfg Config

	mu          sync.Mutex
	flow        *loginFlow
	cachedMeta  *metadata
	metaFetched time.Time
}

var _ auth.Provider = (*Provider)(nil)

// NewProvider creates a Provider with defaults applied.
func NewProvider(cfg Config) *Provider {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.OpenBrowser == nil {
		cfg.OpenBrowser = OpenBrowser
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = defaultScopes
	}
	return &Provider{cfg: cfg}
}

// BeginLogin discovers the issuer endpoints, starts the loopback callback
// server, and sends the user's browser to the authorization endpoint. The
// redirect arrives later through WaitForCallback.
func (p *Provider) BeginLogin(ctx context.Context) error {
	meta, err := p.discover(ctx)
	if err != nil {
		return fmt.Errorf("failed to discover issuer metadata: %w", err)
	}

	pkce, err := generatePKCE()
	if err != nil {
		return err
	}
	state, err := generateState()
	if err != nil {
		return err
	}

	flowCtx, cancel := context.WithCancel(context.Background())
	server := newCallbackServer(p.cfg.CallbackPort)
	redirectURI, err := server.Start(flowCtx)
	if err != nil {
		cancel()
		return err
	}

	oauthCfg := &oauth2.Config{
		ClientID:    p.cfg.ClientID,
		RedirectURL: redirectURI,
		Scopes:      p.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  meta.AuthorizationEndpoint,
			TokenURL: meta.TokenEndpoint,
		},
	}

	authURL := oauthCfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", pkce.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)

	p.mu.Lock()
	p.cancelFlowLocked()
	p.flow = &loginFlow{
		pkce:     pkce,
		state:    state,
		server:   server,
		oauthCfg: oauthCfg,
		cancel:   cancel,
	}
	p.mu.Unlock()

	p.cfg.Logger.Info("starting browser login", "issuer", p.cfg.IssuerURL, "redirect_uri", redirectURI)
	if err := p.cfg.OpenBrowser(authURL); err != nil {
		p.cfg.Logger.Warn("could not open browser, open the URL manually",
			"url", authURL, "error", err)
	}
	return nil
}

// WaitForCallback blocks until the authorization redirect lands on the
// loopback server, then validates its state parameter. The returned Callback
// may carry a provider error code; deciding what to do with it is the session
// manager's job.
func (p *Provider) WaitForCallback(ctx context.Context) (*auth.Callback, error) {
	p.mu.Lock()
	flow := p.flow
	p.mu.Unlock()
	if flow == nil {
		return nil, ErrNoLoginInProgress
	}

	waitCtx, cancel := context.WithTimeout(ctx, CallbackTimeout)
	defer cancel()

	cb, err := flow.server.Wait(waitCtx)
	if err != nil {
		p.abortFlow()
		return nil, fmt.Errorf("callback failed: %w", err)
	}

	if cb.State != flow.state {
		p.cfg.Logger.Warn("state mismatch on authorization callback",
			"expected_len", len(flow.state), "received_len", len(cb.State))
		p.abortFlow()
		return nil, ErrStateMismatch
	}

	return cb, nil
}

// Exchange completes the login in progress by trading the authorization code
// for tokens at the token endpoint.
func (p *Provider) Exchange(ctx context.Context, code string) (*auth.TokenSet, error) {
	p.mu.Lock()
	flow := p.flow
	p.mu.Unlock()
	if flow == nil {
		return nil, ErrNoLoginInProgress
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.cfg.HTTPClient)
	tok, err := flow.oauthCfg.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", flow.pkce.Verifier),
	)
	if err != nil {
		p.abortFlow()
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	set := &auth.TokenSet{
		AccessToken: tok.AccessToken,
		Expiry:      tok.Expiry,
	}
	if id, ok := tok.Extra("id_token").(string); ok {
		set.IDToken = id
	}

	p.abortFlow()
	p.cfg.Logger.Info("login completed", "issuer", p.cfg.IssuerURL)
	return set, nil
}

// BeginLogout sends the browser to the issuer's end-session endpoint when the
// issuer advertises one. Providers without RP-initiated logout only get the
// local session cleared by the caller.
func (p *Provider) BeginLogout(ctx context.Context) error {
	meta, err := p.discover(ctx)
	if err != nil {
		return fmt.Errorf("failed to discover issuer metadata: %w", err)
	}
	if meta.EndSessionEndpoint == "" {
		p.cfg.Logger.Debug("issuer has no end_session_endpoint, local logout only")
		return nil
	}

	logoutURL, err := url.Parse(meta.EndSessionEndpoint)
	if err != nil {
		return err
	}
	q := logoutURL.Query()
	q.Set("client_id", p.cfg.ClientID)
	logoutURL.RawQuery = q.Encode()

	if err := p.cfg.OpenBrowser(logoutURL.String()); err != nil {
		p.cfg.Logger.Warn("could not open browser for logout", "url", logoutURL.String(), "error", err)
	}
	return nil
}

// Close aborts any login in progress.
func (p *Provider) Close() error {
	p.abortFlow()
	return nil
}

// abortFlow tears down the login in progress, if any.
func (p *Provider) abortFlow() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelFlowLocked()
}

func (p *Provider) cancelFlowLocked() {
	if p.flow != nil {
		p.flow.server.Stop()
		p.flow.cancel()
		p.flow = nil
	}
}

// discover fetches the issuer's OIDC discovery document, caching it for an
// hour.
func (p *Provider) discover(ctx context.Context) (*metadata, error) {
	p.mu.Lock()
	if p.cachedMeta != nil && time.Since(p.metaFetched) < metadataCacheTTL {
		meta := p.cachedMeta
		p.mu.Unlock()
		return meta, nil
	}
	p.mu.Unlock()

	wellKnown := p.cfg.IssuerURL + "/.well-known/openid-configuration"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("discovery returned status %d: %s", resp.StatusCode, body)
	}

	var meta metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}
	if meta.AuthorizationEndpoint == "" || meta.TokenEndpoint == "" {
		return nil, errors.New("discovery document missing authorization or token endpoint")
	}

	p.mu.Lock()
	p.cachedMeta = &meta
	p.metaFetched = time.Now()
	p.mu.Unlock()
	return &meta, nil
}
