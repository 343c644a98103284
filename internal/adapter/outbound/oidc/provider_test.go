package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

// fakeIssuer is an httptest identity provider serving a discovery document
// and a token endpoint.
type fakeIssuer struct {
	srv *httptest.Server

	// lastExchange records the form of the last token request.
	lastExchange url.Values
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()
	f := &fakeIssuer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 f.srv.URL,
			"authorization_endpoint": f.srv.URL + "/authorize",
			"token_endpoint":         f.srv.URL + "/token",
			"end_session_endpoint":   f.srv.URL + "/logout",
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.lastExchange = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-abc",
			"token_type":   "Bearer",
			"expires_in":   300,
			"id_token":     "id-xyz",
		})
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// browserStub captures the authorization URL instead of opening a browser,
// and optionally follows the redirect back to the loopback server.
type browserStub struct {
	urls chan string
}

func newBrowserStub() *browserStub {
	return &browserStub{urls: make(chan string, 1)}
}

func (b *browserStub) open(u string) error {
	b.urls <- u
	return nil
}

// redirect simulates the identity provider sending the user agent back to the
// loopback callback with the given query parameters.
func redirect(t *testing.T, authURL string, params url.Values) {
	t.Helper()
	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatal(err)
	}
	redirectURI := parsed.Query().Get("redirect_uri")
	if redirectURI == "" {
		t.Fatal("authorization URL missing redirect_uri")
	}
	resp, err := http.Get(redirectURI + "?" + params.Encode())
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback returned status %d", resp.StatusCode)
	}
}

func TestLoginFlowEndToEnd(t *testing.T) {
	issuer := newFakeIssuer(t)
	browser := newBrowserStub()

	p := NewProvider(Config{
		IssuerURL:   issuer.srv.URL,
		ClientID:    "soc-console",
		OpenBrowser: browser.open,
	})
	defer p.Close()

	ctx := context.Background()
	if err := p.BeginLogin(ctx); err != nil {
		t.Fatalf("BeginLogin: %v", err)
	}

	authURL := <-browser.urls
	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatal(err)
	}
	q := parsed.Query()
	if q.Get("code_challenge") == "" || q.Get("code_challenge_method") != "S256" {
		t.Fatalf("authorization URL missing PKCE parameters: %s", authURL)
	}
	if q.Get("client_id") != "soc-console" {
		t.Fatalf("client_id: got %q", q.Get("client_id"))
	}
	state := q.Get("state")
	if state == "" {
		t.Fatal("authorization URL missing state")
	}

	redirect(t, authURL, url.Values{"code": {"authcode-1"}, "state": {state}})

	cb, err := p.WaitForCallback(ctx)
	if err != nil {
		t.Fatalf("WaitForCallback: %v", err)
	}
	if cb.Code != "authcode-1" {
		t.Fatalf("callback code: got %q", cb.Code)
	}

	set, err := p.Exchange(ctx, cb.Code)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if set.AccessToken != "access-abc" || set.IDToken != "id-xyz" {
		t.Fatalf("unexpected token set: %+v", set)
	}
	if set.Expiry.Before(time.Now()) {
		t.Fatalf("expiry not in the future: %v", set.Expiry)
	}

	if got := issuer.lastExchange.Get("code_verifier"); got == "" {
		t.Fatal("token exchange did not carry the PKCE verifier")
	}
	if got := issuer.lastExchange.Get("code"); got != "authcode-1" {
		t.Fatalf("exchanged code: got %q", got)
	}
}

func TestWaitForCallbackRejectsStateMismatch(t *testing.T) {
	issuer := newFakeIssuer(t)
	browser := newBrowserStub()

	p := NewProvider(Config{
		IssuerURL:   issuer.srv.URL,
		ClientID:    "soc-console",
		OpenBrowser: browser.open,
	})
	defer p.Close()

	ctx := context.Background()
	if err := p.BeginLogin(ctx); err != nil {
		t.Fatalf("BeginLogin: %v", err)
	}
	authURL := <-browser.urls

	redirect(t, authURL, url.Values{"code": {"authcode-1"}, "state": {"forged"}})

	if _, err := p.WaitForCallback(ctx); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch, got %v", err)
	}
}

func TestExchangeWithoutLoginInProgress(t *testing.T) {
	issuer := newFakeIssuer(t)
	p := NewProvider(Config{IssuerURL: issuer.srv.URL, ClientID: "soc-console"})

	if _, err := p.Exchange(context.Background(), "code"); !errors.Is(err, ErrNoLoginInProgress) {
		t.Fatalf("expected ErrNoLoginInProgress, got %v", err)
	}
	if _, err := p.WaitForCallback(context.Background()); !errors.Is(err, ErrNoLoginInProgress) {
		t.Fatalf("expected ErrNoLoginInProgress, got %v", err)
	}
}

func TestCallbackServerAcceptsOnlyFirstRedirect(t *testing.T) {
	srv := newCallbackServer(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	uri, err := srv.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get(uri + "?code=first&state=s")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first redirect: status %d", resp.StatusCode)
	}

	// The server may already be shutting down; a repeat delivery must not be
	// accepted as a second result either way.
	if resp, err := http.Get(uri + "?code=second&state=s"); err == nil {
		if resp.StatusCode == http.StatusOK {
			t.Fatal("second redirect was accepted")
		}
		resp.Body.Close()
	}

	cb, err := srv.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if cb.Code != "first" {
		t.Fatalf("expected the first redirect's code, got %q", cb.Code)
	}
}

func TestGeneratePKCE(t *testing.T) {
	a, err := generatePKCE()
	if err != nil {
		t.Fatal(err)
	}
	b, err := generatePKCE()
	if err != nil {
		t.Fatal(err)
	}
	if a.Verifier == b.Verifier {
		t.Fatal("verifiers are not unique")
	}
	if len(a.Verifier) != 43 || len(a.Challenge) != 43 {
		t.Fatalf("unexpected encoded lengths: verifier %d, challenge %d", len(a.Verifier), len(a.Challenge))
	}
	if strings.ContainsAny(a.Verifier, "+/=") {
		t.Fatalf("verifier not base64url: %q", a.Verifier)
	}
}

func TestBeginLogoutUsesEndSessionEndpoint(t *testing.T) {
	issuer := newFakeIssuer(t)
	browser := newBrowserStub()

	p := NewProvider(Config{
		IssuerURL:   issuer.srv.URL,
		ClientID:    "soc-console",
		OpenBrowser: browser.open,
	})

	if err := p.BeginLogout(context.Background()); err != nil {
		t.Fatalf("BeginLogout: %v", err)
	}
	logoutURL := <-browser.urls
	if !strings.Contains(logoutURL, "/logout") || !strings.Contains(logoutURL, "client_id=soc-console") {
		t.Fatalf("unexpected logout URL: %s", logoutURL)
	}
}
