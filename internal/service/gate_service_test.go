package service

import (
	"context"
	"sync"
	"testing"

	"github.com/cyberblue/soc-console/internal/adapter/outbound/api"
	"github.com/cyberblue/soc-console/internal/domain/auth"
	"github.com/cyberblue/soc-console/internal/domain/token"
	"github.com/cyberblue/soc-console/internal/port/outbound"
)

// fakeIntrospector counts calls and returns a canned profile or error.
// On an ErrUnauthenticated result it clears the store, mirroring the api
// client's behavior.
type fakeIntrospector struct {
	mu      sync.Mutex
	calls   int
	profile *outbound.Profile
	err     error
	tokens  token.Store
}

func (f *fakeIntrospector) Me(ctx context.Context) (*outbound.Profile, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		if f.tokens != nil && f.err == api.ErrUnauthenticated {
			_ = f.tokens.Clear(ctx)
		}
		return nil, f.err
	}
	return f.profile, nil
}

func (f *fakeIntrospector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDecideNoTokenSkipsNetwork(t *testing.T) {
	store := token.NewMemoryStore()
	introspector := &fakeIntrospector{profile: &outbound.Profile{Role: "admin"}}
	g := NewGateService(store, introspector, nil)

	got := g.Decide(context.Background(), []string{"admin"})
	if got != RedirectLogin {
		t.Errorf("Decide() = %v, want RedirectLogin", got)
	}
	if introspector.callCount() != 0 {
		t.Errorf("introspection calls = %d, want 0 when no token is stored", introspector.callCount())
	}
}

func TestDecideValidTokenMatchingRole(t *testing.T) {
	ctx := context.Background()
	store := token.NewMemoryStore()
	_ = store.Set(ctx, "tok")
	introspector := &fakeIntrospector{profile: &outbound.Profile{Role: "analyst"}}
	g := NewGateService(store, introspector, nil)

	if got := g.Decide(ctx, []string{"analyst", "admin"}); got != RenderChildren {
		t.Errorf("Decide() = %v, want RenderChildren", got)
	}
	if introspector.callCount() != 1 {
		t.Errorf("introspection calls = %d, want exactly 1 per mount", introspector.callCount())
	}
}

func TestDecideInsufficientRoleRetainsToken(t *testing.T) {
	ctx := context.Background()
	store := token.NewMemoryStore()
	_ = store.Set(ctx, "tok")
	introspector := &fakeIntrospector{profile: &outbound.Profile{Role: "analyst"}}
	g := NewGateService(store, introspector, nil)

	if got := g.Decide(ctx, []string{"admin"}); got != RedirectUnauthorized {
		t.Errorf("Decide() = %v, want RedirectUnauthorized", got)
	}

	// Only rejected tokens are cleared, not merely insufficient-role ones.
	if tok, err := store.Get(ctx); err != nil || tok != "tok" {
		t.Errorf("token after insufficient-role decision = (%q, %v), want retained", tok, err)
	}
}

func TestDecideRejectedTokenRedirectsLogin(t *testing.T) {
	ctx := context.Background()
	store := token.NewMemoryStore()
	_ = store.Set(ctx, "tok")
	introspector := &fakeIntrospector{err: api.ErrUnauthenticated, tokens: store}
	g := NewGateService(store, introspector, nil)

	if got := g.Decide(ctx, []string{"admin"}); got != RedirectLogin {
		t.Errorf("Decide() = %v, want RedirectLogin", got)
	}
	if _, err := store.Get(ctx); err == nil {
		t.Error("rejected token should have been cleared")
	}
}

func TestDecideTransportFailureRetainsToken(t *testing.T) {
	ctx := context.Background()
	store := token.NewMemoryStore()
	_ = store.Set(ctx, "tok")
	introspector := &fakeIntrospector{err: &api.ServerUnreachableError{}}
	g := NewGateService(store, introspector, nil)

	if got := g.Decide(ctx, nil); got != RedirectLogin {
		t.Errorf("Decide() = %v, want RedirectLogin on transport failure", got)
	}
	// The token may still be valid; only explicit rejections clear it.
	if tok, err := store.Get(ctx); err != nil || tok != "tok" {
		t.Errorf("token after transport failure = (%q, %v), want retained", tok, err)
	}
}

func TestDecideNoRequiredRoles(t *testing.T) {
	ctx := context.Background()
	store := token.NewMemoryStore()
	_ = store.Set(ctx, "tok")
	introspector := &fakeIntrospector{profile: &outbound.Profile{Role: "viewer"}}
	g := NewGateService(store, introspector, nil)

	if got := g.Decide(ctx, nil); got != RenderChildren {
		t.Errorf("Decide() with no required roles = %v, want RenderChildren", got)
	}
}

func TestDecideFromSession(t *testing.T) {
	g := NewGateService(token.NewMemoryStore(), &fakeIntrospector{}, nil)

	admin := &auth.Identity{Subject: "u-1", Roles: []string{"admin"}}
	analyst := &auth.Identity{Subject: "u-2", Roles: []string{"analyst"}}

	tests := []struct {
		name     string
		state    auth.State
		identity *auth.Identity
		required []string
		want     Decision
	}{
		{name: "anonymous", state: auth.StateAnonymous, want: RedirectLogin},
		{name: "loading treated as unauthenticated", state: auth.StateLoading, want: RedirectLogin},
		{name: "authenticated no roles required", state: auth.StateAuthenticated, identity: analyst, want: RenderChildren},
		{name: "authenticated matching role", state: auth.StateAuthenticated, identity: admin, required: []string{"admin"}, want: RenderChildren},
		{name: "authenticated missing role", state: auth.StateAuthenticated, identity: analyst, required: []string{"admin"}, want: RedirectUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.DecideFromSession(tt.state, tt.identity, tt.required); got != tt.want {
				t.Errorf("DecideFromSession() = %v, want %v", got, tt.want)
			}
		})
	}
}
