// Package service contains application services for the SOC console.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cyberblue/soc-console/internal/adapter/outbound/api"
	"github.com/cyberblue/soc-console/internal/domain/auth"
	"github.com/cyberblue/soc-console/internal/domain/token"
	"github.com/cyberblue/soc-console/internal/port/outbound"
)

// Decision is the outcome of a gate check for a protected view.
type Decision int

const (
	// RenderChildren means the protected content may be shown.
	RenderChildren Decision = iota
	// RedirectLogin means no usable credential exists; send to login.
	RedirectLogin
	// RedirectUnauthorized means the identity lacks a required role.
	RedirectUnauthorized
)

// String returns the decision name for logging.
func (d Decision) String() string {
	switch d {
	case RenderChildren:
		return "render-children"
	case RedirectLogin:
		return "redirect-to-login"
	case RedirectUnauthorized:
		return "redirect-to-unauthorized"
	default:
		return "unknown"
	}
}

// DecisionRecorder records gate outcomes. Implemented by the metrics package.
type DecisionRecorder interface {
	RecordGateDecision(outcome string)
}

// GateService decides whether a protected view may render. It is the single
// canonical authentication path: either fed from the session manager's state
// (DecideFromSession, no network round-trip) or, for token-only callers,
// backed by one who-am-I introspection per mount (Decide).
type GateService struct {
	tokens       token.Store
	introspector outbound.Introspector
	logger       *slog.Logger
	metrics      DecisionRecorder
}

// NewGateService creates a GateService.
func NewGateService(tokens token.Store, introspector outbound.Introspector, logger *slog.Logger) *GateService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GateService{tokens: tokens, introspector: introspector, logger: logger}
}

// SetMetrics attaches a decision recorder. Optional.
func (g *GateService) SetMetrics(m DecisionRecorder) {
	g.metrics = m
}

// Decide gates one view mount.
//
// With no stored token it resolves to RedirectLogin without any network call.
// Otherwise it issues exactly one who-am-I introspection: a rejected token is
// cleared and resolves to RedirectLogin; a transport failure resolves to
// RedirectLogin but retains the token, since it may still be valid and only
// explicit rejections clear it; a valid token missing a required role resolves to
// RedirectUnauthorized with the token retained.
func (g *GateService) Decide(ctx context.Context, requiredRoles []string) Decision {
	if _, err := g.tokens.Get(ctx); err != nil {
		return g.resolve(RedirectLogin)
	}

	profile, err := g.introspector.Me(ctx)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrUnauthenticated):
			// The api client already cleared the store on the 401.
			g.logger.Info("authentication check failed: token rejected")
		default:
			g.logger.Error("authentication check failed", "error", err)
		}
		return g.resolve(RedirectLogin)
	}

	if len(requiredRoles) > 0 && !containsRole(requiredRoles, profile.Role) {
		g.logger.Info("authorization failed",
			"role", profile.Role,
			"required", requiredRoles,
		)
		return g.resolve(RedirectUnauthorized)
	}

	return g.resolve(RenderChildren)
}

// DecideFromSession gates a view from the session manager's state without a
// second network round-trip. Loading state is the caller's placeholder; this
// is only called once the state is settled.
func (g *GateService) DecideFromSession(state auth.State, identity *auth.Identity, requiredRoles []string) Decision {
	if state != auth.StateAuthenticated || identity == nil {
		return g.resolve(RedirectLogin)
	}
	if len(requiredRoles) > 0 && !identity.HasAnyRole(requiredRoles...) {
		return g.resolve(RedirectUnauthorized)
	}
	return g.resolve(RenderChildren)
}

// resolve records and returns a decision.
func (g *GateService) resolve(d Decision) Decision {
	if g.metrics != nil {
		g.metrics.RecordGateDecision(d.String())
	}
	return d
}

// containsRole reports whether role is one of required.
func containsRole(required []string, role string) bool {
	for _, r := range required {
		if r == role {
			return true
		}
	}
	return false
}
