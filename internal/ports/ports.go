package ports

// Package ports defines interfaces (hexagonal ports) for the session core.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainsession "github.com/campushq/portal-api/internal/domain/session"
)

// ChangeHandler receives the current principal whenever the identity
// provider's view of "who is signed in" changes. A nil principal means
// explicit absence (signed out, token invalidated, no cached credentials).
type ChangeHandler func(p *domainsession.Principal)

// IdentityProvider is the external authority for credentials and tokens.
// Implementations must deliver change events strictly in order, one at a
// time, and must emit an initial event from Start (cached credentials or
// absence).
type IdentityProvider interface {
	// Subscribe registers the single change handler. Must be called
	// before Start.
	Subscribe(h ChangeHandler)

	// Start restores any cached credentials and emits the initial
	// change event.
	Start(ctx context.Context) error

	// SignInWithPassword authenticates and emits a change event on
	// success. Failures surface the taxonomy in internal/errors.
	SignInWithPassword(ctx context.Context, email, secret string) (domainsession.Principal, error)

	// CreateAccount provisions a new principal and signs it in,
	// emitting a change event on success.
	CreateAccount(ctx context.Context, email, secret string) (domainsession.Principal, error)

	// SignOut invalidates the current session and emits an absence event.
	SignOut(ctx context.Context) error

	// SendPasswordReset requests a reset message for the given email.
	// Must not reveal whether the email is registered.
	SendPasswordReset(ctx context.Context, email string) error
}

// ProfileStore persists the durable per-user profile records.
type ProfileStore interface {
	// Get returns the profile keyed by principal id, or an error
	// satisfying errors.IsProfileNotFound.
	Get(ctx context.Context, id string) (*domainsession.Profile, error)

	// Put idempotently replaces the full profile record. Used only at
	// registration and by operator tooling.
	Put(ctx context.Context, p domainsession.Profile) error
}

// TokenCache persists identity-provider refresh tokens across restarts so
// Start can resolve "app start with cached credentials".
type TokenCache interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, refreshToken string) error
	Clear(ctx context.Context) error
}

// ClaimMapper derives display name and a role hint from a raw identity
// provider claim document.
type ClaimMapper interface {
	Map(claims map[string]any) (displayName string, role domainsession.Role)
}
