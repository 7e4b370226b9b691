package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	domainsession "github.com/campushq/portal-api/internal/domain/session"
	apperrors "github.com/campushq/portal-api/internal/errors"
	"github.com/campushq/portal-api/internal/ports"
)

// SessionManagerOptions groups dependencies for SessionManager.
type SessionManagerOptions struct {
	Provider ports.IdentityProvider
	Profiles ports.ProfileStore
	Logger   *slog.Logger
}

// SessionManager is the sole authority for resolving, caching, and
// publishing the session snapshot, and the sole entry point for the four
// session-mutating operations.
//
// Each principal-change event and each operation starts a resolution
// cycle tagged with a monotonically increasing sequence number. A cycle
// whose profile fetch completes after a newer cycle has started is
// discarded at the publish boundary, so completion order can never
// overwrite arrival order (a stale fetch cannot shadow a logout).
type SessionManager struct {
	provider ports.IdentityProvider
	profiles ports.ProfileStore
	logger   *slog.Logger

	// ctx governs notification-driven profile fetches. Set by Start.
	ctx context.Context

	mu      sync.Mutex
	seq     uint64
	current domainsession.Snapshot
	subs    map[uint64]chan domainsession.Snapshot
	nextSub uint64
}

// ResolvedUser is the outcome of a completed resolution cycle, returned
// by operations so callers need not wait for the next notification.
type ResolvedUser struct {
	Principal domainsession.Principal
	Profile   *domainsession.Profile
	Role      domainsession.Role
}

// NewSessionManager constructs a SessionManager and registers its change
// handler with the identity provider. Call Start to begin receiving events.
func NewSessionManager(opts SessionManagerOptions) (*SessionManager, error) {
	if opts.Provider == nil {
		return nil, errors.New("identity provider is required")
	}
	if opts.Profiles == nil {
		return nil, errors.New("profile store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &SessionManager{
		provider: opts.Provider,
		profiles: opts.Profiles,
		logger:   logger,
		ctx:      context.Background(),
		current:  domainsession.Initial(),
		subs:     make(map[uint64]chan domainsession.Snapshot),
	}
	m.provider.Subscribe(m.onChange)
	return m, nil
}

// Start restores cached credentials via the provider, which emits the
// initial change event. The given context bounds all notification-driven
// profile fetches.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	m.ctx = ctx
	m.mu.Unlock()

	if err := m.provider.Start(ctx); err != nil {
		// Never leave consumers in loading: publish absence before
		// surfacing the startup failure.
		m.publish(m.beginCycle(), domainsession.Absent())
		return apperrors.ProviderUnavailable(err)
	}
	return nil
}

// Snapshot returns the most recently published snapshot.
func (m *SessionManager) Snapshot() domainsession.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Subscribe returns a channel that immediately delivers the current
// snapshot and then every subsequent publication, plus an unsubscribe
// function. The channel is buffered with the latest value only; slow
// consumers observe the newest snapshot, never a backlog of stale ones.
func (m *SessionManager) Subscribe() (<-chan domainsession.Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan domainsession.Snapshot, 1)
	ch <- m.current
	m.subs[id] = ch

	unsub := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
	return ch, unsub
}

// onChange is the single handler registered with the identity provider's
// change-notification stream. Events are sequenced at arrival; the
// profile fetch for a principal event runs asynchronously under the
// sequence guard.
func (m *SessionManager) onChange(p *domainsession.Principal) {
	seq := m.beginCycle()
	if p == nil {
		// Absence resolves immediately, no store fetch.
		m.publish(seq, domainsession.Absent())
		return
	}

	principal := *p
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()
	go func() {
		m.publish(seq, m.resolve(ctx, principal))
	}()
}

// beginCycle allocates the next resolution-cycle sequence number.
func (m *SessionManager) beginCycle() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return m.seq
}

// resolve fetches the profile for a principal and derives the snapshot.
// A missing profile is a representable state, not a failure: the user is
// treated as unauthorized for role-gated views. Fetch failures likewise
// still produce a published, non-loading snapshot.
func (m *SessionManager) resolve(ctx context.Context, principal domainsession.Principal) domainsession.Snapshot {
	profile, err := m.profiles.Get(ctx, principal.ID)
	switch {
	case err == nil:
		return domainsession.Snapshot{
			Principal: &principal,
			Profile:   profile,
			Role:      domainsession.ParseRole(string(profile.Role)),
		}
	case apperrors.IsNotFound(err) || apperrors.IsProfileNotFound(err):
		m.logger.WarnContext(ctx, "principal has no profile record",
			"principal_id", principal.ID)
	default:
		m.logger.ErrorContext(ctx, "profile fetch failed",
			"principal_id", principal.ID, "error", err)
	}
	return domainsession.Snapshot{Principal: &principal, Role: domainsession.RoleGuest}
}

// publish installs a snapshot unless a newer cycle has already started.
// Last-writer-wins by event-arrival order, not by completion order.
func (m *SessionManager) publish(seq uint64, snap domainsession.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if seq < m.seq {
		m.logger.Debug("discarding stale resolution cycle",
			"cycle", seq, "latest", m.seq)
		return
	}

	snap.Seq = seq
	m.current = snap
	for _, ch := range m.subs {
		// Replace any undelivered snapshot so subscribers always see
		// the newest value.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// Login authenticates via the identity provider and resolves the session
// synchronously within the call. On failure the published state is
// unchanged and the error carries the taxonomy code.
func (m *SessionManager) Login(ctx context.Context, email, secret string) (*ResolvedUser, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.ValidationField("email", "email is required")
	}
	if secret == "" {
		return nil, apperrors.ValidationField("secret", "password is required")
	}

	principal, err := m.provider.SignInWithPassword(ctx, email, secret)
	if err != nil {
		return nil, err
	}

	seq := m.beginCycle()
	snap := m.resolve(ctx, principal)
	m.publish(seq, snap)

	return &ResolvedUser{
		Principal: principal,
		Profile:   snap.Profile,
		Role:      snap.Role,
	}, nil
}

// RegisterInput carries inputs for Register.
type RegisterInput struct {
	Email       string
	Secret      string
	DisplayName string
	// Role defaults to student when empty.
	Role domainsession.Role
}

// Register creates the identity-provider principal and, atomically with
// respect to the caller's view, exactly one profile record. If the
// profile write fails after the principal was created, the dangling
// principal is surfaced as a profile-provisioning failure and left for
// manual reconciliation; the next resolution cycle publishes the
// principal-without-profile state.
func (m *SessionManager) Register(ctx context.Context, in RegisterInput) (*ResolvedUser, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.Role == "" {
		in.Role = domainsession.RoleStudent
	}

	if in.Email == "" {
		return nil, apperrors.RegistrationField("email", "email is required")
	}
	if in.Secret == "" {
		return nil, apperrors.RegistrationField("secret", "password is required")
	}
	if in.DisplayName == "" {
		return nil, apperrors.RegistrationField("display_name", "display name is required")
	}
	if !in.Role.Assignable() {
		return nil, apperrors.RegistrationField("role", "unknown role "+string(in.Role))
	}

	principal, err := m.provider.CreateAccount(ctx, in.Email, in.Secret)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	profile := domainsession.Profile{
		ID:          principal.ID,
		Email:       in.Email,
		DisplayName: in.DisplayName,
		Role:        in.Role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if putErr := m.profiles.Put(ctx, profile); putErr != nil {
		// The principal now exists without a profile. The provider's
		// change event resolves that state; the caller gets the
		// distinct provisioning error, never a generic one.
		m.logger.ErrorContext(ctx, "profile provisioning failed after account creation",
			"principal_id", principal.ID, "error", putErr)
		return nil, apperrors.ProfileProvisioningFailed(putErr)
	}

	seq := m.beginCycle()
	snap := domainsession.Snapshot{
		Principal: &principal,
		Profile:   &profile,
		Role:      profile.Role,
	}
	m.publish(seq, snap)

	return &ResolvedUser{Principal: principal, Profile: &profile, Role: profile.Role}, nil
}

// Logout invalidates the identity-provider session and publishes the
// absence snapshot. Navigation side effects are owned by the caller.
func (m *SessionManager) Logout(ctx context.Context) error {
	if err := m.provider.SignOut(ctx); err != nil {
		return err
	}
	m.publish(m.beginCycle(), domainsession.Absent())
	return nil
}

// ResetPassword requests a reset message for the given email. Session
// state is never altered, and the returned error never reveals whether
// the email is registered.
func (m *SessionManager) ResetPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	if err := m.provider.SendPasswordReset(ctx, email); err != nil {
		m.logger.WarnContext(ctx, "password reset request failed", "error", err)
		return apperrors.PasswordResetFailed(err)
	}
	return nil
}
