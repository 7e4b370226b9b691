package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainsession "github.com/campushq/portal-api/internal/domain/session"
	apperrors "github.com/campushq/portal-api/internal/errors"
	mocks "github.com/campushq/portal-api/internal/mocks/session"
)

func newTestManager(t *testing.T) (*SessionManager, *mocks.MockIdentityProvider, *mocks.MemoryProfileStore) {
	t.Helper()
	provider := mocks.NewMockIdentityProvider()
	profiles := mocks.NewMemoryProfileStore()
	m, err := NewSessionManager(SessionManagerOptions{
		Provider: provider,
		Profiles: profiles,
	})
	require.NoError(t, err)
	return m, provider, profiles
}

// waitForSnapshot blocks until the subscription delivers a snapshot
// matching the predicate, or fails the test after a timeout.
func waitForSnapshot(
	t *testing.T,
	ch <-chan domainsession.Snapshot,
	match func(domainsession.Snapshot) bool,
) domainsession.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if match(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
			return domainsession.Snapshot{}
		}
	}
}

func seedProfile(t *testing.T, profiles *mocks.MemoryProfileStore, id string, role domainsession.Role) domainsession.Profile {
	t.Helper()
	p := domainsession.Profile{
		ID:          id,
		Email:       id + "@campus.example",
		DisplayName: "Test User",
		Role:        role,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, profiles.Put(context.Background(), p))
	return p
}

func TestNewSessionManager_RequiresDependencies(t *testing.T) {
	_, err := NewSessionManager(SessionManagerOptions{Profiles: mocks.NewMemoryProfileStore()})
	require.Error(t, err)

	_, err = NewSessionManager(SessionManagerOptions{Provider: mocks.NewMockIdentityProvider()})
	require.Error(t, err)
}

func TestSessionManager_InitialSnapshotIsLoadingGuest(t *testing.T) {
	m, _, _ := newTestManager(t)

	snap := m.Snapshot()
	assert.True(t, snap.Loading)
	assert.Nil(t, snap.Principal)
	assert.Nil(t, snap.Profile)
	assert.Equal(t, domainsession.RoleGuest, snap.Role)
	assert.True(t, snap.Consistent())
}

func TestSessionManager_StartWithoutCachedCredentials(t *testing.T) {
	m, _, _ := newTestManager(t)

	require.NoError(t, m.Start(context.Background()))

	snap := m.Snapshot()
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Principal)
	assert.Equal(t, domainsession.RoleGuest, snap.Role)
}

func TestSessionManager_StartWithCachedCredentials(t *testing.T) {
	m, provider, profiles := newTestManager(t)
	seedProfile(t, profiles, "user-1", domainsession.RoleStudent)
	provider.CachedPrincipal = &domainsession.Principal{ID: "user-1", Email: "user-1@campus.example"}

	ch, unsub := m.Subscribe()
	defer unsub()

	require.NoError(t, m.Start(context.Background()))

	snap := waitForSnapshot(t, ch, func(s domainsession.Snapshot) bool {
		return !s.Loading && s.Principal != nil
	})
	require.NotNil(t, snap.Profile)
	assert.Equal(t, domainsession.RoleStudent, snap.Role)
	assert.True(t, snap.Consistent())
}

func TestSessionManager_StartFailureStillPublishes(t *testing.T) {
	m, provider, _ := newTestManager(t)
	provider.StartFunc = func(context.Context) error {
		return errors.New("network down")
	}

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsProviderUnavailable(err))

	snap := m.Snapshot()
	assert.False(t, snap.Loading, "a failed startup must not leave consumers loading forever")
	assert.Equal(t, domainsession.RoleGuest, snap.Role)
}

// A stale profile fetch must never overwrite a newer absence event:
// E1 (principal A) arrives, its fetch stalls, E2 (absent) arrives and
// publishes; when E1's fetch finally completes it is discarded.
func TestSessionManager_StaleResolutionDiscarded(t *testing.T) {
	provider := mocks.NewMockIdentityProvider()
	profiles := mocks.NewMemoryProfileStore()

	release := make(chan struct{})
	fetchStarted := make(chan struct{})
	profiles.GetFunc = func(_ context.Context, id string) (*domainsession.Profile, error) {
		close(fetchStarted)
		<-release
		return &domainsession.Profile{ID: id, Role: domainsession.RoleAdmin}, nil
	}

	m, err := NewSessionManager(SessionManagerOptions{Provider: provider, Profiles: profiles})
	require.NoError(t, err)

	ch, unsub := m.Subscribe()
	defer unsub()

	provider.Emit(&domainsession.Principal{ID: "user-a"})
	<-fetchStarted
	provider.Emit(nil)

	// Absence is published immediately.
	absent := waitForSnapshot(t, ch, func(s domainsession.Snapshot) bool {
		return !s.Loading && s.Principal == nil
	})
	assert.Equal(t, domainsession.RoleGuest, absent.Role)

	// Let E1's fetch complete; its publication must be dropped.
	close(release)
	time.Sleep(50 * time.Millisecond)

	final := m.Snapshot()
	assert.Nil(t, final.Principal, "stale fetch must not overwrite the newer absence")
	assert.Nil(t, final.Profile)
	assert.Equal(t, domainsession.RoleGuest, final.Role)
}

// Every published snapshot over an arbitrary event sequence satisfies
// the invariants: profile implies principal, guest iff no profile.
func TestSessionManager_InvariantsHoldAcrossEventSequences(t *testing.T) {
	m, provider, profiles := newTestManager(t)
	seedProfile(t, profiles, "user-1", domainsession.RoleLecturer)

	ch, unsub := m.Subscribe()
	defer unsub()

	events := []*domainsession.Principal{
		nil,
		{ID: "user-1"},
		{ID: "no-profile"},
		nil,
		{ID: "user-1"},
	}
	for _, ev := range events {
		provider.Emit(ev)
		// Drain whatever arrives; each delivered snapshot must be consistent.
		select {
		case snap := <-ch:
			assert.True(t, snap.Consistent(), "inconsistent snapshot published: %+v", snap)
		case <-time.After(200 * time.Millisecond):
		}
	}

	assert.True(t, m.Snapshot().Consistent())
}

func TestSessionManager_LoginResolvesProfileAndRole(t *testing.T) {
	m, provider, profiles := newTestManager(t)
	provider.SignInFunc = func(_ context.Context, email, _ string) (domainsession.Principal, error) {
		return domainsession.Principal{ID: "user-42", Email: email}, nil
	}
	seedProfile(t, profiles, "user-42", domainsession.RoleFinance)

	resolved, err := m.Login(context.Background(), "fin@campus.example", "pw")
	require.NoError(t, err)
	require.NotNil(t, resolved.Profile)
	assert.Equal(t, domainsession.RoleFinance, resolved.Role)
	assert.Equal(t, "user-42", resolved.Principal.ID)

	snap := m.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, domainsession.RoleFinance, snap.Role)
}

func TestSessionManager_LoginWithoutProfileResolvesGuest(t *testing.T) {
	m, provider, _ := newTestManager(t)
	provider.SignInFunc = func(_ context.Context, email, _ string) (domainsession.Principal, error) {
		return domainsession.Principal{ID: "orphan", Email: email}, nil
	}

	resolved, err := m.Login(context.Background(), "orphan@campus.example", "pw")
	require.NoError(t, err, "a missing profile is a representable state, not a failure")
	assert.Nil(t, resolved.Profile)
	assert.Equal(t, domainsession.RoleGuest, resolved.Role)

	snap := m.Snapshot()
	require.NotNil(t, snap.Principal)
	assert.Nil(t, snap.Profile)
	assert.True(t, snap.Consistent())
}

func TestSessionManager_LoginFailureLeavesStateUnchanged(t *testing.T) {
	m, provider, _ := newTestManager(t)
	require.NoError(t, m.Start(context.Background()))
	before := m.Snapshot()

	provider.SignInFunc = func(context.Context, string, string) (domainsession.Principal, error) {
		return domainsession.Principal{}, apperrors.AuthenticationFailed("invalid credentials")
	}

	_, err := m.Login(context.Background(), "user@campus.example", "wrong")
	require.Error(t, err)
	assert.True(t, apperrors.IsAuthenticationFailed(err))
	assert.Equal(t, before, m.Snapshot())
}

func TestSessionManager_LoginValidation(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.Login(context.Background(), "", "pw")
	assert.True(t, apperrors.IsValidation(err))

	_, err = m.Login(context.Background(), "a@campus.example", "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestSessionManager_RegisterCreatesProfileOnce(t *testing.T) {
	m, _, profiles := newTestManager(t)

	resolved, err := m.Register(context.Background(), RegisterInput{
		Email:       "a@x.com",
		Secret:      "pw",
		DisplayName: "Ann",
		Role:        domainsession.RoleLecturer,
	})
	require.NoError(t, err)
	require.NotNil(t, resolved.Profile)
	assert.Equal(t, domainsession.RoleLecturer, resolved.Role)

	// A fresh store read observes the persisted record.
	stored, err := profiles.Get(context.Background(), resolved.Principal.ID)
	require.NoError(t, err)
	assert.Equal(t, domainsession.RoleLecturer, stored.Role)
	assert.Equal(t, "Ann", stored.DisplayName)
	assert.False(t, stored.CreatedAt.IsZero())
	assert.False(t, stored.UpdatedAt.IsZero())

	snap := m.Snapshot()
	assert.Equal(t, domainsession.RoleLecturer, snap.Role)
	assert.True(t, snap.Consistent())
}

func TestSessionManager_RegisterDefaultsToStudent(t *testing.T) {
	m, _, _ := newTestManager(t)

	resolved, err := m.Register(context.Background(), RegisterInput{
		Email:       "s@x.com",
		Secret:      "pw",
		DisplayName: "Sam",
	})
	require.NoError(t, err)
	assert.Equal(t, domainsession.RoleStudent, resolved.Role)
}

func TestSessionManager_RegisterRejectsGuestRole(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.Register(context.Background(), RegisterInput{
		Email:       "g@x.com",
		Secret:      "pw",
		DisplayName: "Gus",
		Role:        domainsession.RoleGuest,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsRegistrationFailed(err))
}

func TestSessionManager_RegisterProfileWriteFailureIsDistinct(t *testing.T) {
	m, _, profiles := newTestManager(t)
	profiles.PutFunc = func(context.Context, domainsession.Profile) error {
		return errors.New("store write rejected")
	}

	ch, unsub := m.Subscribe()
	defer unsub()

	_, err := m.Register(context.Background(), RegisterInput{
		Email:       "d@x.com",
		Secret:      "pw",
		DisplayName: "Dana",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsProfileProvisioningFailed(err),
		"a dangling principal must surface its own error kind, got %v", err)

	// The change event from account creation still resolves: principal
	// present, profile absent, guest role.
	snap := waitForSnapshot(t, ch, func(s domainsession.Snapshot) bool {
		return !s.Loading && s.Principal != nil
	})
	assert.Nil(t, snap.Profile)
	assert.Equal(t, domainsession.RoleGuest, snap.Role)
}

func TestSessionManager_LogoutAlwaysPublishesAbsence(t *testing.T) {
	m, _, profiles := newTestManager(t)
	seedProfile(t, profiles, "principal-u@x.com", domainsession.RoleAdmin)

	_, err := m.Login(context.Background(), "u@x.com", "pw")
	require.NoError(t, err)
	require.NotNil(t, m.Snapshot().Principal)

	require.NoError(t, m.Logout(context.Background()))

	snap := m.Snapshot()
	assert.Nil(t, snap.Principal)
	assert.Nil(t, snap.Profile)
	assert.Equal(t, domainsession.RoleGuest, snap.Role)
	assert.False(t, snap.Loading)

	// Logging out while already absent keeps the absence snapshot.
	require.NoError(t, m.Logout(context.Background()))
	assert.Nil(t, m.Snapshot().Principal)
}

func TestSessionManager_ResetPasswordDoesNotLeakAccountExistence(t *testing.T) {
	m, provider, profiles := newTestManager(t)
	seedProfile(t, profiles, "principal-known@x.com", domainsession.RoleStudent)

	known := map[string]bool{"known@x.com": true}
	provider.ResetFunc = func(_ context.Context, email string) error {
		// Real providers swallow unknown emails; simulate that here so
		// both paths look identical to the caller.
		_ = known[email]
		return nil
	}

	before := m.Snapshot()

	errKnown := m.ResetPassword(context.Background(), "known@x.com")
	errUnknown := m.ResetPassword(context.Background(), "nobody@x.com")
	assert.Equal(t, errKnown, errUnknown, "outcomes must be indistinguishable")

	// Idempotent and state-preserving.
	require.NoError(t, m.ResetPassword(context.Background(), "known@x.com"))
	assert.Equal(t, before, m.Snapshot())
}

func TestSessionManager_ResetPasswordFailureHasFixedMessage(t *testing.T) {
	m, provider, _ := newTestManager(t)
	provider.ResetFunc = func(context.Context, string) error {
		return errors.New("smtp relay down: user nobody@x.com does not exist")
	}

	err := m.ResetPassword(context.Background(), "nobody@x.com")
	require.Error(t, err)
	assert.True(t, apperrors.IsPasswordResetFailed(err))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "password reset request could not be completed", appErr.Message)
	assert.NotContains(t, appErr.Message, "nobody@x.com")
}

func TestSessionManager_SubscribeDeliversCurrentImmediately(t *testing.T) {
	m, _, _ := newTestManager(t)
	require.NoError(t, m.Start(context.Background()))

	ch, unsub := m.Subscribe()

	select {
	case snap := <-ch:
		assert.False(t, snap.Loading)
	case <-time.After(time.Second):
		t.Fatal("subscription did not deliver the current snapshot")
	}

	unsub()
	_, open := <-ch
	assert.False(t, open, "unsubscribe must close the channel")
}

func TestSessionManager_SlowSubscriberSeesNewestSnapshot(t *testing.T) {
	m, provider, profiles := newTestManager(t)
	seedProfile(t, profiles, "user-1", domainsession.RoleStudent)

	ch, unsub := m.Subscribe()
	defer unsub()

	// Never read between events; the buffer keeps only the latest.
	provider.Emit(nil)
	provider.Emit(&domainsession.Principal{ID: "user-1"})

	snap := waitForSnapshot(t, ch, func(s domainsession.Snapshot) bool {
		return s.Principal != nil && s.Profile != nil
	})
	assert.Equal(t, domainsession.RoleStudent, snap.Role)
}
