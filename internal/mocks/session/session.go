package session

// Package session contains simple hand-written test doubles for the
// session ports. These are lightweight and suitable for unit tests
// without codegen.

import (
	"context"
	"errors"
	"sync"

	domainsession "github.com/campushq/portal-api/internal/domain/session"
	apperrors "github.com/campushq/portal-api/internal/errors"
	"github.com/campushq/portal-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*MockIdentityProvider)(nil)
	_ ports.ProfileStore     = (*MemoryProfileStore)(nil)
	_ ports.TokenCache       = (*MemoryTokenCache)(nil)
)

// MockIdentityProvider simulates an identity provider for tests with
// explicit control over the change-notification stream.
type MockIdentityProvider struct {
	SignInFunc        func(ctx context.Context, email, secret string) (domainsession.Principal, error)
	CreateAccountFunc func(ctx context.Context, email, secret string) (domainsession.Principal, error)
	SignOutFunc       func(ctx context.Context) error
	ResetFunc         func(ctx context.Context, email string) error
	StartFunc         func(ctx context.Context) error

	// CachedPrincipal, when set, is emitted by Start to simulate app
	// start with cached credentials.
	CachedPrincipal *domainsession.Principal

	// EmitOnOps controls whether successful operations emit change
	// events, matching the real providers.
	EmitOnOps bool

	mu      sync.Mutex
	handler ports.ChangeHandler
}

// NewMockIdentityProvider creates a provider double that emits change
// events on operations, like the real adapters do.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{EmitOnOps: true}
}

func (m *MockIdentityProvider) Subscribe(h ports.ChangeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// Emit delivers a change event to the registered handler. Tests use it
// to drive arbitrary event sequences.
func (m *MockIdentityProvider) Emit(p *domainsession.Principal) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		h(p)
	}
}

func (m *MockIdentityProvider) Start(ctx context.Context) error {
	if m.StartFunc != nil {
		return m.StartFunc(ctx)
	}
	m.Emit(m.CachedPrincipal)
	return nil
}

func (m *MockIdentityProvider) SignInWithPassword(ctx context.Context, email, secret string) (domainsession.Principal, error) {
	if m.SignInFunc != nil {
		p, err := m.SignInFunc(ctx, email, secret)
		if err == nil && m.EmitOnOps {
			m.Emit(&p)
		}
		return p, err
	}
	p := domainsession.Principal{ID: "principal-" + email, Email: email}
	if m.EmitOnOps {
		m.Emit(&p)
	}
	return p, nil
}

func (m *MockIdentityProvider) CreateAccount(ctx context.Context, email, secret string) (domainsession.Principal, error) {
	if m.CreateAccountFunc != nil {
		p, err := m.CreateAccountFunc(ctx, email, secret)
		if err == nil && m.EmitOnOps {
			m.Emit(&p)
		}
		return p, err
	}
	p := domainsession.Principal{ID: "principal-" + email, Email: email}
	if m.EmitOnOps {
		m.Emit(&p)
	}
	return p, nil
}

func (m *MockIdentityProvider) SignOut(ctx context.Context) error {
	if m.SignOutFunc != nil {
		if err := m.SignOutFunc(ctx); err != nil {
			return err
		}
	}
	if m.EmitOnOps {
		m.Emit(nil)
	}
	return nil
}

func (m *MockIdentityProvider) SendPasswordReset(ctx context.Context, email string) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, email)
	}
	return nil
}

// MemoryProfileStore is an in-memory profile store for unit tests.
type MemoryProfileStore struct {
	mu       sync.Mutex
	profiles map[string]domainsession.Profile

	// GetFunc and PutFunc, when set, override the default behavior.
	GetFunc func(ctx context.Context, id string) (*domainsession.Profile, error)
	PutFunc func(ctx context.Context, p domainsession.Profile) error
}

// NewMemoryProfileStore creates a new in-memory profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]domainsession.Profile)}
}

func (m *MemoryProfileStore) Get(ctx context.Context, id string) (*domainsession.Profile, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, apperrors.ProfileNotFound(id)
	}
	return &p, nil
}

func (m *MemoryProfileStore) Put(ctx context.Context, p domainsession.Profile) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, p)
	}
	if p.ID == "" {
		return errors.New("profile ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = p
	return nil
}

// MemoryTokenCache is an in-memory token cache for unit tests.
type MemoryTokenCache struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokenCache) Load(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenCache) Save(_ context.Context, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = refreshToken
	return nil
}

func (m *MemoryTokenCache) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
