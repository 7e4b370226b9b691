package devidp

// Package devidp provides a config-driven, in-memory IdentityProvider for
// local development and tests. It short-circuits the remote provider with
// seeded accounts while honoring the full change-notification contract.

import (
	"context"
	"crypto/subtle"
	"strings"
	"sync"

	"github.com/google/uuid"

	domainsession "github.com/campushq/portal-api/internal/domain/session"
	apperrors "github.com/campushq/portal-api/internal/errors"
	"github.com/campushq/portal-api/internal/ports"
)

const minSecretLength = 8

// AccountID derives a stable principal id from an email address, so the
// same seeded account keeps its id across restarts and matches seeded
// profile rows.
func AccountID(email string) string {
	return "dev-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.ToLower(email))).String()
}

// Account seeds a dev credential pair.
type Account struct {
	ID          string
	Email       string
	Secret      string
	DisplayName string
}

// Config controls the dev identity provider behavior.
type Config struct {
	Accounts []Account
	// Cache, when set, persists the signed-in principal id so Start can
	// restore "app start with cached credentials". Optional.
	Cache ports.TokenCache
}

// Provider implements ports.IdentityProvider against seeded accounts.
type Provider struct {
	cache ports.TokenCache

	mu      sync.Mutex
	byEmail map[string]Account
	byID    map[string]Account
	current *domainsession.Principal
	handler ports.ChangeHandler
}

// NewProvider constructs a dev identity provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	p := &Provider{
		cache:   cfg.Cache,
		byEmail: make(map[string]Account),
		byID:    make(map[string]Account),
	}
	for _, a := range cfg.Accounts {
		if a.Email == "" || a.Secret == "" {
			return nil, apperrors.Validation("dev idp: seeded accounts need email and secret")
		}
		if a.ID == "" {
			a.ID = AccountID(a.Email)
		}
		key := strings.ToLower(a.Email)
		if _, dup := p.byEmail[key]; dup {
			return nil, apperrors.Validation("dev idp: duplicate seeded email " + a.Email)
		}
		p.byEmail[key] = a
		p.byID[a.ID] = a
	}
	return p, nil
}

func (p *Provider) Subscribe(h ports.ChangeHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

// Start restores the cached principal, if any, and emits the initial
// change event.
func (p *Provider) Start(ctx context.Context) error {
	if p.cache != nil {
		id, err := p.cache.Load(ctx)
		if err == nil && id != "" {
			if a, ok := p.lookupID(id); ok {
				p.setCurrent(&domainsession.Principal{ID: a.ID, Email: a.Email, DisplayName: a.DisplayName})
				return nil
			}
		}
	}
	p.setCurrent(nil)
	return nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, secret string) (domainsession.Principal, error) {
	a, ok := p.lookupEmail(email)
	if !ok || subtle.ConstantTimeCompare([]byte(a.Secret), []byte(secret)) != 1 {
		return domainsession.Principal{}, apperrors.AuthenticationFailed("invalid email or password")
	}

	principal := domainsession.Principal{ID: a.ID, Email: a.Email, DisplayName: a.DisplayName}
	if p.cache != nil {
		if err := p.cache.Save(ctx, a.ID); err != nil {
			return domainsession.Principal{}, apperrors.ProviderUnavailable(err)
		}
	}
	p.setCurrent(&principal)
	return principal, nil
}

func (p *Provider) CreateAccount(ctx context.Context, email, secret string) (domainsession.Principal, error) {
	email = strings.TrimSpace(email)
	if _, exists := p.lookupEmail(email); exists {
		return domainsession.Principal{}, apperrors.RegistrationField("email", "email is already registered")
	}
	if len(secret) < minSecretLength {
		return domainsession.Principal{}, apperrors.RegistrationField("secret", "password is too weak")
	}

	a := Account{ID: "dev-" + uuid.NewString(), Email: email, Secret: secret}
	p.mu.Lock()
	p.byEmail[strings.ToLower(email)] = a
	p.byID[a.ID] = a
	p.mu.Unlock()

	principal := domainsession.Principal{ID: a.ID, Email: a.Email}
	if p.cache != nil {
		if err := p.cache.Save(ctx, a.ID); err != nil {
			return domainsession.Principal{}, apperrors.ProviderUnavailable(err)
		}
	}
	p.setCurrent(&principal)
	return principal, nil
}

func (p *Provider) SignOut(ctx context.Context) error {
	if p.cache != nil {
		if err := p.cache.Clear(ctx); err != nil {
			return apperrors.ProviderUnavailable(err)
		}
	}
	p.setCurrent(nil)
	return nil
}

// SendPasswordReset accepts any email. Like real providers, it never
// reveals whether the address is registered.
func (p *Provider) SendPasswordReset(_ context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return apperrors.Validation("email is required")
	}
	return nil
}

func (p *Provider) lookupEmail(email string) (Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.byEmail[strings.ToLower(strings.TrimSpace(email))]
	return a, ok
}

func (p *Provider) lookupID(id string) (Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.byID[id]
	return a, ok
}

// setCurrent records the provider's view of the signed-in principal and
// delivers the change event, in order, to the registered handler.
func (p *Provider) setCurrent(principal *domainsession.Principal) {
	p.mu.Lock()
	p.current = principal
	h := p.handler
	p.mu.Unlock()
	if h != nil {
		h(principal)
	}
}

var _ ports.IdentityProvider = (*Provider)(nil)
