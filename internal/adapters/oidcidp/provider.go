package oidcidp

// Package oidcidp implements the IdentityProvider port against an OIDC
// issuer. Sign-in uses the resource-owner password grant; account
// creation and password reset use the issuer's registration REST
// endpoints (Keycloak-style).

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainsession "github.com/campushq/portal-api/internal/domain/session"
	apperrors "github.com/campushq/portal-api/internal/errors"
	"github.com/campushq/portal-api/internal/ports"
)

// ProviderConfig holds configuration for the OIDC identity provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	// RegistrationURL accepts POST {"email","password"} to create an account.
	RegistrationURL string
	// PasswordResetURL accepts POST {"email"} to send a reset message.
	PasswordResetURL string
	HTTPClient       *http.Client // Optional, defaults to a 30s-timeout client
	TokenCache       ports.TokenCache
	Claims           ports.ClaimMapper
}

// Provider implements ports.IdentityProvider using OIDC/OAuth2.
type Provider struct {
	config     *oauth2.Config
	httpClient *http.Client
	cache      ports.TokenCache
	claims     ports.ClaimMapper

	registrationURL  string
	passwordResetURL string

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier

	mu      sync.Mutex
	handler ports.ChangeHandler
}

// NewProvider creates a new OIDC identity provider. It performs a single
// discovery fetch against the issuer.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}
	if config.Claims == nil {
		return nil, errors.New("claim mapper is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")

	dctx := context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	op, err := gooidc.NewProvider(dctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	scope := config.Scope
	if scope == "" {
		scope = "openid profile email offline_access"
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Scopes:       strings.Fields(scope),
			Endpoint:     op.Endpoint(),
		},
		httpClient:       httpClient,
		cache:            config.TokenCache,
		claims:           config.Claims,
		registrationURL:  config.RegistrationURL,
		passwordResetURL: config.PasswordResetURL,
		oidcProvider:     op,
		verifier:         op.Verifier(&gooidc.Config{ClientID: config.ClientID}),
	}, nil
}

func (p *Provider) Subscribe(h ports.ChangeHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

// Start restores a cached refresh token and emits the initial change
// event: the refreshed principal when the token is still good, absence
// otherwise. A stale token is cleared, never retried.
func (p *Provider) Start(ctx context.Context) error {
	if p.cache == nil {
		p.emit(nil)
		return nil
	}

	refresh, err := p.cache.Load(ctx)
	if err != nil {
		p.emit(nil)
		return fmt.Errorf("load cached token: %w", err)
	}
	if refresh == "" {
		p.emit(nil)
		return nil
	}

	octx := context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.config.TokenSource(octx, &oauth2.Token{RefreshToken: refresh}).Token()
	if err != nil {
		// Cached credentials are no longer valid: resolve to absence.
		_ = p.cache.Clear(ctx)
		p.emit(nil)
		return nil
	}

	principal, err := p.principalFromToken(ctx, tok)
	if err != nil {
		_ = p.cache.Clear(ctx)
		p.emit(nil)
		return nil
	}

	p.saveRefreshToken(ctx, tok)
	p.emit(&principal)
	return nil
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, secret string) (domainsession.Principal, error) {
	octx := context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := p.config.PasswordCredentialsToken(octx, email, secret)
	if err != nil {
		return domainsession.Principal{}, mapTokenError(err)
	}

	principal, err := p.principalFromToken(ctx, tok)
	if err != nil {
		return domainsession.Principal{}, apperrors.Wrap(err, apperrors.ErrCodeProviderUnavailable, "verify identity token")
	}

	p.saveRefreshToken(ctx, tok)
	p.emit(&principal)
	return principal, nil
}

func (p *Provider) CreateAccount(ctx context.Context, email, secret string) (domainsession.Principal, error) {
	if p.registrationURL == "" {
		return domainsession.Principal{}, apperrors.RegistrationFailed("registration is not configured")
	}

	payload, err := json.Marshal(map[string]string{"email": email, "password": secret})
	if err != nil {
		return domainsession.Principal{}, fmt.Errorf("marshal registration payload: %w", err)
	}

	resp, err := p.postJSON(ctx, p.registrationURL, payload)
	if err != nil {
		return domainsession.Principal{}, apperrors.ProviderUnavailable(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to sign-in
	case resp.StatusCode == http.StatusConflict:
		return domainsession.Principal{}, apperrors.RegistrationField("email", "email is already registered")
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return domainsession.Principal{}, apperrors.RegistrationFailed(registrationMessage(resp.Body))
	default:
		return domainsession.Principal{}, apperrors.ProviderUnavailable(fmt.Errorf("registration endpoint returned %d", resp.StatusCode))
	}

	// Sign the fresh account in so the caller and the notification
	// stream both observe the new principal.
	return p.SignInWithPassword(ctx, email, secret)
}

// SignOut revokes the cached credentials and emits the absence event.
// Revocation failures at the issuer are not fatal: the local session is
// gone either way.
func (p *Provider) SignOut(ctx context.Context) error {
	if p.cache != nil {
		if err := p.cache.Clear(ctx); err != nil {
			return apperrors.ProviderUnavailable(err)
		}
	}
	p.emit(nil)
	return nil
}

// SendPasswordReset asks the issuer to send a reset message. An unknown
// email is treated as success so callers cannot probe for accounts.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	if p.passwordResetURL == "" {
		return apperrors.PasswordResetFailed(errors.New("password reset is not configured"))
	}

	payload, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return fmt.Errorf("marshal reset payload: %w", err)
	}

	resp, err := p.postJSON(ctx, p.passwordResetURL, payload)
	if err != nil {
		return apperrors.ProviderUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return apperrors.PasswordResetFailed(fmt.Errorf("reset endpoint returned %d", resp.StatusCode))
}

// principalFromToken verifies the id_token and maps its claims onto the
// domain principal shape.
func (p *Provider) principalFromToken(ctx context.Context, tok *oauth2.Token) (domainsession.Principal, error) {
	rawID, ok := tok.Extra("id_token").(string)
	if !ok || rawID == "" {
		return domainsession.Principal{}, errors.New("missing id_token in token response")
	}

	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return domainsession.Principal{}, fmt.Errorf("verify id_token: %w", err)
	}

	var claims map[string]any
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return domainsession.Principal{}, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}

	displayName, _ := p.claims.Map(claims)
	email, _ := claims["email"].(string)

	return domainsession.Principal{
		ID:          idTok.Subject,
		Email:       email,
		DisplayName: displayName,
	}, nil
}

func (p *Provider) saveRefreshToken(ctx context.Context, tok *oauth2.Token) {
	if p.cache == nil || tok.RefreshToken == "" {
		return
	}
	// Best effort: a missed save only costs the next startup a login.
	_ = p.cache.Save(ctx, tok.RefreshToken)
}

func (p *Provider) postJSON(ctx context.Context, url string, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return p.httpClient.Do(req)
}

func (p *Provider) emit(principal *domainsession.Principal) {
	p.mu.Lock()
	h := p.handler
	p.mu.Unlock()
	if h != nil {
		h(principal)
	}
}

// mapTokenError classifies token-endpoint failures: credential rejections
// become authentication failures, everything else a provider outage.
func mapTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		switch retrieveErr.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return apperrors.AuthenticationFailed("invalid email or password")
		}
	}
	return apperrors.ProviderUnavailable(err)
}

// registrationMessage extracts a provider error message, falling back to
// a generic one.
func registrationMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return "registration was rejected by the identity provider"
}

var _ ports.IdentityProvider = (*Provider)(nil)
