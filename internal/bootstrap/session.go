package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/campushq/portal-api/config"
	"github.com/campushq/portal-api/internal/adapters/claimmap"
	"github.com/campushq/portal-api/internal/adapters/devidp"
	"github.com/campushq/portal-api/internal/adapters/oidcidp"
	"github.com/campushq/portal-api/internal/adapters/pgprofile"
	"github.com/campushq/portal-api/internal/adapters/rediscache"
	"github.com/campushq/portal-api/internal/ports"
	"github.com/campushq/portal-api/internal/service"
)

// SessionConfig contains dependencies for building the session core.
type SessionConfig struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// BuildSessionManager wires the identity provider, profile store, and
// caches into a SessionManager based on the configured auth mode.
func BuildSessionManager(ctx context.Context, cfg SessionConfig) (*service.SessionManager, error) {
	if cfg.Config == nil {
		return nil, errors.New("app config is required")
	}
	if cfg.DB == nil {
		return nil, errors.New("database connection is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	profiles := buildProfileStore(cfg, logger)

	var tokenCache ports.TokenCache
	if cfg.RedisClient != nil {
		tokenCache = rediscache.NewTokenCache(cfg.RedisClient, cfg.Config.Auth.TokenCacheKey)
	}

	provider, err := buildIdentityProvider(ctx, cfg, tokenCache)
	if err != nil {
		return nil, err
	}

	return service.NewSessionManager(service.SessionManagerOptions{
		Provider: provider,
		Profiles: profiles,
		Logger:   logger,
	})
}

//nolint:ireturn // callers depend on the ProfileStore port, not a concrete store.
func buildProfileStore(cfg SessionConfig, logger *slog.Logger) ports.ProfileStore {
	store := pgprofile.NewStore(cfg.DB)
	if cfg.RedisClient == nil {
		return store
	}

	cached, err := rediscache.NewProfileCache(rediscache.ProfileCacheOptions{
		Next:   store,
		Client: cfg.RedisClient,
		Prefix: cfg.Config.Cache.KeyPrefix,
		TTL:    cfg.Config.Cache.ProfileTTL,
	})
	if err != nil {
		logger.Warn("profile cache disabled", "error", err)
		return store
	}
	return cached
}

//nolint:ireturn // the provider is selected at runtime by auth mode.
func buildIdentityProvider(
	ctx context.Context,
	cfg SessionConfig,
	tokenCache ports.TokenCache,
) (ports.IdentityProvider, error) {
	auth := cfg.Config.Auth

	switch auth.Mode {
	case config.AuthModeMock:
		return buildDevProvider(auth, tokenCache)

	case config.AuthModeOIDC:
		return buildOIDCProvider(ctx, auth, tokenCache)

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", auth.Mode)
	}
}

func buildDevProvider(auth config.AuthConfig, tokenCache ports.TokenCache) (*devidp.Provider, error) {
	triples, err := auth.DevAuth.ParseAccounts()
	if err != nil {
		return nil, err
	}

	accounts := make([]devidp.Account, 0, len(triples))
	for _, t := range triples {
		accounts = append(accounts, devidp.Account{
			Email:       t[0],
			Secret:      t[1],
			DisplayName: t[2],
		})
	}

	return devidp.NewProvider(devidp.Config{
		Accounts: accounts,
		Cache:    tokenCache,
	})
}

func buildOIDCProvider(
	ctx context.Context,
	auth config.AuthConfig,
	tokenCache ports.TokenCache,
) (*oidcidp.Provider, error) {
	oidc := auth.OIDC
	if oidc.DiscoveryURL == "" || oidc.ClientID == "" || oidc.ClientSecret == "" {
		return nil, fmt.Errorf("oidc auth mode requires OIDC_DISCOVERY_URL, OIDC_CLIENT_ID, and OIDC_CLIENT_SECRET")
	}

	claims, err := claimmap.New(claimmap.Config{
		DisplayNameExpr: oidc.DisplayNameExpr,
		RoleExpr:        oidc.RoleExpr,
	})
	if err != nil {
		return nil, fmt.Errorf("compile claim mapping: %w", err)
	}

	return oidcidp.NewProvider(ctx, oidcidp.ProviderConfig{
		ClientID:         oidc.ClientID,
		ClientSecret:     oidc.ClientSecret,
		Scope:            oidc.Scope,
		DiscoveryURL:     oidc.DiscoveryURL,
		RegistrationURL:  oidc.RegistrationURL,
		PasswordResetURL: oidc.PasswordResetURL,
		TokenCache:       tokenCache,
		Claims:           claims,
	})
}
