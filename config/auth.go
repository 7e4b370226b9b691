package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the identity provider mode for the application.
type AuthMode string

const (
	// AuthModeOIDC authenticates against an OIDC issuer.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeMock uses seeded in-memory accounts (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oidc", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oidc, mock)", v)
	}
}

// OIDCConfig contains OIDC issuer configuration.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"campus-portal"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"campus-portal"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email offline_access"`
	DiscoveryURL string `env:"DISCOVERY_URL"`

	// RegistrationURL is the issuer REST endpoint that creates accounts.
	RegistrationURL string `env:"REGISTRATION_URL"`
	// PasswordResetURL is the issuer REST endpoint that sends reset messages.
	PasswordResetURL string `env:"PASSWORD_RESET_URL"`

	// DisplayNameExpr and RoleExpr are JMESPath expressions evaluated
	// against the issuer's ID-token claims. Empty values use defaults
	// suited to standard OIDC claims.
	DisplayNameExpr string `env:"DISPLAY_NAME_EXPR"`
	RoleExpr        string `env:"ROLE_EXPR"`
}

// DevAuthConfig seeds the mock identity provider.
// Accounts are "email:secret:display name" triples.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	Accounts []string `env:"ACCOUNTS" envSeparator:";" envDefault:"student@campus.example:studentpass:Sam Student;lecturer@campus.example:lecturerpass:Lena Lecturer;admin@campus.example:adminpass1:Avery Admin;finance@campus.example:financepass:Finn Finance"`
}

// ParseAccounts splits the configured account triples. Display name is
// optional; malformed entries are rejected.
func (d DevAuthConfig) ParseAccounts() ([][3]string, error) {
	out := make([][3]string, 0, len(d.Accounts))
	for _, raw := range d.Accounts {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid dev account %q (want email:secret[:display name])", raw)
		}
		var entry [3]string
		copy(entry[:], parts)
		out = append(out, entry)
	}
	return out, nil
}

// AuthConfig groups all identity-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oidc"`

	// OIDC configuration (used when Mode=oidc).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// TokenCacheKey namespaces the cached refresh token in Redis.
	TokenCacheKey string `env:"AUTH_TOKEN_CACHE_KEY" envDefault:"portal:idp:refresh_token"`
}
