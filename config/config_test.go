package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAuthMode_UnmarshalText(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    AuthMode
		expectError bool
	}{
		{name: "oidc", input: "oidc", expected: AuthModeOIDC},
		{name: "mock", input: "mock", expected: AuthModeMock},
		{name: "uppercase", input: "OIDC", expected: AuthModeOIDC},
		{name: "invalid", input: "ldap", expectError: true},
		{name: "empty", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mode AuthMode
			err := mode.UnmarshalText([]byte(tt.input))

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if mode != tt.expected {
				t.Errorf("expected mode %q, got %q", tt.expected, mode)
			}
		})
	}
}

func TestDevAuthConfig_ParseAccounts(t *testing.T) {
	tests := []struct {
		name        string
		accounts    []string
		expected    [][3]string
		expectError bool
	}{
		{
			name:     "full triple",
			accounts: []string{"ada@campus.example:secretpass:Ada Lovelace"},
			expected: [][3]string{{"ada@campus.example", "secretpass", "Ada Lovelace"}},
		},
		{
			name:     "secret only",
			accounts: []string{"dev@campus.example:devdevdev"},
			expected: [][3]string{{"dev@campus.example", "devdevdev", ""}},
		},
		{
			name: "multiple accounts with blanks skipped",
			accounts: []string{
				"a@campus.example:passpass1:A",
				"  ",
				"b@campus.example:passpass2",
			},
			expected: [][3]string{
				{"a@campus.example", "passpass1", "A"},
				{"b@campus.example", "passpass2", ""},
			},
		},
		{
			name:        "missing secret",
			accounts:    []string{"nopass@campus.example"},
			expectError: true,
		},
		{
			name:        "empty email",
			accounts:    []string{":secretpass:Name"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DevAuthConfig{Accounts: tt.accounts}
			result, err := cfg.ParseAccounts()

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("unexpected accounts:\nexpected: %#v\ngot:      %#v", tt.expected, result)
			}
		})
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "oidc")
	t.Setenv("OIDC_CLIENT_ID", "portal-client")
	t.Setenv("OIDC_CLIENT_SECRET", "super-secret")
	t.Setenv("OIDC_SCOPE", "openid profile email")
	t.Setenv("OIDC_DISCOVERY_URL", "https://login.campus.example/.well-known/openid-configuration")
	t.Setenv("OIDC_REGISTRATION_URL", "https://login.campus.example/register")
	t.Setenv("OIDC_PASSWORD_RESET_URL", "https://login.campus.example/reset")
	t.Setenv("OIDC_ROLE_EXPR", "resource_access.portal.role")
	t.Setenv("DEV_AUTH_ACCOUNTS", "a@campus.example:passpass1:A;b@campus.example:passpass2")
	t.Setenv("AUTH_TOKEN_CACHE_KEY", "test:refresh")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}

	expected := AuthConfig{
		Mode: AuthModeOIDC,
		OIDC: OIDCConfig{
			ClientID:         "portal-client",
			ClientSecret:     "super-secret",
			Scope:            "openid profile email",
			DiscoveryURL:     "https://login.campus.example/.well-known/openid-configuration",
			RegistrationURL:  "https://login.campus.example/register",
			PasswordResetURL: "https://login.campus.example/reset",
			RoleExpr:         "resource_access.portal.role",
		},
		DevAuth: DevAuthConfig{
			Accounts: []string{"a@campus.example:passpass1:A", "b@campus.example:passpass2"},
		},
		TokenCacheKey: "test:refresh",
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
}

func TestAppConfig_Sanitize(t *testing.T) {
	cfg := AppConfig{
		HTTP: HTTPConfig{
			BaseURL:           "http://localhost:8080/",
			ReadHeaderTimeout: 0,
			ShutdownTimeout:   -time.Second,
		},
		Cache: CacheConfig{
			ProfileTTL: 0,
			KeyPrefix:  "",
		},
	}

	cfg.Sanitize()

	if cfg.HTTP.BaseURL != "http://localhost:8080" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.HTTP.BaseURL)
	}
	if cfg.HTTP.ReadHeaderTimeout <= 0 {
		t.Errorf("expected read header timeout default, got %v", cfg.HTTP.ReadHeaderTimeout)
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		t.Errorf("expected shutdown timeout default, got %v", cfg.HTTP.ShutdownTimeout)
	}
	if cfg.Cache.ProfileTTL != 5*time.Minute {
		t.Errorf("expected profile TTL default, got %v", cfg.Cache.ProfileTTL)
	}
	if cfg.Cache.KeyPrefix == "" {
		t.Error("expected cache key prefix default")
	}
}

func TestAppConfig_DetectDevMode(t *testing.T) {
	t.Setenv("NODE_ENV", "development")

	var cfg AppConfig
	cfg.Sanitize()

	if !cfg.IsDev {
		t.Error("expected NODE_ENV=development to enable dev mode")
	}
}
