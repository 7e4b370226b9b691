package claimmap

// Package claimmap derives display names and role hints from raw identity
// provider claim documents using configurable JMESPath expressions, so
// differently-shaped issuers (AD, Keycloak, campus SSO) need config
// changes only.

import (
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainsession "github.com/campushq/portal-api/internal/domain/session"
	"github.com/campushq/portal-api/internal/ports"
)

// Config holds the JMESPath expressions evaluated against the claim
// document. Empty expressions fall back to the defaults below.
type Config struct {
	// DisplayNameExpr selects the display name, e.g. "name" or
	// "join(' ', [given_name, family_name])".
	DisplayNameExpr string
	// RoleExpr selects a role hint, e.g. "portal_role" or
	// "resource_access.portal.roles[0]".
	RoleExpr string
}

const (
	defaultDisplayNameExpr = "name || join(' ', [given_name, family_name][?@])"
	defaultRoleExpr        = "portal_role"
)

// Mapper implements ports.ClaimMapper with compiled expressions.
type Mapper struct {
	displayName jmespath.JMESPath
	role        jmespath.JMESPath
}

// New compiles the configured expressions. Invalid expressions fail fast
// here rather than on first login.
func New(cfg Config) (*Mapper, error) {
	nameExpr := cfg.DisplayNameExpr
	if strings.TrimSpace(nameExpr) == "" {
		nameExpr = defaultDisplayNameExpr
	}
	roleExpr := cfg.RoleExpr
	if strings.TrimSpace(roleExpr) == "" {
		roleExpr = defaultRoleExpr
	}

	name, err := jmespath.Compile(nameExpr)
	if err != nil {
		return nil, err
	}
	role, err := jmespath.Compile(roleExpr)
	if err != nil {
		return nil, err
	}
	return &Mapper{displayName: name, role: role}, nil
}

// Map evaluates both expressions against the claim document. Missing or
// non-string results yield an empty display name and the guest role; the
// role hint is folded onto the closed role set.
func (m *Mapper) Map(claims map[string]any) (string, domainsession.Role) {
	displayName := stringResult(m.displayName, claims)
	role := domainsession.ParseRole(stringResult(m.role, claims))
	return displayName, role
}

func stringResult(expr jmespath.JMESPath, claims map[string]any) string {
	if expr == nil || claims == nil {
		return ""
	}
	out, err := expr.Search(claims)
	if err != nil {
		return ""
	}
	s, _ := out.(string)
	return strings.TrimSpace(s)
}

var _ ports.ClaimMapper = (*Mapper)(nil)
