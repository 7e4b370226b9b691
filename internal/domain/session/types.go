package session

// Package session contains domain-level types for the portal session core.
// It is pure and free of framework/adapter concerns.

import "time"

// Role represents an application's authorization role.
// Keep string form for easy persistence and JSON transport.
// Valid values are defined as constants below.
type Role string

const (
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleAdmin    Role = "admin"
	RoleFinance  Role = "finance"
	// RoleGuest is the absence role: no profile, or an unrecognized one.
	RoleGuest Role = "guest"
)

// Roles lists every assignable role. RoleGuest is derived, never assigned.
var Roles = []Role{RoleStudent, RoleLecturer, RoleAdmin, RoleFinance}

// ParseRole maps a stored string onto the closed role set.
// Anything unrecognized collapses to RoleGuest so consumers never
// see a role outside the enumeration.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleStudent, RoleLecturer, RoleAdmin, RoleFinance:
		return Role(s)
	default:
		return RoleGuest
	}
}

// Assignable reports whether the role may be written to a profile.
func (r Role) Assignable() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// IsGuest returns true for the absence role.
func (r Role) IsGuest() bool { return r == RoleGuest }

// Principal represents the authenticated subject issued by the identity
// provider. The session core holds it read-only; adapters map
// provider-specific claims into this shape.
type Principal struct {
	ID          string // stable unique identifier (e.g. sub)
	Email       string // verified email, may be empty
	DisplayName string // provider-issued display name, may be empty
}

// Profile is the durable application-level record describing a user.
// It is keyed by the principal's ID and created exactly once, at
// registration. Owned by the profile store; the session core caches a
// copy for the active session only.
type Profile struct {
	ID          string    `json:"id"          db:"id"`
	Email       string    `json:"email"       db:"email"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Role        Role      `json:"role"        db:"role"`
	AvatarURL   *string   `json:"avatar_url,omitempty" db:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"  db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"  db:"updated_at"`
}

// Snapshot is the immutable, fully-resolved view of "who is logged in"
// published to consumers. It is replaced, never mutated, on every
// resolution cycle.
//
// Invariants:
//   - Profile != nil implies Principal != nil
//   - Role is derived solely from Profile.Role; RoleGuest when Profile is nil
//   - Loading is true only until the first resolution cycle completes
type Snapshot struct {
	Principal *Principal
	Profile   *Profile
	Role      Role
	Loading   bool
	// Seq is the resolution-cycle sequence number that produced this
	// snapshot. Monotonically increasing across publications.
	Seq uint64
}

// Initial returns the process-start snapshot: nothing resolved yet.
func Initial() Snapshot {
	return Snapshot{Role: RoleGuest, Loading: true}
}

// Absent returns the fully-resolved "no one is logged in" snapshot.
func Absent() Snapshot {
	return Snapshot{Role: RoleGuest}
}

// Authenticated reports whether a principal is present.
func (s Snapshot) Authenticated() bool { return s.Principal != nil }

// Consistent verifies the snapshot invariants. Used by tests and as a
// publish-boundary guard.
func (s Snapshot) Consistent() bool {
	if s.Profile != nil && s.Principal == nil {
		return false
	}
	if s.Profile == nil && s.Role != RoleGuest {
		return false
	}
	if s.Profile != nil && s.Role != ParseRole(string(s.Profile.Role)) {
		return false
	}
	return true
}
