package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campushq/portal-api/internal/domain/session"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want session.Role
	}{
		{"student", session.RoleStudent},
		{"lecturer", session.RoleLecturer},
		{"admin", session.RoleAdmin},
		{"finance", session.RoleFinance},
		{"guest", session.RoleGuest},
		{"", session.RoleGuest},
		{"superuser", session.RoleGuest},
		{"Student", session.RoleGuest},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, session.ParseRole(tc.in), "input %q", tc.in)
	}
}

func TestRole_Assignable(t *testing.T) {
	for _, r := range session.Roles {
		assert.True(t, r.Assignable(), "role %s", r)
	}
	assert.False(t, session.RoleGuest.Assignable())
	assert.False(t, session.Role("superuser").Assignable())
	assert.False(t, session.Role("").Assignable())
}

func TestRole_IsGuest(t *testing.T) {
	assert.True(t, session.RoleGuest.IsGuest())
	assert.False(t, session.RoleStudent.IsGuest())
}

func TestInitialAndAbsent(t *testing.T) {
	initial := session.Initial()
	assert.True(t, initial.Loading)
	assert.Equal(t, session.RoleGuest, initial.Role)
	assert.False(t, initial.Authenticated())
	assert.True(t, initial.Consistent())

	absent := session.Absent()
	assert.False(t, absent.Loading)
	assert.Equal(t, session.RoleGuest, absent.Role)
	assert.False(t, absent.Authenticated())
	assert.True(t, absent.Consistent())
}

func TestSnapshot_Consistent(t *testing.T) {
	principal := &session.Principal{ID: "dev-1"}
	profile := &session.Profile{ID: "dev-1", Role: session.RoleLecturer}

	tests := []struct {
		name string
		snap session.Snapshot
		want bool
	}{
		{
			name: "authenticated with matching role",
			snap: session.Snapshot{Principal: principal, Profile: profile, Role: session.RoleLecturer},
			want: true,
		},
		{
			name: "principal without profile stays guest",
			snap: session.Snapshot{Principal: principal, Role: session.RoleGuest},
			want: true,
		},
		{
			name: "profile without principal",
			snap: session.Snapshot{Profile: profile, Role: session.RoleLecturer},
			want: false,
		},
		{
			name: "role without profile",
			snap: session.Snapshot{Principal: principal, Role: session.RoleStudent},
			want: false,
		},
		{
			name: "role disagrees with profile",
			snap: session.Snapshot{Principal: principal, Profile: profile, Role: session.RoleAdmin},
			want: false,
		},
		{
			name: "unrecognized stored role must resolve to guest",
			snap: session.Snapshot{
				Principal: principal,
				Profile:   &session.Profile{ID: "dev-1", Role: "superuser"},
				Role:      session.RoleGuest,
			},
			want: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.snap.Consistent())
		})
	}
}
