package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainsession "github.com/campushq/portal-api/internal/domain/session"
)

func TestDashboard_ViewPerRole(t *testing.T) {
	tests := []struct {
		role       domainsession.Role
		wantView   string
		wantStatus int
	}{
		{domainsession.RoleStudent, "student_dashboard", http.StatusOK},
		{domainsession.RoleLecturer, "lecturer_dashboard", http.StatusOK},
		{domainsession.RoleAdmin, "admin_dashboard", http.StatusOK},
		{domainsession.RoleFinance, "finance_dashboard", http.StatusOK},
		{domainsession.RoleGuest, "access_restricted", http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(string(tc.role), func(t *testing.T) {
			snap := domainsession.Absent()
			if !tc.role.IsGuest() {
				snap = domainsession.Snapshot{
					Principal: &domainsession.Principal{ID: "dev-1"},
					Profile:   &domainsession.Profile{ID: "dev-1", Role: tc.role},
					Role:      tc.role,
				}
			}
			svc := &stubSession{snapshot: snap}

			rec := httptest.NewRecorder()
			newTestRouter(svc).ServeHTTP(rec,
				httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

			require.Equal(t, tc.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tc.wantView, body["view"])
			assert.Equal(t, string(tc.role), body["role"])
		})
	}
}

// An authenticated principal whose profile row carries a value outside
// the role enumeration still lands on the restricted view.
func TestDashboard_UnrecognizedRoleIsRestricted(t *testing.T) {
	svc := &stubSession{snapshot: domainsession.Snapshot{
		Principal: &domainsession.Principal{ID: "dev-1"},
		Role:      domainsession.RoleGuest,
	}}

	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	require.Equal(t, http.StatusForbidden, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "access_restricted", body["view"])
}
