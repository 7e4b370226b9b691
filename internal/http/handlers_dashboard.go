package httpx

import (
	"net/http"

	domainsession "github.com/campushq/portal-api/internal/domain/session"
)

// DashboardHandlers routes users to the dashboard view matching their
// resolved role.
type DashboardHandlers struct {
	Svc SessionService
}

type dashboardResponse struct {
	View string             `json:"view"`
	Role domainsession.Role `json:"role"`
}

// Show handles GET /api/dashboard. The view is a total function of the
// snapshot role: every assignable role has a dedicated dashboard, and
// anything else lands on the restricted view.
func (h *DashboardHandlers) Show(w http.ResponseWriter, _ *http.Request) {
	snap := h.Svc.Snapshot()

	var view string
	status := http.StatusOK
	switch snap.Role {
	case domainsession.RoleStudent:
		view = "student_dashboard"
	case domainsession.RoleLecturer:
		view = "lecturer_dashboard"
	case domainsession.RoleAdmin:
		view = "admin_dashboard"
	case domainsession.RoleFinance:
		view = "finance_dashboard"
	default:
		view = "access_restricted"
		status = http.StatusForbidden
	}

	WriteJSON(w, status, dashboardResponse{View: view, Role: snap.Role})
}
