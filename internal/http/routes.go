package httpx

import (
	"log/slog"
	"net/http"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Session SessionService
	Logger  *slog.Logger // Logger for handler errors (optional)
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	sessionHandlers := &SessionHandlers{Svc: services.Session, Logger: services.Logger}
	dashboardHandlers := &DashboardHandlers{Svc: services.Session}

	registerSessionRoutes(mux, sessionHandlers)
	mux.Handle("GET /api/dashboard", http.HandlerFunc(dashboardHandlers.Show))
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return mux
}

func registerSessionRoutes(mux *http.ServeMux, h *SessionHandlers) {
	mux.Handle("GET /api/session", http.HandlerFunc(h.Current))
	mux.Handle("GET /api/session/watch", http.HandlerFunc(h.Watch))
	mux.Handle("POST /api/session/login", http.HandlerFunc(h.Login))
	mux.Handle("POST /api/session/register", http.HandlerFunc(h.Register))
	mux.Handle("POST /api/session/logout", http.HandlerFunc(h.Logout))
	mux.Handle("POST /api/session/reset-password", http.HandlerFunc(h.ResetPassword))
}
