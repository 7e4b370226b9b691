package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	domainsession "github.com/campushq/portal-api/internal/domain/session"
	"github.com/campushq/portal-api/internal/service"
)

// SessionService defines the session-core operations the HTTP layer needs.
type SessionService interface {
	Snapshot() domainsession.Snapshot
	Subscribe() (<-chan domainsession.Snapshot, func())
	Login(ctx context.Context, email, secret string) (*service.ResolvedUser, error)
	Register(ctx context.Context, in service.RegisterInput) (*service.ResolvedUser, error)
	Logout(ctx context.Context) error
	ResetPassword(ctx context.Context, email string) error
}

// SessionHandlers provides HTTP handlers for session operations.
type SessionHandlers struct {
	Svc    SessionService
	Logger *slog.Logger
}

func (h *SessionHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type principalResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

type snapshotResponse struct {
	Principal *principalResponse     `json:"principal"`
	Profile   *domainsession.Profile `json:"profile"`
	Role      domainsession.Role     `json:"role"`
	Loading   bool                   `json:"loading"`
	Seq       uint64                 `json:"seq"`
}

func toSnapshotResponse(s domainsession.Snapshot) snapshotResponse {
	out := snapshotResponse{
		Profile: s.Profile,
		Role:    s.Role,
		Loading: s.Loading,
		Seq:     s.Seq,
	}
	if s.Principal != nil {
		out.Principal = &principalResponse{
			ID:          s.Principal.ID,
			Email:       s.Principal.Email,
			DisplayName: s.Principal.DisplayName,
		}
	}
	return out
}

type resolvedUserResponse struct {
	Principal principalResponse      `json:"principal"`
	Profile   *domainsession.Profile `json:"profile"`
	Role      domainsession.Role     `json:"role"`
}

func toResolvedUserResponse(u *service.ResolvedUser) resolvedUserResponse {
	return resolvedUserResponse{
		Principal: principalResponse{
			ID:          u.Principal.ID,
			Email:       u.Principal.Email,
			DisplayName: u.Principal.DisplayName,
		},
		Profile: u.Profile,
		Role:    u.Role,
	}
}

// Current handles GET /api/session and returns the latest snapshot.
func (h *SessionHandlers) Current(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, toSnapshotResponse(h.Svc.Snapshot()))
}

// Login handles POST /api/session/login.
func (h *SessionHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email  string `json:"email"`
		Secret string `json:"secret"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.Svc.Login(r.Context(), req.Email, req.Secret)
	if err != nil {
		RenderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, toResolvedUserResponse(user))
}

// Register handles POST /api/session/register.
func (h *SessionHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Secret      string `json:"secret"`
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.Svc.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Secret:      req.Secret,
		DisplayName: req.DisplayName,
		Role:        domainsession.Role(req.Role),
	})
	if err != nil {
		RenderError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toResolvedUserResponse(user))
}

// Logout handles POST /api/session/logout.
func (h *SessionHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Logout(r.Context()); err != nil {
		RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword handles POST /api/session/reset-password. A successful
// request never discloses whether the address has an account.
func (h *SessionHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.ResetPassword(r.Context(), req.Email); err != nil {
		RenderError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// Watch handles GET /api/session/watch and streams snapshots as
// server-sent events. The current snapshot is sent immediately; each
// subsequent publication follows as its own event.
func (h *SessionHandlers) Watch(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotImplemented,
			ErrCode: "streaming_unsupported",
			Err:     fmt.Errorf("response writer does not support streaming"),
		})
		return
	}

	updates, unsubscribe := h.Svc.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap, open := <-updates:
			if !open {
				return
			}
			if err := writeSSE(w, toSnapshotResponse(snap)); err != nil {
				h.logger().Debug("session watch stream closed", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: session\ndata: %s\n\n", payload)
	return err
}
