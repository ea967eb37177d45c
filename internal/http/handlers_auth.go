package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/target/media-console/internal/domain/auth"
	apperrors "github.com/target/media-console/internal/errors"
	"github.com/target/media-console/internal/service"
)

// AccountServiceInterface defines the account operations the auth handlers need.
type AccountServiceInterface interface {
	Profile(ctx context.Context, sess *service.SessionStore) (json.RawMessage, error)
	UpdateProfile(ctx context.Context, sess *service.SessionStore, body json.RawMessage) (json.RawMessage, error)
	ChangePassword(ctx context.Context, sess *service.SessionStore, current, next string) error
	Impersonate(ctx context.Context, sess *service.SessionStore, userID string) (domainauth.IdentitySummary, error)
}

// SessionLifecycle discards or re-keys a browser's live session store.
// Both drop the cached data held for the old id.
type SessionLifecycle interface {
	Drop(sid string)
	Rotate(ctx context.Context, sid string) (string, error)
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Accounts     AccountServiceInterface
	Sessions     SessionLifecycle
	CookieName   string
	CookieDomain string
	Paths        GuardPaths
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// sessionView is the JSON shape of a session snapshot.
type sessionView struct {
	State         domainauth.State     `json:"state"`
	Loading       bool                 `json:"loading"`
	Authenticated bool                 `json:"authenticated"`
	User          *domainauth.Identity `json:"user,omitempty"`
	DisplayName   string               `json:"display_name,omitempty"`
	Impersonating bool                 `json:"impersonating"`
	Impersonation *impersonationView   `json:"impersonation,omitempty"`
}

type impersonationView struct {
	User        domainauth.IdentitySummary `json:"user"`
	InitiatedBy string                     `json:"initiated_by"`
}

func newSessionView(s domainauth.Snapshot) sessionView {
	v := sessionView{
		State:         s.State,
		Loading:       s.Loading,
		Authenticated: s.IsAuthenticated(),
		User:          s.Identity,
		Impersonating: s.Impersonating,
	}
	if s.Identity != nil {
		v.DisplayName = s.Identity.DisplayName()
	}
	if s.Impersonation != nil {
		v.Impersonation = &impersonationView{User: s.Impersonation.User, InitiatedBy: s.Impersonation.InitiatedBy}
	}
	return v
}

// sessionFrom fetches the store placed on the context by SessionLoader.
func sessionFrom(w http.ResponseWriter, r *http.Request) (*service.SessionStore, bool) {
	store, ok := GetSessionFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "internal",
			Err:     errors.New("session unavailable"),
		})
	}
	return store, ok
}

// Status returns the current session snapshot.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	store, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, newSessionView(store.Snapshot()))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a session.
// POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	store, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("email and password are required"),
		})
		return
	}

	if err := store.Login(r.Context(), req.Email, req.Password); err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	if !h.rotateSession(w, r) {
		return
	}
	WriteJSON(w, http.StatusOK, newSessionView(store.Snapshot()))
}

type signupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	TenantName string `json:"tenant_name"`
}

// Signup provisions a tenant and signs its first admin in.
// POST /auth/signup.
func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	store, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req signupRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.TenantName = strings.TrimSpace(req.TenantName)
	if req.Email == "" || req.Password == "" || req.TenantName == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("email, password and tenant_name are required"),
		})
		return
	}

	if err := store.Signup(r.Context(), req.Email, req.Password, req.TenantName); err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	if !h.rotateSession(w, r) {
		return
	}
	WriteJSON(w, http.StatusCreated, newSessionView(store.Snapshot()))
}

// Logout ends the session, drops the live store and rotates the session cookie.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	store, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	if err := store.Logout(r.Context()); err != nil {
		// State is already cleared in memory; the browser still gets a fresh session.
		h.logger().WarnContext(r.Context(), "logout failed", "error", err)
	}
	if h.Sessions != nil {
		h.Sessions.Drop(SIDFromContext(r.Context()))
	}
	clearCookie(w, r, h.cookieName(), h.CookieDomain)

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":      "success",
		"redirect_to": h.Paths.Login,
	})
}

// rotateSession moves the session to a freshly issued id and sets the new cookie.
// Called after every change of who the session acts as. Returns false once an
// error response has been written.
func (h *AuthHandlers) rotateSession(w http.ResponseWriter, r *http.Request) bool {
	if h.Sessions == nil {
		return true
	}
	sid, err := h.Sessions.Rotate(r.Context(), SIDFromContext(r.Context()))
	if err != nil {
		clearCookie(w, r, h.cookieName(), h.CookieDomain)
		writeServiceError(w, r, h.logger(), apperrors.Wrap(err, apperrors.ErrCodeInternal, "rotate session"))
		return false
	}
	setSessionCookie(w, r, sessionCookieParams{Name: h.cookieName(), Domain: h.CookieDomain, Value: sid})
	return true
}

func (h *AuthHandlers) cookieName() string {
	if h.CookieName != "" {
		return h.CookieName
	}
	return DefaultSessionCookieName
}

// Profile returns the caller's profile.
// GET /auth/profile.
func (h *AuthHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	store, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	out, err := h.Accounts.Profile(r.Context(), store)
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

// UpdateProfile patches the caller's profile; the session identity is refreshed afterwards.
// PATCH /auth/profile.
func (h *AuthHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	store, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	body, ok := readRawJSON(w, r)
	if !ok {
		return
	}
	out, err := h.Accounts.UpdateProfile(r.Context(), store, body)
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword changes the caller's password.
// POST /auth/change-password.
func (h *AuthHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	store, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := h.Accounts.ChangePassword(r.Context(), store, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartImpersonation switches the session to act as another user.
// The session is rebuilt from storage, so the client should reload.
// POST /auth/impersonate/{userID}.
func (h *AuthHandlers) StartImpersonation(w http.ResponseWriter, r *http.Request) {
	store, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	user, err := h.Accounts.Impersonate(r.Context(), store, r.PathValue("userID"))
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	if !h.rotateSession(w, r) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"impersonating": user,
		"redirect_to":   h.Paths.Landing,
	})
}

// EndImpersonation restores the admin's own session.
// POST /auth/impersonate/end.
func (h *AuthHandlers) EndImpersonation(w http.ResponseWriter, r *http.Request) {
	store, ok := sessionFrom(w, r)
	if !ok {
		return
	}
	if err := store.EndImpersonation(r.Context()); err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	if !h.rotateSession(w, r) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":      "success",
		"redirect_to": h.Paths.Landing,
	})
}
