package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/notes/internal/auth"
	"github.com/sakif/notes/internal/model"
	"github.com/sakif/notes/internal/service"
)

// AuthHandler serves registration, login, logout and the current-user
// profile. It owns the session cookie; the service never sees HTTP.
type AuthHandler struct {
	svc           *service.AuthService
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookies sets the Secure flag
// on the session cookie and should be false only for local development.
func NewAuthHandler(svc *service.AuthService, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, secureCookies: secureCookies, logger: logger}
}

// AuthResponse is the body of successful register, login and me calls.
type AuthResponse struct {
	Success bool           `json:"success"`
	User    *model.Profile `json:"user,omitempty"`
}

// HandleRegister creates an account and logs it in.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"username": "alice", "email": "alice@example.com", "password": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.svc.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, h.svc.SessionTTL(), h.secureCookies)
	writeJSON(w, http.StatusCreated, AuthResponse{Success: true, User: res.User})
}

// HandleLogin checks credentials and sets the session cookie.
//
// HTTP: POST /api/auth/login (also POST /api/login)
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.svc.Login(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	auth.SetSessionCookie(w, res.Token, h.svc.SessionTTL(), h.secureCookies)
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, User: res.User})
}

// HandleLogout clears the session cookie. The token itself stays valid
// until it expires; there is no server-side session to revoke.
//
// HTTP: POST /api/auth/logout (also POST /api/logout)
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookies)
	writeJSON(w, http.StatusOK, AuthResponse{Success: true})
}

// HandleMe returns the logged-in caller's profile.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	profile, err := h.svc.Me(r.Context(), caller)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, User: profile})
}
