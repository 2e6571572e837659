// Package http provides the HTTP handlers and routing of the TodoKeeper API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/atinyakov/TodoKeeper/internal/auth"
	"github.com/atinyakov/TodoKeeper/internal/models"
	"go.uber.org/zap"
)

// AuthService defines the account operations required by the HTTP handlers.
type AuthService interface {
	// Register creates an account and returns its identity.
	Register(ctx context.Context, username, password string) (models.Identity, error)
	// Login checks credentials and returns the matching identity.
	Login(ctx context.Context, username, password string) (models.Identity, error)
}

// SessionIssuer mints session credentials.
type SessionIssuer interface {
	Issue(id models.Identity) (string, time.Time, error)
	TTL() time.Duration
}

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	AuthService  AuthService
	Sessions     SessionIssuer
	Log          *zap.Logger
	SecureCookie bool
}

// CredentialsRequest is the JSON payload of register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned on successful register and login.
type AuthResponse struct {
	OK   bool            `json:"ok"`
	User models.Identity `json:"user"`
}

// Register creates an account, starts a session for it and responds 201.
// A taken username yields 409.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := validateCredentials(req.Username, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.AuthService.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	h.startSession(w, r, http.StatusCreated, id)
}

// Login starts a session for valid credentials. Every credential failure
// gets the same 401 response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := validateCredentials(req.Username, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	id, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	h.startSession(w, r, http.StatusOK, id)
}

// Logout clears the session cookie. The credential itself stays valid
// until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.SecureCookie)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, id models.Identity) {
	token, _, err := h.Sessions.Issue(id)
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	auth.SetSessionCookie(w, token, h.Sessions.TTL(), h.SecureCookie)
	writeJSON(w, status, AuthResponse{OK: true, User: id})
}
