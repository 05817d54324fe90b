package handlers

import (
	"net/http"

	"collage-sync/internal/services"

	"github.com/rs/zerolog/log"
)

// AuthHandler handles account and session requests
type AuthHandler struct {
	manager *services.Manager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(manager *services.Manager) *AuthHandler {
	return &AuthHandler{manager: manager}
}

// SignUpRequest is the body of POST /auth/signup
type SignUpRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignInRequest is the body of POST /auth/signin
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp handles POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	res, err := h.manager.Auth().SignUp(commitContext(r), req.Email, req.Username, req.Password)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	log.Info().Str("user_id", res.User.ID).Str("username", res.User.Username).Msg("User signed up")
	respondJSON(w, http.StatusCreated, res)
}

// SignIn handles POST /api/v1/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	res, err := h.manager.Auth().SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// SignOut handles POST /api/v1/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	h.manager.SignOut(c.UserID())
	w.WriteHeader(http.StatusNoContent)
}

// CurrentSession handles GET /api/v1/auth/session
func (h *AuthHandler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	me, err := c.Me(r.Context())
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": me})
}
