package handlers

import (
	"net/http"
)

// ProfileHandler handles the caller's profile
type ProfileHandler struct{}

// NewProfileHandler creates a new profile handler
func NewProfileHandler() *ProfileHandler {
	return &ProfileHandler{}
}

// UpdateUsername handles PUT /api/v1/me/username
func (h *ProfileHandler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	var req struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	me, err := c.UpdateUsername(commitContext(r), req.Username)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, me)
}

// UpdateAvatar handles PUT /api/v1/me/avatar
func (h *ProfileHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	image, err := readImage(w, r)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	me, err := c.UpdateAvatar(commitContext(r), image)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, me)
}

// UpdatePushToken handles PUT /api/v1/me/push-token
func (h *ProfileHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	if err := c.UpdatePushToken(commitContext(r), req.Token); err != nil {
		respondAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListThemes handles GET /api/v1/themes
func (h *ProfileHandler) ListThemes(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	themes, err := c.ListThemes(r.Context())
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, themes)
}
