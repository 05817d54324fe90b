package handlers

import (
	"net/http"
	"time"

	"collage-sync/internal/services"

	"github.com/go-chi/chi/v5"
)

// CollageHandler handles collage, session and upload requests
type CollageHandler struct{}

// NewCollageHandler creates a new collage handler
func NewCollageHandler() *CollageHandler {
	return &CollageHandler{}
}

// CreateCollageRequest is the body of POST /collages
type CreateCollageRequest struct {
	Theme           string `json:"theme"`
	DurationMinutes int    `json:"duration_minutes"`
	PartyMode       bool   `json:"party_mode"`
}

// Sessions handles GET /api/v1/sessions
func (h *CollageHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	partition, err := c.Sessions(r.Context())
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, partition)
}

// Create handles POST /api/v1/collages
func (h *CollageHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	var req CreateCollageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	collage, err := c.CreateCollage(commitContext(r), services.CreateCollageRequest{
		Theme:     req.Theme,
		Duration:  time.Duration(req.DurationMinutes) * time.Minute,
		PartyMode: req.PartyMode,
	})
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, collage)
}

// Join handles POST /api/v1/collages/join
func (h *CollageHandler) Join(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	var req struct {
		InviteCode string `json:"invite_code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	collage, err := c.JoinByCode(commitContext(r), req.InviteCode)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, collage)
}

// Get handles GET /api/v1/collages/{collage_id}
func (h *CollageHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	s, err := c.Session(r.Context(), chi.URLParam(r, "collage_id"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// UpdatePreview handles PUT /api/v1/collages/{collage_id}/preview
func (h *CollageHandler) UpdatePreview(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	image, err := readImage(w, r)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	url, err := c.UpdatePreview(commitContext(r), chi.URLParam(r, "collage_id"), image)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"preview_url": url})
}

// UploadPhoto handles POST /api/v1/collages/{collage_id}/photos
func (h *CollageHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	image, err := readImage(w, r)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	photo, err := c.UploadPhoto(commitContext(r), chi.URLParam(r, "collage_id"), image)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, photo)
}

// PastePhoto handles POST /api/v1/collages/{collage_id}/paste
func (h *CollageHandler) PastePhoto(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	image, err := readImage(w, r)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	photo, err := c.PastePhoto(commitContext(r), chi.URLParam(r, "collage_id"), image)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, photo)
}

// SendInvite handles POST /api/v1/collages/{collage_id}/invites
func (h *CollageHandler) SendInvite(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	var req struct {
		ReceiverID string `json:"receiver_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	inv, err := c.SendInvite(commitContext(r), chi.URLParam(r, "collage_id"), req.ReceiverID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, inv)
}
