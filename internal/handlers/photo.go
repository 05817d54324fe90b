package handlers

import (
	"net/http"

	"collage-sync/internal/models"

	"github.com/go-chi/chi/v5"
)

// PhotoHandler handles photo requests
type PhotoHandler struct{}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler() *PhotoHandler {
	return &PhotoHandler{}
}

// Delete handles DELETE /api/v1/photos/{photo_id}
func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	if err := c.DeletePhoto(commitContext(r), chi.URLParam(r, "photo_id")); err != nil {
		respondAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transform handles PUT /api/v1/photos/{photo_id}/transform
func (h *PhotoHandler) Transform(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	var t models.Transform
	if err := decodeJSON(r, &t); err != nil {
		respondAppError(w, r, err)
		return
	}

	photo, err := c.CommitTransform(commitContext(r), chi.URLParam(r, "photo_id"), t)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, photo)
}
