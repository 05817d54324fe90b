package handlers

import (
	"net/http"

	"collage-sync/internal/lifecycle"
)

// AdminHandler exposes maintenance operations
type AdminHandler struct {
	sweeper *lifecycle.Sweeper
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(sweeper *lifecycle.Sweeper) *AdminHandler {
	return &AdminHandler{sweeper: sweeper}
}

// Cleanup handles POST /api/v1/admin/cleanup
func (h *AdminHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	res, err := h.sweeper.RunNow(commitContext(r))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Status handles GET /api/v1/admin/cleanup
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.sweeper.Status())
}
