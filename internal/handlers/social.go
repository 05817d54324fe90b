package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SocialHandler handles friendships and collage invites
type SocialHandler struct{}

// NewSocialHandler creates a new social handler
func NewSocialHandler() *SocialHandler {
	return &SocialHandler{}
}

// RespondRequest is the body of the respond endpoints
type RespondRequest struct {
	Accept bool `json:"accept"`
}

// ListFriends handles GET /api/v1/friends
func (h *SocialHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	friends, err := c.ListFriends(r.Context())
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, friends)
}

// ListFriendRequests handles GET /api/v1/friends/requests
func (h *SocialHandler) ListFriendRequests(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	requests, err := c.ListFriendRequests(r.Context())
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, requests)
}

// SendFriendRequest handles POST /api/v1/friends/requests
func (h *SocialHandler) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
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

	f, err := c.SendFriendRequest(commitContext(r), req.Username)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, f)
}

// RespondFriendRequest handles POST /api/v1/friends/requests/{friendship_id}/respond
func (h *SocialHandler) RespondFriendRequest(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	var req RespondRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	f, err := c.RespondFriendRequest(commitContext(r), chi.URLParam(r, "friendship_id"), req.Accept)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, f)
}

// FriendshipStatus handles GET /api/v1/friends/{user_id}/status
func (h *SocialHandler) FriendshipStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	f, err := c.FriendshipWith(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	if f == nil {
		respondJSON(w, http.StatusOK, map[string]any{"status": "none"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": f.Status, "friendship": f})
}

// ListInvites handles GET /api/v1/invites
func (h *SocialHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	invites, err := c.ListInvites(r.Context())
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, invites)
}

// RespondInvite handles POST /api/v1/invites/{invite_id}/respond
func (h *SocialHandler) RespondInvite(w http.ResponseWriter, r *http.Request) {
	c, ok := client(w, r)
	if !ok {
		return
	}
	var req RespondRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}

	inv, err := c.RespondInvite(commitContext(r), chi.URLParam(r, "invite_id"), req.Accept)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inv)
}
