package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"collage-sync/internal/apperr"
	"collage-sync/internal/middleware"
	"collage-sync/internal/services"

	"github.com/rs/zerolog/log"
)

// maxImageSize bounds uploaded image bodies
const maxImageSize = 20 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends v as a JSON body
func respondJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.Expired:
		return http.StatusGone
	case apperr.Unauthorized:
		return http.StatusForbidden
	case apperr.Invalid:
		return http.StatusBadRequest
	case apperr.Transport:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondAppError reports err with the status of its kind. Server-side
// failures are logged and their details withheld.
func respondAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
	}
	respondJSON(w, status, ErrorResponse{
		Error: apperr.Message(err),
		Kind:  apperr.KindOf(err).String(),
	})
}

// decodeJSON reads a JSON request body into v
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.New(apperr.Invalid, "decode request", "invalid request body")
	}
	return nil
}

// readImage returns the uploaded image, taken from the "image" field of a
// multipart form or from the raw request body
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, apperr.New(apperr.Invalid, "read image", "image field required")
		}
		defer file.Close()
		r.Body = io.NopCloser(file)
	}

	data, err := io.ReadAll(r.Body)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, apperr.New(apperr.Invalid, "read image", fmt.Sprintf("image must be at most %d MB", maxImageSize>>20))
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Invalid, "read image", err)
	}
	return data, nil
}

// commitContext is the context for a backend write. It is not cancelled
// when the client disconnects, so a write and its cache invalidation finish
// together.
func commitContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// client returns the caller's Client or writes a 401
func client(w http.ResponseWriter, r *http.Request) (*services.Client, bool) {
	c := middleware.GetClient(r.Context())
	if c == nil {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return c, true
}
