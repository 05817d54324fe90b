package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"collage-sync/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind   apperr.Kind
		status int
	}{
		{apperr.NotFound, http.StatusNotFound},
		{apperr.Conflict, http.StatusConflict},
		{apperr.Expired, http.StatusGone},
		{apperr.Unauthorized, http.StatusForbidden},
		{apperr.Invalid, http.StatusBadRequest},
		{apperr.Transport, http.StatusBadGateway},
		{apperr.Unknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.status, StatusFor(apperr.New(tt.kind, "op", "msg")))
		})
	}
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("plain")))
}

func TestRespondAppError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	respondAppError(rec, req, apperr.New(apperr.Expired, "join collage", "collage has expired"))

	assert.Equal(t, http.StatusGone, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "collage has expired", body.Error)
	assert.Equal(t, apperr.Expired.String(), body.Kind)
}

func TestReadImage(t *testing.T) {
	t.Run("raw body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("pixels"))
		data, err := readImage(httptest.NewRecorder(), req)
		require.NoError(t, err)
		assert.Equal(t, []byte("pixels"), data)
	})

	t.Run("multipart field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("image", "photo.heic")
		require.NoError(t, err)
		fw.Write([]byte("heic"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		data, err := readImage(httptest.NewRecorder(), req)
		require.NoError(t, err)
		assert.Equal(t, []byte("heic"), data)
	})

	t.Run("multipart without the field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("caption", "hi"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		_, err := readImage(httptest.NewRecorder(), req)
		assert.True(t, apperr.Is(err, apperr.Invalid))
	})

	t.Run("too large", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(make([]byte, maxImageSize+1)))
		_, err := readImage(httptest.NewRecorder(), req)
		assert.True(t, apperr.Is(err, apperr.Invalid))
		assert.Contains(t, apperr.Message(err), "20 MB")
	})
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, decodeJSON(req, &v))
	assert.Equal(t, "x", v.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	err := decodeJSON(req, &v)
	assert.True(t, apperr.Is(err, apperr.Invalid))
	assert.Equal(t, "invalid request body", apperr.Message(err))
}

func TestCommitContextOutlivesRequest(t *testing.T) {
	type key struct{}
	parent, cancel := context.WithCancel(context.WithValue(context.Background(), key{}, "alice"))
	r := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(parent)

	ctx := commitContext(r)
	cancel()

	require.Error(t, r.Context().Err())
	assert.NoError(t, ctx.Err())
	assert.Equal(t, "alice", ctx.Value(key{}))
}
