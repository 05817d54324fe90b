package services

import (
	"context"
	"testing"
	"time"

	"collage-sync/internal/apperr"
	"collage-sync/internal/gateway/gatewaytest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_SignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	auth := NewAuthService(gatewaytest.New(), "secret", time.Hour)

	res, err := auth.SignUp(ctx, " Dana@Example.com ", "dana_1", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", res.User.Email)

	userID, err := auth.ValidateJWT(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, userID)

	in, err := auth.SignIn(ctx, "dana@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, in.User.ID)

	_, err = auth.SignIn(ctx, "dana@example.com", "wrong password")
	assert.True(t, apperr.Is(err, apperr.Unauthorized))

	_, err = auth.SignIn(ctx, "nobody@example.com", "correct horse")
	assert.True(t, apperr.Is(err, apperr.Unauthorized))

	_, err = auth.SignUp(ctx, "dana@example.com", "other", "correct horse")
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestAuthService_SignUpValidation(t *testing.T) {
	ctx := context.Background()
	auth := NewAuthService(gatewaytest.New(), "secret", time.Hour)

	tests := []struct {
		name     string
		email    string
		username string
		password string
	}{
		{"bad email", "not-an-email", "dana", "correct horse"},
		{"short username", "d@example.com", "da", "correct horse"},
		{"long username", "d@example.com", "abcdefghijklmnopqrstuvwxyz12345", "correct horse"},
		{"username charset", "d@example.com", "da na", "correct horse"},
		{"short password", "d@example.com", "dana", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.SignUp(ctx, tt.email, tt.username, tt.password)
			assert.True(t, apperr.Is(err, apperr.Invalid), err)
		})
	}
}

func TestAuthService_ValidateJWT(t *testing.T) {
	auth := NewAuthService(gatewaytest.New(), "secret", time.Hour)

	t.Run("expired token", func(t *testing.T) {
		auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := auth.GenerateJWT("alice")
		require.NoError(t, err)
		auth.now = time.Now

		_, err = auth.ValidateJWT(token)
		assert.True(t, apperr.Is(err, apperr.Unauthorized))
	})

	t.Run("foreign secret", func(t *testing.T) {
		other := NewAuthService(gatewaytest.New(), "other", time.Hour)
		token, err := other.GenerateJWT("alice")
		require.NoError(t, err)

		_, err = auth.ValidateJWT(token)
		assert.True(t, apperr.Is(err, apperr.Unauthorized))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := auth.ValidateJWT("not.a.token")
		assert.True(t, apperr.Is(err, apperr.Unauthorized))
	})
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("abc"))
	assert.NoError(t, ValidateUsername("abcdefghijklmnopqrstuvwxyz1234"))
	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername("abcdefghijklmnopqrstuvwxyz12345"))
}
