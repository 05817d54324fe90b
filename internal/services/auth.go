package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"collage-sync/internal/apperr"
	"collage-sync/internal/gateway"
	"collage-sync/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles sign-up, sign-in and session tokens
type AuthService struct {
	users     gateway.UserStore
	jwtSecret string
	ttl       time.Duration
	now       func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(users gateway.UserStore, jwtSecret string, ttl time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: jwtSecret,
		ttl:       ttl,
		now:       time.Now,
	}
}

// AuthResult is returned by sign-up and sign-in
type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// SignUp creates an account and returns a session token for it
func (s *AuthService) SignUp(ctx context.Context, email, username, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:       uuid.New().String(),
		Email:    email,
		Username: username,
	}
	if err := s.users.CreateUser(ctx, user, string(hash)); err != nil {
		if apperr.Is(err, apperr.Conflict) {
			return nil, apperr.New(apperr.Conflict, "sign up", "email or username already taken")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// SignIn checks credentials and returns a fresh session token
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	user, hash, err := s.users.GetCredentials(ctx, NormalizeEmail(email))
	if apperr.Is(err, apperr.NotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password: %w", err)
	}

	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

var errInvalidCredentials = apperr.New(apperr.Unauthorized, "sign in", "invalid email or password")

// GenerateJWT generates a JWT token for a user
func (s *AuthService) GenerateJWT(userID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(s.ttl).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the user ID.
// Every failure is reported as Unauthorized.
func (s *AuthService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", apperr.Wrap(apperr.Unauthorized, "validate token", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", apperr.New(apperr.Unauthorized, "validate token", "invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", apperr.New(apperr.Unauthorized, "validate token", "user_id not found in token")
	}

	return userID, nil
}
