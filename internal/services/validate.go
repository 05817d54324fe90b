package services

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"collage-sync/internal/apperr"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 30
	minPasswordLen = 8
)

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail rejects addresses that do not parse
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.New(apperr.Invalid, "validate email", "invalid email address")
	}
	return nil
}

// ValidateUsername allows 3 to 30 letters, digits, dots and underscores
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return apperr.New(apperr.Invalid, "validate username", "username must be 3 to 30 characters")
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return apperr.New(apperr.Invalid, "validate username", "username may only contain letters, digits, dots and underscores")
		}
	}
	return nil
}

// ValidatePassword enforces a minimum length
func ValidatePassword(password string) error {
	if len(password) < minPasswordLen {
		return apperr.New(apperr.Invalid, "validate password", "password must be at least 8 characters")
	}
	return nil
}
