package gateway

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	// InviteCodeLength is the number of symbols in an invite code
	InviteCodeLength = 8
	// InviteCodeAlphabet has 32 uppercase symbols without 0, O, 1 and I
	InviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// NewInviteCode draws InviteCodeLength symbols uniformly from InviteCodeAlphabet.
// Uniqueness is left to the collages.invite_code index.
func NewInviteCode() (string, error) {
	buf := make([]byte, InviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	// 256 is a multiple of 32, so masking keeps the draw uniform.
	for i, b := range buf {
		buf[i] = InviteCodeAlphabet[b&31]
	}
	return string(buf), nil
}

// NormalizeInviteCode trims and uppercases a user-typed code
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidInviteCode reports whether code could have been produced by NewInviteCode
func ValidInviteCode(code string) bool {
	if len(code) != InviteCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(InviteCodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
