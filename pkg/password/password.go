// Package password hashes account passwords with bcrypt.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxLen is the longest input bcrypt looks at.
const MaxLen = 72

var ErrTooLong = fmt.Errorf("password is longer than %d bytes", MaxLen)

func Hash(pass string) (string, error) {
	if len(pass) > MaxLen {
		return "", ErrTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether pass matches hash. Malformed hashes never match.
func Verify(pass, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) == nil
}
