package user

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rx3lixir/focus_rooms/internal/apperr"
	pw "github.com/rx3lixir/focus_rooms/pkg/password"
)

const (
	minUsernameLen = 2
	maxUsernameLen = 28
	minPasswordLen = 8
	maxAvatarLen   = 2048
	specialChars   = "!@#$%^&*"
)

// fieldErrors collects one message per request field.
type fieldErrors map[string]string

func (f fieldErrors) check(field string, err error) {
	if err != nil {
		f[field] = err.Error()
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return apperr.WithData(apperr.ErrValidation, "Validation failed", map[string]string(f))
}

func validateSignup(req SignupRequest) error {
	f := fieldErrors{}
	f.check("username", validateUsername(req.Username))
	f.check("email", validateEmail(req.Email))
	f.check("password", validatePassword(req.Password))
	f.check("avatar_url", validateAvatar(req.AvatarURL))
	return f.err()
}

func validateProfile(req UpdateProfileRequest) error {
	f := fieldErrors{}
	if req.Username != nil {
		f.check("username", validateUsername(*req.Username))
	}
	if req.AvatarURL != nil {
		f.check("avatar_url", validateAvatar(*req.AvatarURL))
	}
	return f.err()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateUsername(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	switch {
	case n == 0:
		return fmt.Errorf("username is required")
	case n < minUsernameLen:
		return fmt.Errorf("must be at least %d characters", minUsernameLen)
	case n > maxUsernameLen:
		return fmt.Errorf("must be at most %d characters", maxUsernameLen)
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("not a valid address")
	}

	_, domain, _ := strings.Cut(email, "@")
	if !strings.Contains(strings.Trim(domain, "."), ".") {
		return fmt.Errorf("domain must contain a dot")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("must be at least %d characters", minPasswordLen)
	}
	if len(password) > pw.MaxLen {
		return fmt.Errorf("must be at most %d bytes", pw.MaxLen)
	}

	var upper, lower, digit, special bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		case strings.ContainsRune(specialChars, c):
			special = true
		}
	}

	switch {
	case !upper:
		return fmt.Errorf("must contain an uppercase letter")
	case !lower:
		return fmt.Errorf("must contain a lowercase letter")
	case !digit:
		return fmt.Errorf("must contain a number")
	case !special:
		return fmt.Errorf("must contain one of %s", specialChars)
	}
	return nil
}

func validateAvatar(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	if len(url) > maxAvatarLen {
		return fmt.Errorf("must be at most %d bytes", maxAvatarLen)
	}
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}
