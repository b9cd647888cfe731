package auth

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Identity is what the identity provider tells us about the caller.
type Identity struct {
	UserID    uuid.UUID
	Name      string
	AvatarURL string
}

func (i Identity) Authenticated() bool {
	return i.UserID != uuid.Nil
}

// Initial is the upper-cased first letter of the display name.
func (i Identity) Initial() string {
	name := strings.TrimSpace(i.Name)
	if name == "" {
		return "U"
	}
	r, _ := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r))
}

// DisplayName falls back to "User" for nameless identities.
func (i Identity) DisplayName() string {
	if name := strings.TrimSpace(i.Name); name != "" {
		return name
	}
	return "User"
}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the caller identity or the zero Identity for anonymous requests.
func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}

func GetUserID(ctx context.Context) uuid.UUID {
	return IdentityFrom(ctx).UserID
}
