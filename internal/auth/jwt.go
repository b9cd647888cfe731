package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer          = "focus_rooms"
	audienceAccess  = "access"
	audienceRefresh = "refresh"
)

// Claims of an access token. The profile fields are what rooms show for
// the caller, so a profile change needs a fresh token.
type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{
		UserID:    c.UserID,
		Name:      c.Username,
		AvatarURL: c.AvatarURL,
	}
}

// Service issues and checks HS256 tokens.
type Service struct {
	secretKey       []byte
	accessDuration  time.Duration
	refreshDuration time.Duration
	now             func() time.Time
}

func NewService(secretKey string, accessDuration, refreshDuration time.Duration) *Service {
	return &Service{
		secretKey:       []byte(secretKey),
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
		now:             time.Now,
	}
}

func (s *Service) registered(subject, audience string, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func (s *Service) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
}

func (s *Service) parse(tokenString, audience string, claims jwt.Claims) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secretKey, nil
	})
	return err
}

func (s *Service) GenerateAccessToken(userID uuid.UUID, email, username, avatarURL string) (string, error) {
	return s.sign(&Claims{
		UserID:           userID,
		Email:            email,
		Username:         username,
		AvatarURL:        avatarURL,
		RegisteredClaims: s.registered(userID.String(), audienceAccess, s.accessDuration),
	})
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims := new(Claims)
	if err := s.parse(tokenString, audienceAccess, claims); err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	switch {
	case claims.UserID == uuid.Nil:
		return nil, errors.New("invalid access token: missing user_id")
	case claims.Username == "":
		return nil, errors.New("invalid access token: missing username")
	}
	return claims, nil
}

func (s *Service) GenerateRefreshToken(userID uuid.UUID) (string, error) {
	claims := s.registered(userID.String(), audienceRefresh, s.refreshDuration)
	return s.sign(&claims)
}

// ValidateRefreshToken returns the user the token was issued to.
func (s *Service) ValidateRefreshToken(tokenString string) (uuid.UUID, error) {
	claims := new(jwt.RegisteredClaims)
	if err := s.parse(tokenString, audienceRefresh, claims); err != nil {
		return uuid.Nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid refresh token subject: %w", err)
	}
	return userID, nil
}
