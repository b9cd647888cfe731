package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/apperr"
	"github.com/rx3lixir/focus_rooms/internal/auth"
	"github.com/rx3lixir/focus_rooms/pkg/password"
)

var (
	errBadCredentials = apperr.New(apperr.ErrNotAuthenticated, "Invalid email or password")
	errEmailTaken     = apperr.WithData(apperr.ErrValidation, "Validation failed", map[string]string{
		"email": "already registered",
	})
)

// Service is the identity provider: accounts plus the tokens that carry
// the display name and avatar into rooms.
type Service struct {
	store  Store
	tokens *auth.Service
	log    *slog.Logger
}

func NewService(store Store, tokens *auth.Service, log *slog.Logger) *Service {
	return &Service{store: store, tokens: tokens, log: log}
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if err := validateSignup(req); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	exists, err := s.store.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errEmailTaken
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &User{
		Username:  strings.TrimSpace(req.Username),
		Email:     email,
		Password:  hash,
		AvatarURL: strings.TrimSpace(req.AvatarURL),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info("user signed up", "user_id", u.ID)
	return s.issue(u)
}

func (s *Service) Signin(ctx context.Context, req SigninRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		s.log.Warn("signin failed, unknown email", "email", email)
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}

	if !password.Verify(req.Password, u.Password) {
		s.log.Warn("signin failed, wrong password", "user_id", u.ID)
		return nil, errBadCredentials
	}

	s.log.Debug("user signed in", "user_id", u.ID)
	return s.issue(u)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, apperr.Validation("refresh_token is required")
	}

	userID, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperr.New(apperr.ErrNotAuthenticated, "Invalid or expired refresh token")
	}

	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(u)
	return &resp, nil
}

// UpdateProfile changes the display name or avatar. Fresh tokens are
// returned so the next room join carries the new values.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*AuthResponse, error) {
	if err := validateProfile(req); err != nil {
		return nil, err
	}

	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		u.Username = strings.TrimSpace(*req.Username)
	}
	if req.AvatarURL != nil {
		u.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}

	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}

	s.log.Debug("user profile updated", "user_id", id)
	return s.issue(u)
}

func (s *Service) issue(u *User) (*AuthResponse, error) {
	access, err := s.tokens.GenerateAccessToken(u.ID, u.Email, u.Username, u.AvatarURL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         toResponse(u),
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}, nil
}
