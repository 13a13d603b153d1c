package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gatepass/internal/auth"
	"gatepass/internal/cache"
	apperrors "gatepass/internal/errors"
	"gatepass/internal/model"
	"gatepass/internal/policy"
	"gatepass/internal/repository"
	"gatepass/internal/seed"
)

const bcryptCost = 10

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// AuthService handles authentication operations.
type AuthService interface {
	// Login accepts a user id or an email. An empty role accepts any role.
	Login(ctx context.Context, identifier, password string, role model.Role) (*LoginResult, error)
	Validate(ctx context.Context, token string) (*auth.Claims, error)
	ChangePassword(ctx context.Context, actor policy.Actor, current, next string) error
}

type authService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	attempts   auth.AttemptStoreInterface
	cache      *cache.Client
	logger     *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	userRepo repository.UserRepository,
	jwtService *auth.JWTService,
	attempts auth.AttemptStoreInterface,
	cache *cache.Client,
	logger *slog.Logger,
) AuthService {
	if attempts == nil {
		attempts = auth.NewAttemptStore(cache, 0, 0)
	}
	return &authService{
		userRepo:   userRepo,
		jwtService: jwtService,
		attempts:   attempts,
		cache:      cache,
		logger:     ResolveLogger(logger),
	}
}

// Login verifies the credential against an active user and issues a token.
func (s *authService) Login(ctx context.Context, identifier, password string, role model.Role) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperrors.Validation("identifier and password are required")
	}
	if role != "" && !role.Valid() {
		return nil, apperrors.Validation("unknown role %q", role)
	}

	key := strings.ToLower(identifier)
	if s.attempts.Locked(ctx, key) {
		return nil, apperrors.Authentication("too many failed attempts, try again later")
	}

	user, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		if repository.IsNotFound(err) {
			s.attempts.RecordFailure(ctx, key)
			return nil, apperrors.Authentication("invalid credentials")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.attempts.RecordFailure(ctx, key)
		return nil, apperrors.Authentication("invalid credentials")
	}
	if !user.Active {
		return nil, apperrors.Authentication("account is deactivated")
	}
	if role != "" && user.Role != role {
		return nil, apperrors.Authentication("invalid credentials for %s login", role)
	}

	token, expiresAt, err := s.jwtService.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.attempts.Reset(ctx, key)
	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Validate decodes a presented bearer token.
func (s *authService) Validate(ctx context.Context, token string) (*auth.Claims, error) {
	return s.jwtService.ValidateToken(token)
}

// ChangePassword replaces the actor's password after checking the current one.
func (s *authService) ChangePassword(ctx context.Context, actor policy.Actor, current, next string) error {
	if current == "" || next == "" {
		return apperrors.Validation("current and new password are required")
	}
	if len(next) < seed.MinPasswordLength {
		return apperrors.Validation("new password must be at least %d characters", seed.MinPasswordLength)
	}
	if current == next {
		return apperrors.Validation("new password must differ from the current one")
	}

	user, err := s.userRepo.FindByID(ctx, actor.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperrors.Authentication("user %s no longer exists", actor.ID)
		}
		return fmt.Errorf("find user: %w", err)
	}
	if !user.Active {
		return apperrors.Authentication("account is deactivated")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return apperrors.Validation("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	_ = s.cache.Delete(ctx, profileCacheKey(user.ID))
	s.logger.Info("password changed", "user_id", user.ID)
	return nil
}

func (s *authService) findByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	if strings.Contains(identifier, "@") {
		return s.userRepo.FindByEmail(ctx, strings.ToLower(identifier))
	}
	return s.userRepo.FindByID(ctx, model.NormalizeUserID(identifier))
}
