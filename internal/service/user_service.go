package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gatepass/internal/cache"
	apperrors "gatepass/internal/errors"
	"gatepass/internal/model"
	"gatepass/internal/policy"
	"gatepass/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// UserService exposes identity store reads and seeding.
type UserService interface {
	Profile(ctx context.Context, actor policy.Actor) (*model.User, error)
	Seed(ctx context.Context, users []model.User) (int, error)
}

type userService struct {
	repo   repository.UserRepository
	cache  *cache.Client
	logger *slog.Logger
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client, logger *slog.Logger) UserService {
	return &userService{repo: repo, cache: cache, logger: ResolveLogger(logger)}
}

func profileCacheKey(id string) string {
	return fmt.Sprintf("user:profile:%s", id)
}

// Profile returns the actor's own record.
func (s *userService) Profile(ctx context.Context, actor policy.Actor) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, profileCacheKey(actor.ID), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, actor.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NotFound("user %s not found", actor.ID)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	s.cache.SetJSON(ctx, profileCacheKey(user.ID), user, userCacheTTL)
	return user, nil
}

// Seed upserts users from seed configuration and returns how many were written.
func (s *userService) Seed(ctx context.Context, users []model.User) (int, error) {
	for i := range users {
		if !users[i].Role.Valid() {
			return i, apperrors.Validation("user %s has unknown role %q", users[i].ID, users[i].Role)
		}
		if err := s.repo.Upsert(ctx, &users[i]); err != nil {
			if repository.IsDuplicateKey(err) {
				return i, apperrors.Validation("user %s conflicts with an existing email", users[i].ID)
			}
			return i, fmt.Errorf("seed user %s: %w", users[i].ID, err)
		}
		_ = s.cache.Delete(ctx, profileCacheKey(users[i].ID))
	}
	s.logger.Info("seeded users", "count", len(users))
	return len(users), nil
}
