// Package service provides the registration, login and task flows,
// delegating persistence to the user directory and the tenant registry.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/TodoKeeper/internal/common"
	"github.com/atinyakov/TodoKeeper/internal/models"
	"github.com/atinyakov/TodoKeeper/internal/tenant"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines the user directory operations required by the
// authentication service.
type UserRepository interface {
	// Create stores a new user. A taken username yields common.ErrConflict.
	Create(ctx context.Context, username, passwordHash string) (*models.User, error)
	// FindByUsername returns common.ErrNotFound when no user matches.
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// StoreResolver returns the task store of a tenant, opening it if needed.
type StoreResolver interface {
	Resolve(ctx context.Context, tenantID int64) (*tenant.Store, error)
}

// AuthService implements registration and login.
type AuthService struct {
	users     UserRepository
	stores    StoreResolver
	log       *zap.Logger
	cost      int
	dummyHash []byte
}

// NewAuthService constructs an AuthService. cost is the bcrypt cost; values
// outside bcrypt's range fall back to bcrypt.DefaultCost.
func NewAuthService(users UserRepository, stores StoreResolver, cost int, log *zap.Logger) (*AuthService, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// Compared against when the username is unknown so both login failures
	// cost the same.
	dummy, err := bcrypt.GenerateFromPassword([]byte("todokeeper-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}
	return &AuthService{
		users:     users,
		stores:    stores,
		log:       log,
		cost:      cost,
		dummyHash: dummy,
	}, nil
}

// Register creates a user and provisions its task store.
// A taken username yields common.ErrConflict.
func (s *AuthService) Register(ctx context.Context, username, password string) (models.Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: hash password: %w", common.ErrInternal, err)
	}

	user, err := s.users.Create(ctx, username, string(hash))
	if err != nil {
		return models.Identity{}, err
	}

	// The store is opened lazily on first use anyway, so a failure here only
	// costs a retry later.
	if _, err := s.stores.Resolve(ctx, user.ID); err != nil {
		s.log.Warn("failed to provision tenant store",
			zap.Int64("tenant", user.ID), zap.Error(err))
	}

	return user.Identity(), nil
}

// Login checks a username and password. An unknown username and a wrong
// password both yield common.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (models.Identity, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return models.Identity{}, common.ErrInvalidCredentials
		}
		return models.Identity{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return models.Identity{}, common.ErrInvalidCredentials
		}
		return models.Identity{}, fmt.Errorf("%w: compare password: %w", common.ErrInternal, err)
	}

	return user.Identity(), nil
}
