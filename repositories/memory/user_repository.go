// Package memory provides an in-process user store for development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jali/security/models"
	"github.com/jali/security/repositories"
	"go.uber.org/zap"
)

// UserRepository keeps users in maps keyed by id and email.
// Stored values are copies so callers cannot mutate them in place.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*models.User
	byEmail map[string]uuid.UUID
	logger  *zap.Logger
}

// NewUserRepository creates an empty store
func NewUserRepository(logger *zap.Logger) *UserRepository {
	return &UserRepository{
		byID:    make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]uuid.UUID),
		logger:  logger,
	}
}

// NewRepositories returns the repository set backed by memory
func NewRepositories(logger *zap.Logger) *repositories.Repositories {
	return &repositories.Repositories{
		Users: NewUserRepository(logger),
	}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := user.ValidateRole(); err != nil {
		return fmt.Errorf("user %s: %w", user.Email, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return fmt.Errorf("user %s: %w", user.Email, repositories.ErrDuplicate)
	}
	if _, ok := r.byID[user.ID]; ok {
		return fmt.Errorf("user %s: %w", user.ID, repositories.ErrDuplicate)
	}

	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[user.Email] = user.ID

	r.logger.Debug("user created", zap.String("id", user.ID.String()), zap.String("email", user.Email))
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}
	out := *user
	return &out, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, repositories.ErrNotFound)
	}
	out := *r.byID[id]
	return &out, nil
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	all := make([]*models.User, 0, len(r.byID))
	for _, u := range r.byID {
		cp := *u
		all = append(all, &cp)
	}
	r.mu.RUnlock()

	slices.SortFunc(all, func(a, b *models.User) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := user.ValidateRole(); err != nil {
		return fmt.Errorf("user %s: %w", user.Email, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[user.ID]
	if !ok {
		return fmt.Errorf("user %s: %w", user.ID, repositories.ErrNotFound)
	}
	if owner, taken := r.byEmail[user.Email]; taken && owner != user.ID {
		return fmt.Errorf("user %s: %w", user.Email, repositories.ErrDuplicate)
	}

	delete(r.byEmail, current.Email)
	stored := *user
	stored.CreatedAt = current.CreatedAt
	r.byID[user.ID] = &stored
	r.byEmail[user.Email] = user.ID

	r.logger.Debug("user updated", zap.String("id", user.ID.String()))
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
	}
	delete(r.byEmail, user.Email)
	delete(r.byID, id)

	r.logger.Debug("user deleted", zap.String("id", id.String()))
	return nil
}
