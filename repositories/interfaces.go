package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jali/security/models"
)

var (
	// ErrNotFound is returned when no row matches the lookup
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique key is already taken,
	// including when a concurrent insert won the race.
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user. Returns ErrDuplicate if the email is taken.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by its normalized email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves users ordered by creation time, newest first
	List(ctx context.Context, limit, offset int) ([]*models.User, error)

	// Update updates a user's profile and role
	Update(ctx context.Context, user *models.User) error

	// Delete deletes a user
	Delete(ctx context.Context, id uuid.UUID) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users UserRepository
}
