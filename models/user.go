package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jali/security/internal/auth"
)

// User is a registered account. The email address is its identifier.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         auth.Role `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// ErrInvalidRole is returned for a role outside the known set
var ErrInvalidRole = errors.New("invalid role")

// NewUser creates a new User with a normalized email
func NewUser(firstName, lastName, email, passwordHash string, role auth.Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail trims and lower-cases an email address so lookups and the
// uniqueness check agree on the identifier.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Identifier implements auth.Principal
func (u *User) Identifier() string {
	return u.Email
}

// Authorities implements auth.Principal. An unknown role grants nothing.
func (u *User) Authorities() []string {
	if !u.Role.Valid() {
		return nil
	}
	return []string{string(u.Role)}
}

// ValidateRole returns ErrInvalidRole unless the user's role is known
func (u *User) ValidateRole() error {
	if !u.Role.Valid() {
		return fmt.Errorf("%w %q", ErrInvalidRole, u.Role)
	}
	return nil
}
