package repositories

import (
	"context"
	"errors"

	"spotus/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already taken")
	ErrDatabaseOperation = errors.New("database operation failed")
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	// Create creates a new user in the database
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by their ID, served from cache when possible
	GetByID(ctx context.Context, id uint) (*models.User, error)

	// GetByEmail retrieves a user by their email address
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// IncrementTokenVersion invalidates every token issued so far
	IncrementTokenVersion(ctx context.Context, userID uint) error

	// UpdatePassword updates the user's password
	UpdatePassword(ctx context.Context, userID uint, hashedPassword string) error
}
