package repositories

import (
	"context"
	"errors"

	"profiles/internal/models"
)

var (
	// ErrUserNotFound is returned when no user has the requested ID.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser is returned when an insert collides with an existing email or username.
	ErrDuplicateUser = errors.New("user with this email or username already exists")
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindAll(ctx context.Context) ([]models.User, error)
	FindByUsername(ctx context.Context, username string) ([]models.User, error)
	FindByEmail(ctx context.Context, email string) ([]models.User, error)
	// Update loads the user with the given ID, hands it to apply and stores
	// the result. Nothing is written when apply returns an error.
	Update(ctx context.Context, id string, apply func(*models.User) error) (*models.User, error)
	// DeleteByID removes the user if present. A missing user is not an error.
	DeleteByID(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
