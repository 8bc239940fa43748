package repositories

import (
	"context"
	"errors"
	"fmt"

	"profiles/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
// The *gorm.DB should be opened with TranslateError so unique index
// violations surface as ErrDuplicateUser.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindAll retrieves every user from the database.
func (r *GORMUserRepository) FindAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	return users, nil
}

// FindByUsername retrieves the users with the given username.
func (r *GORMUserRepository) FindByUsername(ctx context.Context, username string) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get users by username %s: %w", username, err)
	}
	return users, nil
}

// FindByEmail retrieves the users with the given email.
func (r *GORMUserRepository) FindByEmail(ctx context.Context, email string) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get users by email %s: %w", email, err)
	}
	return users, nil
}

// Update applies a change to a single user inside a transaction.
func (r *GORMUserRepository) Update(ctx context.Context, id string, apply func(*models.User) error) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := apply(&user); err != nil {
			return err
		}
		user.ID = id
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update user %s: %w", id, err)
	}
	return &user, nil
}

// DeleteByID deletes a user by its ID from the database.
func (r *GORMUserRepository) DeleteByID(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (r *GORMUserRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
