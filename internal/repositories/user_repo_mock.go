package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"profiles/internal/models"

	"github.com/google/uuid"
)

// MockUserRepository is an in-memory implementation of UserRepository.
// It enforces the same email and username uniqueness as the database.
type MockUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]models.User),
	}
}

// Create adds a new user.
func (r *MockUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return ErrDuplicateUser
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = cloneUser(*user)
	return nil
}

// FindAll returns all users, oldest first.
func (r *MockUserRepository) FindAll(_ context.Context) ([]models.User, error) {
	return r.filter(func(models.User) bool { return true }), nil
}

// FindByUsername returns the users with the given username.
func (r *MockUserRepository) FindByUsername(_ context.Context, username string) ([]models.User, error) {
	return r.filter(func(u models.User) bool { return u.Username == username }), nil
}

// FindByEmail returns the users with the given email.
func (r *MockUserRepository) FindByEmail(_ context.Context, email string) ([]models.User, error) {
	return r.filter(func(u models.User) bool { return u.Email == email }), nil
}

// Update modifies an existing user.
func (r *MockUserRepository) Update(_ context.Context, id string, apply func(*models.User) error) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	user := cloneUser(stored)
	if err := apply(&user); err != nil {
		return nil, err
	}
	user.ID = id
	user.UpdatedAt = time.Now()
	r.users[id] = cloneUser(user)
	return &user, nil
}

// DeleteByID removes a user by its ID if it exists.
func (r *MockUserRepository) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, id)
	return nil
}

func (r *MockUserRepository) Ping(context.Context) error {
	return nil
}

func (r *MockUserRepository) filter(keep func(models.User) bool) []models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userList := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		if keep(u) {
			userList = append(userList, cloneUser(u))
		}
	}
	sort.Slice(userList, func(i, j int) bool {
		return userList[i].CreatedAt.Before(userList[j].CreatedAt)
	})
	return userList
}

// cloneUser copies the slice and pointer fields so callers cannot mutate stored state.
func cloneUser(u models.User) models.User {
	if u.Skills != nil {
		skills := make([]string, len(u.Skills))
		copy(skills, u.Skills)
		u.Skills = skills
	}
	if u.Age != nil {
		age := *u.Age
		u.Age = &age
	}
	return u
}
