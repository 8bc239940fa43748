package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"profiles/internal/models"
	"profiles/internal/repositories"
	"profiles/internal/validation"
	"profiles/pkg/rabbitmq"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Messages for the failures that are not tied to a single field.
const (
	MsgUserExists     = "User already exists. Please try a different email or username."
	MsgNoSuchEmail    = "There is no username with such email."
	MsgCannotUpdate   = "Cannot update User."
	MsgInvalidID      = "Invalid user id."
	MsgStorageFailure = "Something went wrong with the database."
)

// EventPublisher receives user lifecycle events. *rabbitmq.Client implements it.
type EventPublisher interface {
	PublishUserEvent(event rabbitmq.UserEvent) error
}

// Patch is a partial update of a user.
type Patch interface {
	Apply(user *models.User)
	Fields() []string
}

// UserService handles business logic for user profiles.
type UserService struct {
	repo          repositories.UserRepository
	events        EventPublisher
	logger        *zap.Logger
	hashPasswords bool
	now           func() time.Time
}

// Option configures a UserService.
type Option func(*UserService)

// WithEvents publishes lifecycle events to p after each successful change.
func WithEvents(p EventPublisher) Option {
	return func(s *UserService) { s.events = p }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *UserService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPasswordHashing stores bcrypt hashes instead of the password as given.
func WithPasswordHashing(enabled bool) Option {
	return func(s *UserService) { s.hashPasswords = enabled }
}

// NewUserService creates a new UserService.
func NewUserService(repo repositories.UserRepository, opts ...Option) *UserService {
	s := &UserService{
		repo:   repo,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup stores a new user after checking that neither the username nor
// the email is taken. The two lookups and the insert are not atomic; a
// concurrent signup that slips between them is caught by the unique
// indexes and reported as the same conflict.
func (s *UserService) Signup(ctx context.Context, user *models.User) error {
	byUsername, err := s.repo.FindByUsername(ctx, user.Username)
	if err != nil {
		return storageError("Could not check for duplicate username.", err)
	}
	byEmail, err := s.repo.FindByEmail(ctx, user.Email)
	if err != nil {
		return storageError("Could not check for duplicate email.", err)
	}
	if len(byUsername) != 0 || len(byEmail) != 0 {
		return &Error{Kind: KindConflict, Message: MsgUserExists}
	}

	user.ApplyDefaults()
	if err := validation.Struct(user); err != nil {
		return validationError(validation.Describe(err).Message, err)
	}
	if err := s.preparePassword(user); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateUser) {
			return &Error{Kind: KindConflict, Message: MsgUserExists, Err: err}
		}
		return storageError("Could not save user.", err)
	}

	s.logger.Info("User created", zap.String("user_id", user.ID), zap.String("username", user.Username))
	s.publish(rabbitmq.UserEvent{
		Type:     rabbitmq.UserCreated,
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
	})
	return nil
}

// Feed returns every stored user.
func (s *UserService) Feed(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, storageError(MsgStorageFailure, err)
	}
	return users, nil
}

// LookupByEmail returns the users whose email matches exactly. An empty
// result is a KindNotFound error.
func (s *UserService) LookupByEmail(ctx context.Context, email string) ([]models.User, error) {
	users, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, storageError(MsgStorageFailure, err)
	}
	if len(users) == 0 {
		return nil, &Error{Kind: KindNotFound, Message: MsgNoSuchEmail}
	}
	return users, nil
}

// Delete removes the user with the given ID. Deleting a missing user
// succeeds; an ID that is not a UUID is rejected.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := uuid.Validate(id); err != nil {
		return validationError(MsgInvalidID, err)
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return storageError(MsgStorageFailure, err)
	}
	s.logger.Info("User deleted", zap.String("user_id", id))
	s.publish(rabbitmq.UserEvent{Type: rabbitmq.UserDeleted, UserID: id})
	return nil
}

// Update applies patch to the user with the given ID and validates the
// result against the stored schema before saving it.
func (s *UserService) Update(ctx context.Context, id string, patch Patch) (*models.User, error) {
	fields := patch.Fields()
	updated, err := s.repo.Update(ctx, id, func(user *models.User) error {
		patch.Apply(user)
		if err := validation.Struct(user); err != nil {
			return validationError(validation.Describe(err).Message, err)
		}
		if slices.Contains(fields, "password") {
			return s.preparePassword(user)
		}
		return nil
	})
	if err != nil {
		var serr *Error
		switch {
		case errors.As(err, &serr):
			return nil, serr
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, &Error{Kind: KindNotFound, Message: MsgCannotUpdate, Err: err}
		default:
			return nil, storageError(MsgStorageFailure, err)
		}
	}

	s.logger.Info("User updated", zap.String("user_id", id), zap.Strings("fields", fields))
	s.publish(rabbitmq.UserEvent{
		Type:     rabbitmq.UserUpdated,
		UserID:   updated.ID,
		Email:    updated.Email,
		Username: updated.Username,
		Fields:   fields,
	})
	return updated, nil
}

// Ping reports whether the underlying storage is reachable.
func (s *UserService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *UserService) preparePassword(user *models.User) error {
	if !s.hashPasswords {
		return nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return &Error{Kind: KindStorage, Message: "Could not hash password.", Err: fmt.Errorf("failed to hash password: %w", err)}
	}
	user.Password = string(hashed)
	return nil
}

func (s *UserService) publish(event rabbitmq.UserEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	if err := s.events.PublishUserEvent(event); err != nil {
		s.logger.Warn("Failed to publish user event", zap.String("type", event.Type), zap.String("user_id", event.UserID), zap.Error(err))
	}
}
