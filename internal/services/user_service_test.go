package services_test

import (
	"context"
	"fmt"
	"testing"

	"profiles/internal/handlers/dto"
	"profiles/internal/models"
	"profiles/internal/repositories"
	"profiles/internal/services"
	"profiles/pkg/rabbitmq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindAll(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) ([]models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) ([]models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, id string, apply func(*models.User) error) (*models.User, error) {
	args := m.Called(ctx, id, apply)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) DeleteByID(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPublisher records published events.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishUserEvent(event rabbitmq.UserEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func ana() *models.User {
	return &models.User{
		FirstName: "Ana",
		Email:     "ana@x.com",
		Username:  "ana_01",
		Password:  "secret123",
	}
}

func TestUserService_Signup(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	publisher := new(MockPublisher)
	service := services.NewUserService(mockRepo, services.WithEvents(publisher))

	// Test successful signup
	user := ana()
	mockRepo.On("FindByUsername", ctx, "ana_01").Return([]models.User{}, nil).Once()
	mockRepo.On("FindByEmail", ctx, "ana@x.com").Return([]models.User{}, nil).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Run(func(args mock.Arguments) {
		args.Get(1).(*models.User).ID = "user-1"
	}).Return(nil).Once()
	publisher.On("PublishUserEvent", mock.MatchedBy(func(e rabbitmq.UserEvent) bool {
		return e.Type == rabbitmq.UserCreated && e.UserID == "user-1" && !e.OccurredAt.IsZero()
	})).Return(nil).Once()

	err := service.Signup(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPhotoURL, user.PhotoURL)
	assert.Equal(t, models.DefaultAbout, user.About)
	assert.Equal(t, "secret123", user.Password, "passwords are stored as given by default")
	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)

	// Test username already taken
	mockRepo.On("FindByUsername", ctx, "ana_01").Return([]models.User{{ID: "user-1"}}, nil).Once()
	mockRepo.On("FindByEmail", ctx, "ana@x.com").Return([]models.User{}, nil).Once()
	err = service.Signup(ctx, ana())
	require.Error(t, err)
	assert.Equal(t, services.KindConflict, services.KindOf(err))
	assert.Equal(t, services.MsgUserExists, services.MessageOf(err))
	mockRepo.AssertExpectations(t)

	// Test email already registered
	mockRepo.On("FindByUsername", ctx, "ana_01").Return([]models.User{}, nil).Once()
	mockRepo.On("FindByEmail", ctx, "ana@x.com").Return([]models.User{{ID: "user-1"}}, nil).Once()
	err = service.Signup(ctx, ana())
	assert.Equal(t, services.KindConflict, services.KindOf(err))
	mockRepo.AssertExpectations(t)

	// Test unique index rejection after a clean pre-check
	mockRepo.On("FindByUsername", ctx, "ana_01").Return([]models.User{}, nil).Once()
	mockRepo.On("FindByEmail", ctx, "ana@x.com").Return([]models.User{}, nil).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(repositories.ErrDuplicateUser).Once()
	err = service.Signup(ctx, ana())
	assert.Equal(t, services.KindConflict, services.KindOf(err))
	mockRepo.AssertExpectations(t)

	// Only the single successful signup was announced.
	publisher.AssertNumberOfCalls(t, "PublishUserEvent", 1)
	mockRepo.AssertNumberOfCalls(t, "Create", 2)
}

func TestUserService_SignupSchemaValidation(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo)

	user := ana()
	age := 101
	user.Age = &age
	mockRepo.On("FindByUsername", ctx, "ana_01").Return([]models.User{}, nil).Once()
	mockRepo.On("FindByEmail", ctx, "ana@x.com").Return([]models.User{}, nil).Once()

	err := service.Signup(ctx, user)
	require.Error(t, err)
	assert.Equal(t, services.KindValidation, services.KindOf(err))
	assert.Equal(t, "Invalid Age.", services.MessageOf(err))
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_SignupStorageFailure(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo)

	mockRepo.On("FindByUsername", ctx, "ana_01").Return(nil, fmt.Errorf("connection refused")).Once()
	err := service.Signup(ctx, ana())
	require.Error(t, err)
	assert.Equal(t, services.KindStorage, services.KindOf(err))
	assert.ErrorContains(t, err, "connection refused")
	mockRepo.AssertExpectations(t)
}

func TestUserService_SignupHashesPasswords(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo, services.WithPasswordHashing(true))

	mockRepo.On("FindByUsername", ctx, "ana_01").Return([]models.User{}, nil).Once()
	mockRepo.On("FindByEmail", ctx, "ana@x.com").Return([]models.User{}, nil).Once()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil).Once()

	user := ana()
	require.NoError(t, service.Signup(ctx, user))
	assert.NotEqual(t, "secret123", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret123")))
}

func TestUserService_LookupByEmail(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo)

	mockRepo.On("FindByEmail", ctx, "ana@x.com").Return([]models.User{{ID: "user-1", Email: "ana@x.com"}}, nil).Once()
	users, err := service.LookupByEmail(ctx, "ana@x.com")
	require.NoError(t, err)
	assert.Len(t, users, 1)

	mockRepo.On("FindByEmail", ctx, "nobody@x.com").Return([]models.User{}, nil).Once()
	_, err = service.LookupByEmail(ctx, "nobody@x.com")
	assert.Equal(t, services.KindNotFound, services.KindOf(err))
	assert.Equal(t, services.MsgNoSuchEmail, services.MessageOf(err))

	mockRepo.On("FindByEmail", ctx, "broken@x.com").Return(nil, fmt.Errorf("database error")).Once()
	_, err = service.LookupByEmail(ctx, "broken@x.com")
	assert.Equal(t, services.KindStorage, services.KindOf(err))
	mockRepo.AssertExpectations(t)
}

func TestUserService_Feed(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo)

	expected := []models.User{{ID: "1"}, {ID: "2"}}
	mockRepo.On("FindAll", ctx).Return(expected, nil).Once()
	users, err := service.Feed(ctx)
	require.NoError(t, err)
	assert.Equal(t, expected, users)

	mockRepo.On("FindAll", ctx).Return(nil, fmt.Errorf("database error")).Once()
	_, err = service.Feed(ctx)
	assert.Equal(t, services.KindStorage, services.KindOf(err))
	mockRepo.AssertExpectations(t)
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	publisher := new(MockPublisher)
	service := services.NewUserService(mockRepo, services.WithEvents(publisher))

	deleted := "7d0b6c1e-2f43-4b8e-9a0e-5a1f3c2d4e6f"
	broken := "0c9e7f2a-6b1d-4c3e-8f5a-2d4b6a8c0e1f"

	mockRepo.On("DeleteByID", ctx, deleted).Return(nil).Once()
	publisher.On("PublishUserEvent", mock.MatchedBy(func(e rabbitmq.UserEvent) bool {
		return e.Type == rabbitmq.UserDeleted && e.UserID == deleted
	})).Return(fmt.Errorf("broker down")).Once()

	// A failed publish does not fail the request.
	assert.NoError(t, service.Delete(ctx, deleted))

	mockRepo.On("DeleteByID", ctx, broken).Return(fmt.Errorf("database error")).Once()
	err := service.Delete(ctx, broken)
	assert.Equal(t, services.KindStorage, services.KindOf(err))

	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestUserService_DeleteRejectsMalformedID(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo)

	for _, id := range []string{"", "not-an-id", "12345"} {
		err := service.Delete(ctx, id)
		require.Error(t, err, id)
		assert.Equal(t, services.KindValidation, services.KindOf(err))
		assert.Equal(t, services.MsgInvalidID, services.MessageOf(err))
	}
	mockRepo.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
}

func TestUserService_SignupSchemaChecksNames(t *testing.T) {
	ctx := context.Background()
	service := services.NewUserService(repositories.NewMockUserRepository())

	user := ana()
	user.Username = "ana..01"
	err := service.Signup(ctx, user)
	require.Error(t, err)
	assert.Equal(t, services.KindValidation, services.KindOf(err))
	assert.Equal(t, "Invalid username.", services.MessageOf(err))

	user = ana()
	user.FirstName = "R2D2"
	err = service.Signup(ctx, user)
	require.Error(t, err)
	assert.Equal(t, "Invalid Name", services.MessageOf(err))
}

func patch(t *testing.T, body string) *dto.UpdateRequest {
	t.Helper()
	req, err := dto.ParseUpdateRequest([]byte(body))
	require.NoError(t, err)
	return req
}

// runApply makes the mocked Update call the service's apply function on stored.
func runApply(stored *models.User) func(mock.Arguments) {
	return func(args mock.Arguments) {
		apply := args.Get(2).(func(*models.User) error)
		if err := apply(stored); err != nil {
			panic(err)
		}
	}
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	publisher := new(MockPublisher)
	service := services.NewUserService(mockRepo, services.WithEvents(publisher))

	stored := ana()
	stored.ID = "2f1c8a52-5d5e-4c4e-9a55-0d5b3c7e9b10"
	stored.ApplyDefaults()

	mockRepo.On("Update", ctx, stored.ID, mock.Anything).Run(runApply(stored)).Return(stored, nil).Once()
	publisher.On("PublishUserEvent", mock.MatchedBy(func(e rabbitmq.UserEvent) bool {
		return e.Type == rabbitmq.UserUpdated && assert.ObjectsAreEqual([]string{"age", "about"}, e.Fields)
	})).Return(nil).Once()

	updated, err := service.Update(ctx, stored.ID, patch(t, `{"age": 42, "about": "I write Go."}`))
	require.NoError(t, err)
	require.NotNil(t, updated.Age)
	assert.Equal(t, 42, *updated.Age)
	assert.Equal(t, "I write Go.", updated.About)
	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestUserService_UpdateNotFound(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockUserRepository)
	service := services.NewUserService(mockRepo)

	mockRepo.On("Update", ctx, "missing", mock.Anything).
		Return(nil, fmt.Errorf("failed to update user missing: %w", repositories.ErrUserNotFound)).Once()
	_, err := service.Update(ctx, "missing", patch(t, `{"age": 42}`))
	require.Error(t, err)
	assert.Equal(t, services.KindNotFound, services.KindOf(err))
	assert.Equal(t, services.MsgCannotUpdate, services.MessageOf(err))

	mockRepo.On("Update", ctx, "broken", mock.Anything).Return(nil, fmt.Errorf("database error")).Once()
	_, err = service.Update(ctx, "broken", patch(t, `{"age": 42}`))
	assert.Equal(t, services.KindStorage, services.KindOf(err))
	mockRepo.AssertExpectations(t)
}

func TestUserService_UpdateReportsSchemaFailure(t *testing.T) {
	ctx := context.Background()
	service := services.NewUserService(repositories.NewMockUserRepository())

	user := ana()
	require.NoError(t, service.Signup(ctx, user))

	// The request level checks are bypassed here; the schema still rejects the value.
	age := 7
	_, err := service.Update(ctx, user.ID, &dto.UpdateRequest{Age: &age})
	require.Error(t, err)
	assert.Equal(t, services.KindValidation, services.KindOf(err))
	assert.Equal(t, "Invalid Age.", services.MessageOf(err))
}

func TestUserService_UpdateHashesNewPassword(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMockUserRepository()
	service := services.NewUserService(repo, services.WithPasswordHashing(true))

	user := ana()
	require.NoError(t, service.Signup(ctx, user))

	updated, err := service.Update(ctx, user.ID, patch(t, `{"password": "n3w-secret"}`))
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.Password), []byte("n3w-secret")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "validation", services.KindValidation.String())
	assert.Equal(t, "conflict", services.KindConflict.String())
	assert.Equal(t, "not_found", services.KindNotFound.String())
	assert.Equal(t, "storage", services.KindStorage.String())
	assert.Equal(t, services.KindStorage, services.KindOf(fmt.Errorf("plain")))
}
