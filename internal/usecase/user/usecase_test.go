package user

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-crud-service/internal/adapter/db/memory"
	domain "user-crud-service/internal/domain/user"
	pkgerrors "user-crud-service/pkg/errors"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, u *domain.User) (int64, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id int64, p domain.Patch) error {
	args := m.Called(ctx, id, p)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func setupTestUsecase(t *testing.T) (*Usecase, *MockRepository) {
	mockRepo := new(MockRepository)
	uc := New(mockRepo, zaptest.NewLogger(t))
	return uc, mockRepo
}

// setupSeededUsecase returns a use case over an in-memory store holding
// KIM (id 1) and LEE (id 2).
func setupSeededUsecase(t *testing.T) *Usecase {
	uc := New(memory.NewUserRepo(zaptest.NewLogger(t)), zaptest.NewLogger(t))
	ctx := context.Background()
	_, err := uc.CreateUser(ctx, CreateUserRequest{Name: "KIM", Email: "test1@test.com"})
	require.NoError(t, err)
	_, err = uc.CreateUser(ctx, CreateUserRequest{Name: "LEE", Email: "test2@test.com"})
	require.NoError(t, err)
	return uc
}

func assertAppError(t *testing.T, err error, status int, message string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, status, pkgerrors.StatusCode(err))
	assert.Equal(t, message, err.Error())
}

func strPtr(s string) *string { return &s }

// ==================== CREATE USER ====================

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns sequential ids", func(t *testing.T) {
		uc := New(memory.NewUserRepo(zaptest.NewLogger(t)), zaptest.NewLogger(t))

		u1, err := uc.CreateUser(ctx, CreateUserRequest{Name: "KIM", Email: "test1@test.com"})
		require.NoError(t, err)
		assert.Equal(t, &User{ID: 1, Name: "KIM", Email: "test1@test.com"}, u1)

		u2, err := uc.CreateUser(ctx, CreateUserRequest{Name: "LEE", Email: "test2@test.com"})
		require.NoError(t, err)
		assert.Equal(t, &User{ID: 2, Name: "LEE", Email: "test2@test.com"}, u2)
	})

	t.Run("duplicate email", func(t *testing.T) {
		uc := setupSeededUsecase(t)

		resp, err := uc.CreateUser(ctx, CreateUserRequest{Name: "KIM", Email: "test1@test.com"})
		assert.Nil(t, resp)
		assertAppError(t, err, http.StatusBadRequest, "User already exists")
		assert.ErrorIs(t, err, ErrUserExists)
	})

	t.Run("validation", func(t *testing.T) {
		uc, mockRepo := setupTestUsecase(t)

		_, err := uc.CreateUser(ctx, CreateUserRequest{Name: "PARK"})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, pkgerrors.StatusCode(err))
		assert.Equal(t, []string{"email should not be empty"}, pkgerrors.Messages(err))

		_, err = uc.CreateUser(ctx, CreateUserRequest{Name: "", Email: "kim"})
		assert.Equal(t, []string{"name should not be empty"}, pkgerrors.Messages(err))

		mockRepo.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})

	t.Run("save failure is internal", func(t *testing.T) {
		uc, mockRepo := setupTestUsecase(t)
		mockRepo.On("GetByEmail", ctx, "test1@test.com").Return(nil, nil)
		mockRepo.On("Create", ctx, mock.Anything).Return(int64(0), errors.New("Bad request"))

		_, err := uc.CreateUser(ctx, CreateUserRequest{Name: "KIM", Email: "test1@test.com"})
		assertAppError(t, err, http.StatusInternalServerError, "Bad request")
		mockRepo.AssertExpectations(t)
	})

	t.Run("lookup failure is internal", func(t *testing.T) {
		uc, mockRepo := setupTestUsecase(t)
		mockRepo.On("GetByEmail", ctx, "test1@test.com").Return(nil, errors.New("connection reset"))

		_, err := uc.CreateUser(ctx, CreateUserRequest{Name: "KIM", Email: "test1@test.com"})
		assertAppError(t, err, http.StatusInternalServerError, "connection reset")
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("store-reported duplicate is a conflict", func(t *testing.T) {
		uc, mockRepo := setupTestUsecase(t)
		mockRepo.On("GetByEmail", ctx, "test1@test.com").Return(nil, nil)
		mockRepo.On("Create", ctx, mock.Anything).Return(int64(0),
			fmt.Errorf("failed to create user: %w", &domain.UniqueViolationError{Field: domain.FieldEmail, Err: errors.New("duplicate key")}))

		_, err := uc.CreateUser(ctx, CreateUserRequest{Name: "KIM", Email: "test1@test.com"})
		assertAppError(t, err, http.StatusBadRequest, "User already exists")
	})
}

// ==================== LIST USERS ====================

func TestListUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("all users in creation order", func(t *testing.T) {
		uc := setupSeededUsecase(t)

		users, err := uc.ListUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []User{
			{ID: 1, Name: "KIM", Email: "test1@test.com"},
			{ID: 2, Name: "LEE", Email: "test2@test.com"},
		}, users)
	})

	t.Run("empty store", func(t *testing.T) {
		uc := New(memory.NewUserRepo(zaptest.NewLogger(t)), zaptest.NewLogger(t))

		users, err := uc.ListUsers(ctx)
		require.NoError(t, err)
		assert.NotNil(t, users)
		assert.Empty(t, users)
	})

	t.Run("store failure", func(t *testing.T) {
		uc, mockRepo := setupTestUsecase(t)
		mockRepo.On("List", ctx).Return(nil, errors.New("Bad request"))

		_, err := uc.ListUsers(ctx)
		assertAppError(t, err, http.StatusInternalServerError, "Bad request")
	})
}

// ==================== GET USER ====================

func TestGetUser(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		uc := setupSeededUsecase(t)

		u, err := uc.GetUser(ctx, GetUserRequest{ID: 2})
		require.NoError(t, err)
		assert.Equal(t, &User{ID: 2, Name: "LEE", Email: "test2@test.com"}, u)
	})

	t.Run("not found", func(t *testing.T) {
		uc := setupSeededUsecase(t)

		_, err := uc.GetUser(ctx, GetUserRequest{ID: 3})
		assertAppError(t, err, http.StatusNotFound, "User not found")
	})

	t.Run("store failure", func(t *testing.T) {
		uc, mockRepo := setupTestUsecase(t)
		mockRepo.On("GetByID", ctx, int64(2)).Return(nil, errors.New("Bad request"))

		_, err := uc.GetUser(ctx, GetUserRequest{ID: 2})
		assertAppError(t, err, http.StatusInternalServerError, "Bad request")
	})
}

// ==================== UPDATE USER ====================

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("name only", func(t *testing.T) {
		uc := setupSeededUsecase(t)

		u, err := uc.UpdateUser(ctx, UpdateUserRequest{ID: 2, Name: strPtr("PARK")})
		require.NoError(t, err)
		assert.Equal(t, &User{ID: 2, Name: "PARK", Email: "test2@test.com"}, u)
	})

	t.Run("fresh email", func(t *testing.T) {
		uc := setupSeededUsecase(t)

		u, err := uc.UpdateUser(ctx, UpdateUserRequest{ID: 2, Email: strPtr("test3@test.com")})
		require.NoError(t, err)
		assert.Equal(t, &User{ID: 2, Name: "LEE", Email: "test3@test.com"}, u)

		other, err := uc.GetUser(ctx, GetUserRequest{ID: 1})
		require.NoError(t, err)
		assert.Equal(t, &User{ID: 1, Name: "KIM", Email: "test1@test.com"}, other)
	})

	t.Run("own email is not a conflict", func(t *testing.T) {
		uc := setupSeededUsecase(t)

		u, err := uc.UpdateUser(ctx, UpdateUserRequest{ID: 2, Name: strPtr("PARK"), Email: strPtr("test2@test.com")})
		require.NoError(t, err)
		assert.Equal(t, &User{ID: 2, Name: "PARK", Email: "test2@test.com"}, u)
	})

	t.Run("email of another user", func(t *testing.T) {
		uc := setupSeededUsecase(t)

		_, err := uc.UpdateUser(ctx, UpdateUserRequest{ID: 2, Email: strPtr("test1@test.com")})
		assertAppError(t, err, http.StatusBadRequest, "Email already exists")

		unchanged, err := uc.GetUser(ctx, GetUserRequest{ID: 2})
		require.NoError(t, err)
		assert.Equal(t, "test2@test.com", unchanged.Email)
	})

	t.Run("not found", func(t *testing.T) {
		uc := setupSeededUsecase(t)

		_, err := uc.UpdateUser(ctx, UpdateUserRequest{ID: 3, Name: strPtr("PARK")})
		assertAppError(t, err, http.StatusNotFound, "User not found")
	})

	t.Run("empty patch returns current user", func(t *testing.T) {
		uc := setupSeededUsecase(t)

		u, err := uc.UpdateUser(ctx, UpdateUserRequest{ID: 1})
		require.NoError(t, err)
		assert.Equal(t, &User{ID: 1, Name: "KIM", Email: "test1@test.com"}, u)
	})

	t.Run("validation", func(t *testing.T) {
		uc, mockRepo := setupTestUsecase(t)

		_, err := uc.UpdateUser(ctx, UpdateUserRequest{ID: 2, Name: strPtr(""), Email: strPtr("")})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, pkgerrors.StatusCode(err))
		assert.Equal(t, []string{"name should not be empty", "email should not be empty"}, pkgerrors.Messages(err))
		mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("unique violation from the store is a conflict", func(t *testing.T) {
		uc, mockRepo := setupTestUsecase(t)
		current := &domain.User{ID: 2, Name: "LEE", Email: "test2@test.com"}
		patch := domain.Patch{Email: strPtr("test1@test.com")}

		mockRepo.On("GetByID", ctx, int64(2)).Return(current, nil)
		// Lookup races with a concurrent insert and sees nothing.
		mockRepo.On("GetByEmail", ctx, "test1@test.com").Return(nil, nil)
		mockRepo.On("Update", ctx, int64(2), patch).Return(
			fmt.Errorf("failed to update user: %w", &domain.UniqueViolationError{Field: domain.FieldEmail, Err: errors.New("UNIQUE constraint failed: users.email")}))

		_, err := uc.UpdateUser(ctx, UpdateUserRequest{ID: 2, Email: patch.Email})
		assertAppError(t, err, http.StatusBadRequest, "Email already exists")
		mockRepo.AssertExpectations(t)
	})

	t.Run("unique violation on another column stays internal", func(t *testing.T) {
		uc, mockRepo := setupTestUsecase(t)
		patch := domain.Patch{Name: strPtr("PARK")}
		cause := &domain.UniqueViolationError{Field: "name", Err: errors.New("duplicate key")}

		mockRepo.On("GetByID", ctx, int64(2)).Return(&domain.User{ID: 2, Name: "LEE", Email: "test2@test.com"}, nil)
		mockRepo.On("Update", ctx, int64(2), patch).Return(cause)

		_, err := uc.UpdateUser(ctx, UpdateUserRequest{ID: 2, Name: patch.Name})
		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, pkgerrors.StatusCode(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("update failure is internal", func(t *testing.T) {
		uc, mockRepo := setupTestUsecase(t)
		patch := domain.Patch{Name: strPtr("PARK")}

		mockRepo.On("GetByID", ctx, int64(2)).Return(&domain.User{ID: 2, Name: "LEE", Email: "test2@test.com"}, nil)
		mockRepo.On("Update", ctx, int64(2), patch).Return(errors.New("Bad request"))

		_, err := uc.UpdateUser(ctx, UpdateUserRequest{ID: 2, Name: patch.Name})
		assertAppError(t, err, http.StatusInternalServerError, "Bad request")
	})

	t.Run("row vanished before write", func(t *testing.T) {
		uc, mockRepo := setupTestUsecase(t)
		patch := domain.Patch{Name: strPtr("PARK")}

		mockRepo.On("GetByID", ctx, int64(2)).Return(&domain.User{ID: 2, Name: "LEE", Email: "test2@test.com"}, nil)
		mockRepo.On("Update", ctx, int64(2), patch).Return(domain.ErrNotFound)

		_, err := uc.UpdateUser(ctx, UpdateUserRequest{ID: 2, Name: patch.Name})
		assertAppError(t, err, http.StatusNotFound, "User not found")
	})
}

// ==================== DELETE USER ====================

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes and confirms", func(t *testing.T) {
		uc := setupSeededUsecase(t)

		resp, err := uc.DeleteUser(ctx, DeleteUserRequest{ID: 2})
		require.NoError(t, err)
		assert.Equal(t, "User 2 deleted", resp.Message)
		assert.Equal(t, int64(2), resp.ID)

		_, err = uc.GetUser(ctx, GetUserRequest{ID: 2})
		assertAppError(t, err, http.StatusNotFound, "User not found")

		users, err := uc.ListUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []User{{ID: 1, Name: "KIM", Email: "test1@test.com"}}, users)
	})

	t.Run("not found", func(t *testing.T) {
		uc := setupSeededUsecase(t)

		_, err := uc.DeleteUser(ctx, DeleteUserRequest{ID: 3})
		assertAppError(t, err, http.StatusNotFound, "User not found")
	})

	t.Run("delete failure is internal", func(t *testing.T) {
		uc, mockRepo := setupTestUsecase(t)
		mockRepo.On("GetByID", ctx, int64(2)).Return(&domain.User{ID: 2, Name: "LEE", Email: "test2@test.com"}, nil)
		mockRepo.On("Delete", ctx, int64(2)).Return(errors.New("Bad request"))

		_, err := uc.DeleteUser(ctx, DeleteUserRequest{ID: 2})
		assertAppError(t, err, http.StatusInternalServerError, "Bad request")
		mockRepo.AssertExpectations(t)
	})
}

// The walkthrough from the API documentation.
func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	uc := New(memory.NewUserRepo(zaptest.NewLogger(t)), zaptest.NewLogger(t))

	kim, err := uc.CreateUser(ctx, CreateUserRequest{Name: "KIM", Email: "test1@test.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), kim.ID)

	lee, err := uc.CreateUser(ctx, CreateUserRequest{Name: "LEE", Email: "test2@test.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), lee.ID)

	_, err = uc.UpdateUser(ctx, UpdateUserRequest{ID: 2, Email: strPtr("test1@test.com")})
	assertAppError(t, err, http.StatusBadRequest, "Email already exists")

	resp, err := uc.DeleteUser(ctx, DeleteUserRequest{ID: 2})
	require.NoError(t, err)
	assert.Equal(t, "User 2 deleted", resp.Message)

	_, err = uc.GetUser(ctx, GetUserRequest{ID: 2})
	assertAppError(t, err, http.StatusNotFound, "User not found")
}
