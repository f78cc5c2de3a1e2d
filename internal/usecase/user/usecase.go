package user

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	domain "user-crud-service/internal/domain/user"
	pkgerrors "user-crud-service/pkg/errors"
	"user-crud-service/pkg/logger"
	"user-crud-service/pkg/validation"

	"github.com/go-playground/validator/v10"
)

// Client-facing failures of the user use cases.
var (
	ErrUserNotFound = pkgerrors.NewNotFoundError("user", "User not found")
	ErrUserExists   = pkgerrors.NewConflictError("user", "User already exists")
	ErrEmailExists  = pkgerrors.NewConflictError("email", "Email already exists")
)

// Repository defines the interface for user data access operations.
// Implementations report a missing user as domain.ErrNotFound and a rejected
// duplicate as *domain.UniqueViolationError.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (int64, error)          // Insert and return the assigned ID
	GetByID(ctx context.Context, id int64) (*domain.User, error)        // Retrieve user by ID
	GetByEmail(ctx context.Context, email string) (*domain.User, error) // Retrieve user by email, nil when absent
	List(ctx context.Context) ([]domain.User, error)                    // All users in insertion order
	Update(ctx context.Context, id int64, p domain.Patch) error         // Apply a partial update
	Delete(ctx context.Context, id int64) error                         // Delete user by ID
}

// Usecase implements the business logic for user management operations.
// It is the only place where persistence failures are translated into
// application errors.
type Usecase struct {
	repo     Repository          // Repository for data access
	log      *zap.Logger         // Logger for structured logging
	validate *validator.Validate // Validator for request validation
}

// New creates a new instance of Usecase with the provided repository and logger.
func New(r Repository, log *zap.Logger) *Usecase {
	return &Usecase{repo: r, log: log, validate: validation.New()}
}

// CreateUser creates a new user after validating the request and checking email uniqueness.
func (uc *Usecase) CreateUser(ctx context.Context, in CreateUserRequest) (*User, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("creating user", zap.String("name", in.Name), zap.String("email", in.Email))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, pkgerrors.NewValidationError(validation.Messages(err)...)
	}

	existingUser, err := uc.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		log.Error("failed to check existing email", zap.String("email", in.Email), zap.Error(err))
		return nil, pkgerrors.Internal(err)
	}
	if existingUser != nil {
		log.Warn("user already exists", zap.String("email", in.Email), zap.Int64("existing_id", existingUser.ID))
		return nil, ErrUserExists
	}

	u := &domain.User{
		Name:  in.Name,
		Email: in.Email,
	}
	id, err := uc.repo.Create(ctx, u)
	if err != nil {
		if domain.IsUniqueViolation(err, domain.FieldEmail) {
			log.Warn("user already exists", zap.String("email", in.Email), zap.Error(err))
			return nil, ErrUserExists
		}
		log.Error("failed to create user", zap.Error(err))
		return nil, pkgerrors.Internal(err)
	}
	u.ID = id

	return toDTO(u), nil
}

// ListUsers returns every user in insertion order.
func (uc *Usecase) ListUsers(ctx context.Context) ([]User, error) {
	domainUsers, err := uc.repo.List(ctx)
	if err != nil {
		logger.WithContext(ctx, uc.log).Error("failed to list users", zap.Error(err))
		return nil, pkgerrors.Internal(err)
	}

	users := make([]User, len(domainUsers))
	for i := range domainUsers {
		users[i] = *toDTO(&domainUsers[i])
	}
	return users, nil
}

// GetUser retrieves a user by ID.
func (uc *Usecase) GetUser(ctx context.Context, in GetUserRequest) (*User, error) {
	u, err := uc.find(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	return toDTO(u), nil
}

// UpdateUser applies a partial update. Changing the email to one held by
// another user is rejected, whether the lookup catches it or the store does.
func (uc *Usecase) UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error) {
	log := logger.WithContext(ctx, uc.log).With(zap.Int64("id", in.ID))
	log.Info("updating user", zap.Stringp("name", in.Name), zap.Stringp("email", in.Email))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, pkgerrors.NewValidationError(validation.Messages(err)...)
	}

	current, err := uc.find(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	patch := domain.Patch{Name: in.Name, Email: in.Email}
	if patch.IsEmpty() {
		return toDTO(current), nil
	}

	if in.Email != nil && *in.Email != current.Email {
		existingUser, err := uc.repo.GetByEmail(ctx, *in.Email)
		if err != nil {
			log.Error("failed to check existing email", zap.String("email", *in.Email), zap.Error(err))
			return nil, pkgerrors.Internal(err)
		}
		if existingUser != nil && existingUser.ID != in.ID {
			log.Warn("email already exists", zap.String("email", *in.Email), zap.Int64("existing_id", existingUser.ID))
			return nil, ErrEmailExists
		}
	}

	if err := uc.repo.Update(ctx, in.ID, patch); err != nil {
		switch {
		case domain.IsUniqueViolation(err, domain.FieldEmail):
			log.Warn("email already exists", zap.Error(err))
			return nil, ErrEmailExists
		case errors.Is(err, domain.ErrNotFound):
			return nil, ErrUserNotFound
		}
		log.Error("failed to update user", zap.Error(err))
		return nil, pkgerrors.Internal(err)
	}

	return uc.GetUser(ctx, GetUserRequest{ID: in.ID})
}

// DeleteUser deletes an existing user.
func (uc *Usecase) DeleteUser(ctx context.Context, in DeleteUserRequest) (*DeleteUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("deleting user", zap.Int64("id", in.ID))

	if _, err := uc.find(ctx, in.ID); err != nil {
		return nil, err
	}

	if err := uc.repo.Delete(ctx, in.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		log.Error("failed to delete user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, pkgerrors.Internal(err)
	}

	return &DeleteUserResponse{
		ID:      in.ID,
		Message: fmt.Sprintf("User %d deleted", in.ID),
	}, nil
}

// find loads a user and maps repository failures.
func (uc *Usecase) find(ctx context.Context, id int64) (*domain.User, error) {
	u, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.WithContext(ctx, uc.log).Debug("user not found", zap.Int64("id", id))
			return nil, ErrUserNotFound
		}
		logger.WithContext(ctx, uc.log).Error("failed to get user", zap.Int64("id", id), zap.Error(err))
		return nil, pkgerrors.Internal(err)
	}
	return u, nil
}

func toDTO(u *domain.User) *User {
	return &User{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}
