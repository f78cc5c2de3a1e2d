package user

// CreateUserRequest represents the request payload for creating a new user.
type CreateUserRequest struct {
	Name  string `validate:"required"`
	Email string `validate:"required"`
}

// UpdateUserRequest represents a partial update of an existing user.
// Nil fields are left untouched.
type UpdateUserRequest struct {
	ID    int64
	Name  *string `validate:"omitempty,min=1"`
	Email *string `validate:"omitempty,min=1"`
}

// GetUserRequest represents the request payload for retrieving a user.
type GetUserRequest struct {
	ID int64
}

// DeleteUserRequest represents the request payload for deleting a user.
type DeleteUserRequest struct {
	ID int64
}

// DeleteUserResponse carries the confirmation of a deletion.
type DeleteUserResponse struct {
	ID      int64
	Message string
}

// User represents a user DTO (Data Transfer Object) for API responses.
type User struct {
	ID    int64
	Name  string
	Email string
}
