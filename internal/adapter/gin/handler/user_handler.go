package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"user-crud-service/internal/usecase/user"
	pkgerrors "user-crud-service/pkg/errors"
	"user-crud-service/pkg/logger"
	"user-crud-service/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const invalidIDMessage = "Validation failed (numeric string is expected)"

func init() {
	// Binding errors name fields by their JSON keys.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validation.Configure(v)
	}
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.UserUsecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.UserUsecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// CreateUserRequest represents the HTTP request body for creating a user
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

// UpdateUserRequest represents the HTTP request body for updating a user.
// Absent fields are left unchanged.
type UpdateUserRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1"`
	Email *string `json:"email" binding:"omitempty,min=1"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// ValidationErrorResponse represents a rejected request body or parameter
type ValidationErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Message    []string `json:"message"`
	Error      string   `json:"error"`
}

// CreateUser handles POST /user
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := bindBody(c, &req, true); err != nil {
		h.log.Warn("Invalid create user request", zap.Error(err))
		h.respondError(c, err)
		return
	}

	resp, err := h.uc.CreateUser(c.Request.Context(), user.CreateUserRequest{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toResponse(resp))
}

// ListUsers handles GET /user
func (h *UserHandler) ListUsers(c *gin.Context) {
	resp, err := h.uc.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	users := make([]UserResponse, len(resp))
	for i := range resp {
		users[i] = toResponse(&resp[i])
	}
	c.JSON(http.StatusOK, users)
}

// GetUser handles GET /user/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	resp, err := h.uc.GetUser(c.Request.Context(), user.GetUserRequest{ID: id})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(resp))
}

// UpdateUser handles PATCH /user/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := bindBody(c, &req, false); err != nil {
		h.log.Warn("Invalid update user request", zap.Int64("id", id), zap.Error(err))
		h.respondError(c, err)
		return
	}

	resp, err := h.uc.UpdateUser(c.Request.Context(), user.UpdateUserRequest{
		ID:    id,
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(resp))
}

// DeleteUser handles DELETE /user/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	resp, err := h.uc.DeleteUser(c.Request.Context(), user.DeleteUserRequest{ID: id})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.String(http.StatusOK, resp.Message)
}

// parseID reads the :id path parameter and writes a 400 when it is not a
// decimal integer.
func (h *UserHandler) parseID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.log.Warn("Invalid user ID", zap.String("id", idStr), zap.Error(err))
		h.respondError(c, pkgerrors.NewValidationError(invalidIDMessage))
		return 0, false
	}
	return id, true
}

// bindBody decodes and validates the JSON body into obj. An empty body is
// treated as "{}"; when validateEmpty is set the zero value is still checked.
func bindBody(c *gin.Context, obj any, validateEmpty bool) error {
	err := c.ShouldBindJSON(obj)
	if errors.Is(err, io.EOF) {
		if !validateEmpty {
			return nil
		}
		err = binding.Validator.ValidateStruct(obj)
	}
	if err != nil {
		return pkgerrors.NewValidationError(validation.Messages(err)...)
	}
	return nil
}

// respondError writes err using the status and message it carries.
func (h *UserHandler) respondError(c *gin.Context, err error) {
	status := pkgerrors.StatusCode(err)

	if pkgerrors.KindOf(err) == pkgerrors.KindValidation {
		c.JSON(status, ValidationErrorResponse{
			StatusCode: status,
			Message:    pkgerrors.Messages(err),
			Error:      http.StatusText(status),
		})
		return
	}

	if status >= http.StatusInternalServerError {
		logger.WithContext(c.Request.Context(), h.log).Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	c.JSON(status, ErrorResponse{
		StatusCode: status,
		Message:    err.Error(),
	})
}

func toResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
}
