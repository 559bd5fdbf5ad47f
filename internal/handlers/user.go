package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"prospector/internal/models"
	"prospector/internal/storage"
)

// UserHandler serves the user API
type UserHandler struct {
	repo *storage.UserRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(repo *storage.UserRepository) *UserHandler {
	return &UserHandler{repo: repo}
}

// CreateUserRequest is the payload for registering a user
type CreateUserRequest struct {
	Email              string `json:"email" validate:"required,email"`
	Name               string `json:"name"`
	ProviderCredential string `json:"provider_credential"`
}

// Create registers a user with their provider credential
// POST /api/users
func (h *UserHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	existing, err := h.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if existing != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": "email already registered"})
	}

	user := &models.User{
		Email:              req.Email,
		Name:               req.Name,
		ProviderCredential: req.ProviderCredential,
	}
	if err := h.repo.Create(ctx, user); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusCreated, user)
}

// Get returns a user
// GET /api/users/:id
func (h *UserHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user id"})
	}

	user, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if user == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, user)
}
