package handlers

import (
	"checkout/internal/middleware"
	"checkout/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	lg          *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, lg *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    services.NewValidator(),
		lg:          lg,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
// Accounts are created by phone verification, see OrderHandler.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/me", authRequired, h.HandleMe)
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Phone    string `json:"phone" validate:"required,mobile"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := services.ValidateStruct(h.validate, req); err != nil {
		return writeError(c, h.lg, err)
	}

	token, err := h.authService.Login(c.UserContext(), req.Phone, req.Password)
	if err != nil {
		h.lg.Info("Login failed", zap.String("phone", req.Phone), zap.Error(err))
		return writeError(c, h.lg, err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}

// HandleMe returns the account of the caller, loyalty points included.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	user, err := h.authService.Profile(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return writeError(c, h.lg, err)
	}
	return c.JSON(user)
}
