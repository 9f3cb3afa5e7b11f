package middleware

import (
	"strings"

	"checkout/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthRequired is a Fiber middleware to check for a valid JWT token.
func AuthRequired(authService *services.AuthService, lg *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		tokenString, ok := bearer(authHeader)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			lg.Debug("JWT validation failed", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		// Store claims in Fiber context for subsequent handlers
		c.Locals("user_id", claims["user_id"])
		c.Locals("phone", claims["phone"])
		return c.Next()
	}
}

// OptionalAuth stores the claims of a valid token but lets anonymous
// requests through. Invalid tokens are treated as absent.
func OptionalAuth(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenString, ok := bearer(c.Get(fiber.HeaderAuthorization)); ok {
			if claims, err := authService.ValidateToken(tokenString); err == nil {
				c.Locals("user_id", claims["user_id"])
				c.Locals("phone", claims["phone"])
			}
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

// Expected format: "Bearer <token>"
func bearer(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
