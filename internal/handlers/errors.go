package handlers

import (
	"checkout/internal/repositories"
	"checkout/internal/services"

	"github.com/go-faster/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"
)

var sentinelStatus = []struct {
	err     error
	status  int
	message string
}{
	{services.ErrAlreadyRegistered, fiber.StatusConflict, "Phone already registered"},
	{services.ErrCodeMismatch, fiber.StatusBadRequest, "Verification code does not match"},
	{services.ErrNoActiveChallenge, fiber.StatusBadRequest, "No active verification code, request a new one"},
	{services.ErrOrderNotFound, fiber.StatusNotFound, "Order not found"},
	{services.ErrEmptyCart, fiber.StatusBadRequest, "Cart is empty"},
	{services.ErrInvalidCoupon, fiber.StatusBadRequest, "Invalid coupon code"},
	{services.ErrCouponExhausted, fiber.StatusConflict, "Coupon usage limit reached"},
	{services.ErrAlreadyPaid, fiber.StatusConflict, "Order already paid"},
	{services.ErrAuthorityMismatch, fiber.StatusBadRequest, "Payment authority mismatch"},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized, "Invalid credentials"},
	{repositories.ErrNotFound, fiber.StatusNotFound, "Not found"},
}

// writeError maps a service error to its HTTP response. Errors outside the
// checkout taxonomy are logged and reported as 500.
func writeError(c *fiber.Ctx, lg *zap.Logger, err error) error {
	var (
		validation  *services.ValidationError
		unavailable *services.ProductUnavailableError
		short       *services.InsufficientInventoryError
		transport   *services.GatewayTransportError
		rejected    *services.GatewayRejectedError
	)
	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validation.Fields,
		})
	case errors.As(err, &unavailable):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message":    "Product unavailable",
			"error":      err.Error(),
			"product_id": unavailable.ProductID,
		})
	case errors.As(err, &short):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message":    "Insufficient inventory",
			"error":      err.Error(),
			"product_id": short.ProductID,
			"requested":  short.Requested,
			"available":  short.Available,
		})
	case errors.As(err, &transport):
		lg.Warn("Payment gateway unavailable", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message":   "Payment gateway unavailable, try again",
			"error":     err.Error(),
			"retryable": true,
		})
	case errors.As(err, &rejected):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"message": "Payment rejected, start a new payment",
			"error":   err.Error(),
			"status":  rejected.Status,
		})
	}
	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			return c.Status(s.status).JSON(fiber.Map{
				"message": s.message,
				"error":   err.Error(),
			})
		}
	}

	lg.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
	})
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// withSession loads the visitor session, runs fn and saves the session
// whatever fn returned, so failed attempts are remembered too.
func withSession(c *fiber.Ctx, store *session.Store, lg *zap.Logger, fn func(sess *session.Session) error) error {
	sess, err := store.Get(c)
	if err != nil {
		return writeError(c, lg, errors.Wrap(err, "load session"))
	}
	fnErr := fn(sess)
	if err := sess.Save(); err != nil {
		return writeError(c, lg, errors.Wrap(err, "save session"))
	}
	return fnErr
}
