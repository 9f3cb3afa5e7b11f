package handlers

import (
	"checkout/internal/middleware"
	"checkout/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"
)

// Services are the collaborators the HTTP surface needs.
type Services struct {
	Auth         *services.AuthService
	Products     *services.ProductService
	Carts        *services.CartService
	Orders       *services.OrderService
	Verification *services.VerificationService
	Settlement   *services.SettlementService
}

// Mount registers every route under /api/v1.
func Mount(app *fiber.App, svc Services, store *session.Store, lg *zap.Logger) {
	apiV1 := app.Group("/api/v1")
	authRequired := middleware.AuthRequired(svc.Auth, lg)
	optionalAuth := middleware.OptionalAuth(svc.Auth)

	NewAuthHandler(svc.Auth, lg).RegisterRoutes(apiV1, authRequired)
	NewProductHandler(svc.Products, lg).RegisterRoutes(apiV1)
	NewCartHandler(svc.Carts, store, lg).RegisterRoutes(apiV1, optionalAuth)
	NewOrderHandler(svc.Carts, svc.Orders, svc.Verification, svc.Settlement, svc.Auth, store, lg).
		RegisterRoutes(apiV1, authRequired)
}
