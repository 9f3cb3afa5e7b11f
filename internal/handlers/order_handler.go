package handlers

import (
	"checkout/internal/middleware"
	"checkout/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for the checkout: phone verification,
// order placement and the payment handshake.
type OrderHandler struct {
	carts      *services.CartService
	orders     *services.OrderService
	verifier   *services.VerificationService
	settlement *services.SettlementService
	auth       *services.AuthService
	store      *session.Store
	validate   *validator.Validate
	lg         *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(
	carts *services.CartService,
	orders *services.OrderService,
	verifier *services.VerificationService,
	settlement *services.SettlementService,
	auth *services.AuthService,
	store *session.Store,
	lg *zap.Logger,
) *OrderHandler {
	return &OrderHandler{
		carts:      carts,
		orders:     orders,
		verifier:   verifier,
		settlement: settlement,
		auth:       auth,
		store:      store,
		validate:   services.NewValidator(),
		lg:         lg,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	orderRoutes := router.Group("/order")
	orderRoutes.Post("/verify-phone", h.HandleVerifyPhone)
	orderRoutes.Post("/verify-code", h.HandleVerifyCode)
	// The gateway redirects the buyer's browser here without a token.
	orderRoutes.Get("/payment/callback", h.HandlePaymentCallback)
	orderRoutes.Post("/create", authRequired, h.HandleCreateOrder)
	orderRoutes.Get("/", authRequired, h.HandleListOrders)
	orderRoutes.Get("/:id", authRequired, h.HandleGetOrder)
	orderRoutes.Post("/:id/payment", authRequired, h.HandlePaymentRequest)
}

type verifyPhoneRequest struct {
	Phone string `json:"phone" validate:"required,mobile"`
}

type verifyCodeRequest struct {
	Code string `json:"code" validate:"required,numeric"`
}

// HandleVerifyPhone sends a one-time code to the phone.
func (h *OrderHandler) HandleVerifyPhone(c *fiber.Ctx) error {
	var req verifyPhoneRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := services.ValidateStruct(h.validate, req); err != nil {
		return writeError(c, h.lg, err)
	}
	return withSession(c, h.store, h.lg, func(sess *session.Session) error {
		if err := h.verifier.Issue(c.UserContext(), sess, req.Phone); err != nil {
			return writeError(c, h.lg, err)
		}
		return c.JSON(fiber.Map{
			"message": "Verification code sent",
		})
	})
}

// HandleVerifyCode consumes the code, provisions the account and logs the
// buyer in.
func (h *OrderHandler) HandleVerifyCode(c *fiber.Ctx) error {
	var req verifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := services.ValidateStruct(h.validate, req); err != nil {
		return writeError(c, h.lg, err)
	}
	return withSession(c, h.store, h.lg, func(sess *session.Session) error {
		user, err := h.verifier.Consume(c.UserContext(), sess, req.Code)
		if err != nil {
			return writeError(c, h.lg, err)
		}
		token, err := h.auth.IssueToken(user)
		if err != nil {
			return writeError(c, h.lg, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Phone verified, temporary password sent",
			"user":    user,
			"token":   token,
		})
	})
}

// HandleCreateOrder places an order for the session cart.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var contact services.ContactInfo
	if err := c.BodyParser(&contact); err != nil {
		return badRequest(c, err)
	}
	return withSession(c, h.store, h.lg, func(sess *session.Session) error {
		cart, err := h.carts.Get(sess)
		if err != nil {
			return writeError(c, h.lg, err)
		}
		order, err := h.orders.CreateOrder(c.UserContext(), middleware.UserID(c), contact, cart)
		if err != nil {
			return writeError(c, h.lg, err)
		}
		return c.Status(fiber.StatusCreated).JSON(orderView(order))
	})
}

// HandleListOrders lists the buyer's orders.
func (h *OrderHandler) HandleListOrders(c *fiber.Ctx) error {
	orders, err := h.orders.ListOrders(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return writeError(c, h.lg, err)
	}
	views := make([]fiber.Map, 0, len(orders))
	for i := range orders {
		views = append(views, orderView(&orders[i]))
	}
	return c.JSON(views)
}

// HandleGetOrder returns one of the buyer's orders.
func (h *OrderHandler) HandleGetOrder(c *fiber.Ctx) error {
	order, err := h.orders.GetOrder(c.UserContext(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return writeError(c, h.lg, err)
	}
	return c.JSON(orderView(order))
}

// HandlePaymentRequest starts a gateway payment for the order.
func (h *OrderHandler) HandlePaymentRequest(c *fiber.Ctx) error {
	return withSession(c, h.store, h.lg, func(sess *session.Session) error {
		redirect, err := h.settlement.Initiate(c.UserContext(), sess, c.Params("id"), middleware.UserID(c))
		if err != nil {
			return writeError(c, h.lg, err)
		}
		return c.JSON(redirect)
	})
}

// HandlePaymentCallback settles the order after the gateway redirect.
func (h *OrderHandler) HandlePaymentCallback(c *fiber.Ctx) error {
	orderID := c.Query("order_id")
	authority := c.Query("Authority")
	if orderID == "" || authority == "" {
		return writeError(c, h.lg, &services.ValidationError{Fields: map[string]string{
			"order_id":  "required",
			"Authority": "required",
		}})
	}
	return withSession(c, h.store, h.lg, func(sess *session.Session) error {
		order, err := h.settlement.Callback(c.UserContext(), sess, orderID, authority, c.Query("Status"))
		if err != nil {
			return writeError(c, h.lg, err)
		}
		return c.JSON(fiber.Map{
			"message": "Payment verified",
			"order":   orderView(order),
		})
	})
}
