package handlers

import (
	"context"

	"checkout/internal/middleware"
	"checkout/internal/models"
	"checkout/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"go.uber.org/zap"
)

// CartHandler handles HTTP requests for the session cart.
type CartHandler struct {
	service  *services.CartService
	store    *session.Store
	validate *validator.Validate
	lg       *zap.Logger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService, store *session.Store, lg *zap.Logger) *CartHandler {
	return &CartHandler{
		service:  service,
		store:    store,
		validate: services.NewValidator(),
		lg:       lg,
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router, optionalAuth fiber.Handler) {
	cartRoutes := router.Group("/cart", optionalAuth)
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Delete("/", h.HandleClear)
	cartRoutes.Post("/add", h.HandleAdd)
	cartRoutes.Post("/update-quantity", h.HandleUpdateQuantity)
	cartRoutes.Post("/delete", h.HandleDelete)
	cartRoutes.Post("/coupon", h.HandleApplyCoupon)
	cartRoutes.Delete("/coupon", h.HandleRemoveCoupon)
}

type addRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type updateQuantityRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Action    string `json:"action" validate:"required,oneof=add decrease"`
}

type productRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

type couponRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

// cartView is the cart as shown to the buyer.
type cartView struct {
	Items        []services.CartLine `json:"items"`
	Coupon       *models.CartCoupon  `json:"coupon,omitempty"`
	ItemCount    int                 `json:"item_count"`
	TotalPrice   int64               `json:"total_price"`
	TotalWeight  int                 `json:"total_weight"`
	ShippingCost int64               `json:"shipping_cost"`
	FinalPrice   int64               `json:"final_price"`
}

func (h *CartHandler) view(ctx context.Context, cart *models.Cart) (*cartView, error) {
	lines, err := h.service.Lines(ctx, cart)
	if err != nil {
		return nil, err
	}
	return &cartView{
		Items:        lines,
		Coupon:       cart.Coupon,
		ItemCount:    cart.Len(),
		TotalPrice:   cart.TotalPrice(),
		TotalWeight:  cart.TotalWeight(),
		ShippingCost: cart.ShippingCost(),
		FinalPrice:   cart.FinalCost(),
	}, nil
}

func (h *CartHandler) respond(c *fiber.Ctx, cart *models.Cart, err error) error {
	if err != nil {
		return writeError(c, h.lg, err)
	}
	v, err := h.view(c.UserContext(), cart)
	if err != nil {
		return writeError(c, h.lg, err)
	}
	return c.JSON(v)
}

// HandleGetCart returns the cart with its totals.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	return withSession(c, h.store, h.lg, func(sess *session.Session) error {
		cart, err := h.service.Get(sess)
		return h.respond(c, cart, err)
	})
}

// HandleClear empties the cart.
func (h *CartHandler) HandleClear(c *fiber.Ctx) error {
	return withSession(c, h.store, h.lg, func(sess *session.Session) error {
		h.service.Clear(sess)
		return h.respond(c, models.NewCart(), nil)
	})
}

// HandleAdd adds quantity units of a product.
func (h *CartHandler) HandleAdd(c *fiber.Ctx) error {
	var req addRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := services.ValidateStruct(h.validate, req); err != nil {
		return writeError(c, h.lg, err)
	}
	return withSession(c, h.store, h.lg, func(sess *session.Session) error {
		cart, err := h.service.Add(c.UserContext(), sess, req.ProductID, req.Quantity)
		return h.respond(c, cart, err)
	})
}

// HandleUpdateQuantity increments or decrements a line by one.
func (h *CartHandler) HandleUpdateQuantity(c *fiber.Ctx) error {
	var req updateQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := services.ValidateStruct(h.validate, req); err != nil {
		return writeError(c, h.lg, err)
	}
	return withSession(c, h.store, h.lg, func(sess *session.Session) error {
		var (
			cart *models.Cart
			err  error
		)
		if req.Action == "add" {
			cart, err = h.service.Add(c.UserContext(), sess, req.ProductID, 1)
		} else {
			cart, err = h.service.Decrease(c.UserContext(), sess, req.ProductID)
		}
		return h.respond(c, cart, err)
	})
}

// HandleDelete removes a product line.
func (h *CartHandler) HandleDelete(c *fiber.Ctx) error {
	var req productRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := services.ValidateStruct(h.validate, req); err != nil {
		return writeError(c, h.lg, err)
	}
	return withSession(c, h.store, h.lg, func(sess *session.Session) error {
		cart, err := h.service.Remove(c.UserContext(), sess, req.ProductID)
		return h.respond(c, cart, err)
	})
}

// HandleApplyCoupon attaches a coupon to the cart.
func (h *CartHandler) HandleApplyCoupon(c *fiber.Ctx) error {
	var req couponRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	if err := services.ValidateStruct(h.validate, req); err != nil {
		return writeError(c, h.lg, err)
	}
	return withSession(c, h.store, h.lg, func(sess *session.Session) error {
		cart, err := h.service.ApplyCoupon(c.UserContext(), sess, req.Code, middleware.UserID(c))
		return h.respond(c, cart, err)
	})
}

// HandleRemoveCoupon detaches the coupon.
func (h *CartHandler) HandleRemoveCoupon(c *fiber.Ctx) error {
	return withSession(c, h.store, h.lg, func(sess *session.Session) error {
		cart, err := h.service.RemoveCoupon(sess)
		return h.respond(c, cart, err)
	})
}
