package handlers

import (
	"checkout/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler serves the catalog read endpoints.
type ProductHandler struct {
	service *services.ProductService
	lg      *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, lg *zap.Logger) *ProductHandler {
	return &ProductHandler{service: service, lg: lg}
}

// RegisterRoutes registers the product routes with the Fiber app.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProduct)
}

// HandleGetProducts lists the catalog.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		return writeError(c, h.lg, err)
	}
	return c.JSON(products)
}

// HandleGetProduct returns a single product.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.lg, err)
	}
	return c.JSON(product)
}
