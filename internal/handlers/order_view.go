package handlers

import (
	"checkout/internal/models"

	"github.com/gofiber/fiber/v2"
)

// orderView adds the derived costs to the stored order.
func orderView(order *models.Order) fiber.Map {
	return fiber.Map{
		"order":         order,
		"subtotal":      order.Subtotal(),
		"total_cost":    order.TotalCost(),
		"total_weight":  order.TotalWeight(),
		"shipping_cost": order.ShippingCost(),
		"final_cost":    order.FinalCost(),
	}
}
