package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "threadline/internal/log"
	"threadline/internal/services"
	"threadline/internal/validate"
)

type InventoryHandler struct {
	Inv *services.InventoryService
}

// GET /api/v1/availability?sizeId=
func (h *InventoryHandler) Check(c *fiber.Ctx) error {
	sizeID, ok := validate.ID(c.Query("sizeId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing sizeId",
		})
	}
	avail, err := h.Inv.CheckAvailability(c.UserContext(), sizeID)
	if err != nil {
		applog.Error(c, "availability.fail", err, map[string]any{"size_id": sizeID})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "could not check availability",
		})
	}
	return c.JSON(fiber.Map{"status": avail.Status, "qty": avail.Qty})
}
