package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "threadline/internal/log"
	"threadline/internal/services"
)

type CategoryHandler struct {
	Catalog *services.CatalogService
}

// GET /category/:name
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Params("name"))
	products, err := h.Catalog.ByCategory(c.UserContext(), name)
	if services.IsNotFound(err) {
		return notFound(c, "No products in this category")
	}
	if err != nil {
		applog.Error(c, "category.list.fail", err, map[string]any{"category": name})
		return failPage(c, fiber.StatusInternalServerError, "Could not load products")
	}
	return render(c, "category", fiber.Map{"Category": name, "Products": products})
}
