package handlers

import (
	"github.com/gofiber/fiber/v2"

	"threadline/internal/domain"
	applog "threadline/internal/log"
	"threadline/internal/services"
	"threadline/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

// GET / and /products
func (h *ProductHandler) List(c *fiber.Ctx) error {
	page, err := h.Catalog.Page(c.UserContext(), validate.Page(c.Query("page")))
	if err != nil {
		applog.Error(c, "products.list.fail", err, nil)
		return failPage(c, fiber.StatusInternalServerError, "Could not load products")
	}
	cats, err := h.Catalog.Categories(c.UserContext())
	if err != nil {
		applog.Error(c, "categories.list.fail", err, nil)
	}
	return render(c, "home", fiber.Map{"Page": page, "Categories": cats})
}

// GET /products/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "product"})
		return notFound(c, "This item is no longer available")
	}
	v, err := h.Catalog.Product(c.UserContext(), id, currentUser(c))
	if err != nil {
		if !services.IsNotFound(err) {
			applog.Error(c, "products.view.fail", err, map[string]any{"product": id})
		}
		return notFound(c, "This item is no longer available")
	}
	avail := map[string]domain.Availability{}
	for _, variant := range v.Product.Variants {
		for _, s := range variant.Sizes {
			avail[s.ID] = services.Availability(s.AvailableQty)
		}
	}
	return render(c, "product", fiber.Map{"P": v.Product, "View": v, "Avail": avail})
}
