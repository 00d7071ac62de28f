package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/domain"
	applog "threadline/internal/log"
	"threadline/internal/services"
)

type ProfileHandler struct {
	Users *services.UserService
}

// GET /profile/address
func (h *ProfileHandler) AddressForm(c *fiber.Ctx) error {
	a, err := h.Users.Address(c.UserContext(), currentUser(c).ID)
	if err != nil {
		applog.Error(c, "profile.address.load.fail", err, nil)
		return failPage(c, fiber.StatusInternalServerError, "Could not load your address")
	}
	return render(c, "address", fiber.Map{"Address": a, "Next": c.Query("next")})
}

// POST /profile/address
func (h *ProfileHandler) SaveAddress(c *fiber.Ctx) error {
	in := domain.Address{
		Street:     c.FormValue("street"),
		City:       c.FormValue("city"),
		State:      c.FormValue("state"),
		Country:    c.FormValue("country"),
		PostalCode: c.FormValue("postal_code"),
	}
	a, err := h.Users.SaveAddress(c.UserContext(), currentUser(c).ID, in)
	if errors.Is(err, services.ErrInvalidInput) {
		applog.Security(c, "validation.fail", map[string]any{"field": "address"})
		return render(c.Status(fiber.StatusBadRequest), "address", fiber.Map{
			"Address": in, "Next": c.FormValue("next"), "Err": "All address fields are required.",
		})
	}
	if err != nil {
		applog.Error(c, "profile.address.save.fail", err, nil)
		return failPage(c, fiber.StatusInternalServerError, "Could not save your address")
	}
	applog.Audit(c, "profile.address.save", map[string]any{"city": a.City, "country": a.Country})
	if c.FormValue("next") == "cart" {
		return c.Redirect("/cart")
	}
	return c.Redirect("/profile/address")
}
