package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/cart"
	applog "threadline/internal/log"
	"threadline/internal/services"
	"threadline/internal/validate"
)

type CartHandler struct {
	Carts  *services.CartService
	Sealer *cart.Sealer
}

func (h *CartHandler) View(c *fiber.Ctx) error {
	return h.show(c, fiber.StatusOK, "")
}

// show renders the cart after reconciling it with current stock.
func (h *CartHandler) show(c *fiber.Ctx, status int, msg string) error {
	l := openCart(c, h.Sealer)
	cv, err := h.Carts.View(c.UserContext(), l)
	if err != nil {
		applog.Error(c, "cart.view.fail", err, nil)
		return failPage(c, fiber.StatusInternalServerError, "Could not load your cart")
	}
	if cv.Tampered {
		applog.Security(c, "cart.tampered", nil)
		msg = "Your cart could not be verified and was reset."
	}
	return render(c.Status(status), "cart", fiber.Map{"Cart": cv, "Err": msg})
}

// POST /cart
func (h *CartHandler) Add(c *fiber.Ctx) error {
	sizeID, ok := validate.ID(c.FormValue("sizeId"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "sizeId"})
		return c.Status(fiber.StatusBadRequest).SendString("missing sizeId")
	}
	qty := validate.Qty(c.FormValue("qty"), h.Carts.MaxPerLine)

	l := openCart(c, h.Sealer)
	err := h.Carts.Add(c.UserContext(), l, sizeID, qty)
	switch {
	case err == nil:
	case services.IsNotFound(err):
		return notFound(c, "This item is no longer available")
	case errors.Is(err, cart.ErrQuantityExceeded):
		applog.Info(c, "cart.add.rejected", map[string]any{"size_id": sizeID, "qty": qty})
		return h.show(c, fiber.StatusConflict, "Not enough stock for that quantity.")
	case errors.Is(err, cart.ErrCartFull):
		applog.Info(c, "cart.add.rejected", map[string]any{"size_id": sizeID, "reason": "full"})
		return h.show(c, fiber.StatusConflict, fmt.Sprintf("Your cart can hold up to %d different items.", cart.MaxLines))
	case errors.Is(err, cart.ErrInvalidQuantity):
		return c.Status(fiber.StatusBadRequest).SendString("invalid quantity")
	default:
		applog.Error(c, "cart.add.fail", err, map[string]any{"size_id": sizeID})
		return failPage(c, fiber.StatusInternalServerError, "Could not update your cart")
	}
	if l.Tampered() {
		applog.Security(c, "cart.tampered", nil)
	}
	return c.Redirect("/cart")
}

// POST /cart/decrement
func (h *CartHandler) Decrement(c *fiber.Ctx) error {
	sizeID, ok := validate.ID(c.FormValue("sizeId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing sizeId")
	}
	openCart(c, h.Sealer).RemoveOne(sizeID)
	return c.Redirect("/cart")
}

// POST /cart/remove
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	sizeID, ok := validate.ID(c.FormValue("sizeId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).SendString("missing sizeId")
	}
	openCart(c, h.Sealer).RemoveLine(sizeID)
	return c.Redirect("/cart")
}

// POST /cart/clear
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	openCart(c, h.Sealer).Clear()
	return c.Redirect("/cart")
}
