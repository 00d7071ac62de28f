package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/cart"
	applog "threadline/internal/log"
	"threadline/internal/services"
)

type OrderHandler struct {
	Orders *services.OrderService
	Sealer *cart.Sealer
}

// GET /orders/:id
func (h *OrderHandler) View(c *fiber.Ctx) error {
	oid := c.Params("id")
	o, err := h.Orders.Get(c.UserContext(), oid, currentUser(c))
	if errors.Is(err, services.ErrForbidden) {
		applog.Security(c, "access.denied.order", map[string]any{"order_id": oid})
		return notFound(c, "Order not found")
	}
	if err != nil {
		if !services.IsNotFound(err) {
			applog.Error(c, "orders.view.fail", err, map[string]any{"order_id": oid})
		}
		return notFound(c, "Order not found")
	}
	return render(c, "order", fiber.Map{"Order": o})
}

// History lists orders for the current logged-in user.
func (h *OrderHandler) History(c *fiber.Ctx) error {
	u := currentUser(c)
	if u == nil {
		return notFound(c, "Orders not available")
	}
	orders, err := h.Orders.History(c.UserContext(), u.ID)
	if err != nil {
		applog.Error(c, "orders.history.fail", err, nil)
		return failPage(c, fiber.StatusInternalServerError, "Could not load orders")
	}
	return render(c, "orders", fiber.Map{"Orders": orders})
}

// Success is where the payment provider sends the shopper back. The cart is cleared and the
// most recent order shown; the webhook may not have landed yet.
func (h *OrderHandler) Success(c *fiber.Ctx) error {
	openCart(c, h.Sealer).Clear()
	u := currentUser(c)
	o, err := h.Orders.Latest(c.UserContext(), u.ID)
	if services.IsNotFound(err) {
		return render(c, "success", fiber.Map{"Pending": true})
	}
	if err != nil {
		applog.Error(c, "orders.latest.fail", err, nil)
		return failPage(c, fiber.StatusInternalServerError, "Could not load your order")
	}
	return render(c, "success", fiber.Map{"Order": o})
}
