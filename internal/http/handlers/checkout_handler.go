package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/cart"
	applog "threadline/internal/log"
	"threadline/internal/payment"
	"threadline/internal/services"
)

type CheckoutHandler struct {
	Checkout *services.CheckoutService
	Carts    *services.CartService
	Sealer   *cart.Sealer
}

// POST /checkout
func (h *CheckoutHandler) Start(c *fiber.Ctx) error {
	u := currentUser(c)
	l := openCart(c, h.Sealer)
	url, err := h.Checkout.Start(c.UserContext(), l, u)
	switch {
	case err == nil:
		applog.Audit(c, "checkout.start", map[string]any{"lines": l.Len(), "subtotal": l.Subtotal()})
		return c.Redirect(url, fiber.StatusSeeOther)
	case errors.Is(err, cart.ErrCartTampered):
		applog.Security(c, "checkout.cart.tampered", nil)
		return h.cartPage(c, l, fiber.StatusBadRequest, "Your cart could not be verified and was cleared.")
	case errors.Is(err, services.ErrCartEmpty):
		return c.Redirect("/cart")
	case errors.Is(err, services.ErrNoAddress):
		return c.Redirect("/profile/address?next=cart")
	case errors.Is(err, services.ErrCartChanged):
		applog.Info(c, "checkout.cart.changed", nil)
		return h.cartPage(c, l, fiber.StatusConflict, "Some items changed since you added them. Please review your cart.")
	case errors.Is(err, payment.ErrMetadataTooLong):
		applog.Error(c, "checkout.metadata.too_long", err, nil)
		return h.cartPage(c, l, fiber.StatusConflict, "Your order details are too long for checkout. Please shorten your address or split the order.")
	case errors.Is(err, payment.ErrDisabled):
		return failPage(c, fiber.StatusServiceUnavailable, "Checkout is unavailable right now.")
	default:
		applog.Error(c, "checkout.start.fail", err, nil)
		return failPage(c, fiber.StatusBadGateway, "Could not reach the payment provider. Please try again.")
	}
}

func (h *CheckoutHandler) cartPage(c *fiber.Ctx, l *cart.Ledger, status int, msg string) error {
	cv, err := h.Carts.View(c.UserContext(), l)
	if err != nil {
		applog.Error(c, "cart.view.fail", err, nil)
		return failPage(c, fiber.StatusInternalServerError, "Could not load your cart")
	}
	return render(c.Status(status), "cart", fiber.Map{"Cart": cv, "Err": msg})
}
