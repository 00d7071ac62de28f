package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/fulfillment"
	applog "threadline/internal/log"
	"threadline/internal/payment"
)

// WebhookPath receives payment notifications; it is exempt from CSRF checks.
const WebhookPath = "/webhooks/stripe"

type WebhookHandler struct {
	Gateway   Gateway
	Fulfiller Fulfiller
}

// POST /webhooks/stripe
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	ev, ok, err := h.Gateway.ParseWebhook(c.Body(), c.Get("Stripe-Signature"))
	if errors.Is(err, payment.ErrDisabled) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "webhooks not configured"})
	}
	if err != nil {
		applog.Security(c, "webhook.signature.fail", nil)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid signature"})
	}
	if !ok {
		return c.JSON(fiber.Map{"received": true})
	}

	res, err := h.Fulfiller.Process(c.UserContext(), ev)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"received": true, "order_id": res.Order.ID, "replayed": res.Replayed})
	case errors.Is(err, fulfillment.ErrMalformedPayload):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed payload"})
	case errors.Is(err, fulfillment.ErrInventoryRecordNotFound),
		errors.Is(err, fulfillment.ErrInsufficientStock),
		errors.Is(err, fulfillment.ErrInFlight):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not record order"})
	}
}
