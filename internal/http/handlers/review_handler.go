package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "threadline/internal/log"
	"threadline/internal/services"
	"threadline/internal/validate"
)

type ReviewHandler struct {
	Reviews *services.ReviewService
}

// POST /products/:id/reviews
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	pid, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "This item is no longer available")
	}
	rating, okR := validate.Rating(c.FormValue("rating"))
	body, okB := validate.Text(c.FormValue("body"), 1000)
	if !okR || !okB {
		applog.Security(c, "validation.fail", map[string]any{"field": "review"})
		return c.Status(fiber.StatusBadRequest).SendString("rating 1-5 and a review text are required")
	}
	rv, err := h.Reviews.Create(c.UserContext(), currentUser(c), pid, rating, body)
	if services.IsNotFound(err) {
		return notFound(c, "This item is no longer available")
	}
	if err != nil {
		applog.Error(c, "reviews.create.fail", err, map[string]any{"product": pid})
		return c.Status(fiber.StatusBadRequest).SendString("could not save review")
	}
	applog.Audit(c, "reviews.create", map[string]any{"product": pid, "review_id": rv.ID})
	return c.Redirect("/products/" + pid)
}

// POST /reviews/:id/delete
func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	rv, err := h.Reviews.Delete(c.UserContext(), currentUser(c), id)
	switch {
	case errors.Is(err, services.ErrForbidden):
		return h.denied(c, id)
	case services.IsNotFound(err):
		return notFound(c, "Review not found")
	case err != nil:
		applog.Error(c, "reviews.delete.fail", err, map[string]any{"review_id": id})
		return failPage(c, fiber.StatusInternalServerError, "Could not delete review")
	}
	applog.Audit(c, "reviews.delete", map[string]any{"review_id": id, "product": rv.ProductID})
	return c.Redirect("/products/" + rv.ProductID)
}

var ratings = []int{5, 4, 3, 2, 1}

func (h *ReviewHandler) denied(c *fiber.Ctx, id string) error {
	applog.Security(c, "access.denied.review", map[string]any{"review_id": id})
	return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Access denied"})
}

// GET /reviews/:id/edit
func (h *ReviewHandler) EditForm(c *fiber.Ctx) error {
	id := c.Params("id")
	rv, err := h.Reviews.Editable(c.UserContext(), currentUser(c), id)
	switch {
	case errors.Is(err, services.ErrForbidden):
		return h.denied(c, id)
	case services.IsNotFound(err):
		return notFound(c, "Review not found")
	case err != nil:
		applog.Error(c, "reviews.get.fail", err, map[string]any{"review_id": id})
		return failPage(c, fiber.StatusInternalServerError, "Could not load review")
	}
	return render(c, "review_edit", fiber.Map{"Review": rv, "Ratings": ratings})
}

// POST /reviews/:id/edit
func (h *ReviewHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	rating, okR := validate.Rating(c.FormValue("rating"))
	body, okB := validate.Text(c.FormValue("body"), 1000)
	if !okR || !okB {
		applog.Security(c, "validation.fail", map[string]any{"field": "review"})
		return c.Status(fiber.StatusBadRequest).SendString("rating 1-5 and a review text are required")
	}
	rv, err := h.Reviews.Update(c.UserContext(), currentUser(c), id, rating, body)
	switch {
	case errors.Is(err, services.ErrForbidden):
		return h.denied(c, id)
	case services.IsNotFound(err):
		return notFound(c, "Review not found")
	case err != nil:
		applog.Error(c, "reviews.update.fail", err, map[string]any{"review_id": id})
		return failPage(c, fiber.StatusInternalServerError, "Could not save review")
	}
	applog.Audit(c, "reviews.update", map[string]any{"review_id": id, "product": rv.ProductID, "rating": rating})
	return c.Redirect("/products/" + rv.ProductID)
}
