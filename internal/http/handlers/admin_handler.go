package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"threadline/internal/domain"
	applog "threadline/internal/log"
	"threadline/internal/services"
	"threadline/internal/validate"
)

type AdminHandler struct {
	Orders  *services.OrderService
	Inv     *services.InventoryService
	Catalog *services.CatalogService
	Users   *services.UserService
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	return c.Redirect("/admin/orders")
}

// GET /admin/orders
func (h *AdminHandler) OrdersPage(c *fiber.Ctx) error {
	ords, err := h.Orders.ListLatest(c.UserContext(), 100)
	if err != nil {
		applog.Error(c, "admin.orders.list.fail", err, nil)
		return failPage(c, fiber.StatusInternalServerError, "Could not load orders")
	}
	return render(c, "admin_orders", fiber.Map{
		"Orders": ords, "Statuses": domain.OrderStatuses, "PaymentStatuses": domain.PaymentStatuses,
	})
}

// POST /admin/orders/:id/status
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	return h.updateOrder(c, "admin.orders.status", h.Orders.SetStatus)
}

// POST /admin/orders/:id/payment
func (h *AdminHandler) UpdatePaymentStatus(c *fiber.Ctx) error {
	return h.updateOrder(c, "admin.orders.payment", h.Orders.SetPaymentStatus)
}

func (h *AdminHandler) updateOrder(c *fiber.Ctx, action string, set func(ctx context.Context, id, status string) error) error {
	id := c.Params("id")
	status := c.FormValue("status")
	if id == "" || status == "" {
		return c.Status(fiber.StatusBadRequest).SendString("missing id or status")
	}
	err := set(c.UserContext(), id, status)
	switch {
	case errors.Is(err, services.ErrInvalidStatus):
		applog.Security(c, "validation.fail", map[string]any{"field": "status", "value": status})
		return c.Status(fiber.StatusBadRequest).SendString("unknown status")
	case services.IsNotFound(err):
		return notFound(c, "Order not found")
	case err != nil:
		applog.Error(c, action+".fail", err, map[string]any{"order_id": id})
		return c.Status(fiber.StatusInternalServerError).SendString("could not update status")
	}
	applog.Audit(c, action, map[string]any{"order_id": id, "status": status})
	return c.Redirect("/admin/orders")
}

// GET /admin/inventory
func (h *AdminHandler) Inventory(c *fiber.Ctx) error {
	rows, err := h.Inv.Rows(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.inventory.list.fail", err, nil)
		return failPage(c, fiber.StatusInternalServerError, "Could not load inventory")
	}
	return render(c, "admin_inventory", fiber.Map{"Rows": rows})
}

// POST /admin/inventory
func (h *AdminHandler) UpdateInventory(c *fiber.Ctx) error {
	sizeID, okID := validate.ID(c.FormValue("size_id"))
	qty, okQty := validate.NonNegative(c.FormValue("qty"))
	if !okID || !okQty {
		applog.Security(c, "validation.fail", map[string]any{"field": "inventory"})
		return c.Status(fiber.StatusBadRequest).SendString("invalid input")
	}
	prev, err := h.Inv.SetQty(c.UserContext(), sizeID, qty)
	if services.IsNotFound(err) {
		return notFound(c, "Size not found")
	}
	if err != nil {
		applog.Error(c, "admin.inventory.save.fail", err, map[string]any{"size_id": sizeID, "qty": qty})
		return c.Status(fiber.StatusInternalServerError).SendString("could not save inventory")
	}
	applog.Audit(c, "admin.inventory.save", map[string]any{"size_id": sizeID, "prev": prev, "qty": qty})
	return c.Redirect("/admin/inventory")
}

// GET /admin/products
func (h *AdminHandler) Products(c *fiber.Ctx) error {
	products, err := h.Catalog.ListAll(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.products.list.fail", err, nil)
		return failPage(c, fiber.StatusInternalServerError, "Could not load products")
	}
	return render(c, "admin_products", fiber.Map{"Products": products})
}

// POST /admin/products/:id/publish with published=true|false
func (h *AdminHandler) SetPublished(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Product not found")
	}
	published := c.FormValue("published") == "true"
	err := h.Catalog.SetPublished(c.UserContext(), id, published)
	if services.IsNotFound(err) {
		return notFound(c, "Product not found")
	}
	if err != nil {
		applog.Error(c, "admin.products.publish.fail", err, map[string]any{"product": id})
		return c.Status(fiber.StatusInternalServerError).SendString("could not update product")
	}
	applog.Audit(c, "admin.products.publish", map[string]any{"product": id, "published": published})
	return c.Redirect("/admin/products")
}

// GET /admin/users
func (h *AdminHandler) UsersPage(c *fiber.Ctx) error {
	users, err := h.Users.List(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.users.list.fail", err, nil)
		return failPage(c, fiber.StatusInternalServerError, "Could not load users")
	}
	return render(c, "admin_users", fiber.Map{"Users": users})
}

// DeleteUser deletes a user with their sessions, address and reviews, and cancels their open orders.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).SendString("missing id")
	}
	_, err := h.Users.Delete(c.UserContext(), currentUser(c), id)
	switch {
	case errors.Is(err, services.ErrOwnerProtected), errors.Is(err, services.ErrForbidden):
		applog.Security(c, "admin.users.delete.denied", map[string]any{"user_id": id, "reason": err.Error()})
		return c.Status(fiber.StatusForbidden).SendString(err.Error())
	case services.IsNotFound(err):
		return notFound(c, "User not found")
	case err != nil:
		applog.Error(c, "admin.users.delete.fail", err, map[string]any{"user_id": id})
		return c.Status(fiber.StatusInternalServerError).SendString("could not delete user")
	}
	applog.Audit(c, "admin.users.delete", map[string]any{"user_id": id})
	return c.Redirect("/admin/users")
}

func productForm(c *fiber.Ctx, status int, p domain.Product, price, msg string) error {
	return render(c.Status(status), "admin_product", fiber.Map{
		"P": p, "Price": price, "Sizes": domain.SizeLabels, "Err": msg,
	})
}

// priceField renders paise as the rupee amount the form accepts back.
func priceField(p int64) string {
	return fmt.Sprintf("%d.%02d", p/100, p%100)
}

func productInput(c *fiber.Ctx) (services.ProductInput, bool) {
	in := services.ProductInput{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Category:    c.FormValue("category"),
		Published:   c.FormValue("published") == "true",
	}
	price, ok := validate.Price(c.FormValue("price"))
	in.Price = price
	return in, ok
}

// GET /admin/products/new
func (h *AdminHandler) NewProduct(c *fiber.Ctx) error {
	return productForm(c, fiber.StatusOK, domain.Product{}, "", "")
}

// POST /admin/products
func (h *AdminHandler) CreateProduct(c *fiber.Ctx) error {
	in, ok := productInput(c)
	draft := domain.Product{Name: in.Name, Description: in.Description, Category: in.Category}
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "price"})
		return productForm(c, fiber.StatusBadRequest, draft, c.FormValue("price"), "Enter a price such as 1499 or 1499.50.")
	}
	p, err := h.Catalog.CreateProduct(c.UserContext(), in)
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		applog.Security(c, "validation.fail", map[string]any{"field": "product", "reason": err.Error()})
		return productForm(c, fiber.StatusBadRequest, draft, c.FormValue("price"), "Check the product fields: "+err.Error())
	case errors.Is(err, services.ErrExists):
		return productForm(c, fiber.StatusConflict, draft, c.FormValue("price"), "A product with this name already exists.")
	case err != nil:
		applog.Error(c, "admin.products.create.fail", err, nil)
		return failPage(c, fiber.StatusInternalServerError, "Could not create product")
	}
	applog.Audit(c, "admin.products.create", map[string]any{"product": p.ID, "published": p.Published})
	return c.Redirect("/admin/products/" + p.ID)
}

// GET /admin/products/:id
func (h *AdminHandler) EditProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Product not found")
	}
	p, err := h.Catalog.AdminProduct(c.UserContext(), id)
	if services.IsNotFound(err) {
		return notFound(c, "Product not found")
	}
	if err != nil {
		applog.Error(c, "admin.products.get.fail", err, map[string]any{"product": id})
		return failPage(c, fiber.StatusInternalServerError, "Could not load product")
	}
	return productForm(c, fiber.StatusOK, p, priceField(p.Price), "")
}

// POST /admin/products/:id
func (h *AdminHandler) UpdateProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Product not found")
	}
	in, okPrice := productInput(c)
	draft := domain.Product{ID: id, Name: in.Name, Description: in.Description, Category: in.Category}
	if !okPrice {
		applog.Security(c, "validation.fail", map[string]any{"field": "price"})
		return productForm(c, fiber.StatusBadRequest, draft, c.FormValue("price"), "Enter a price such as 1499 or 1499.50.")
	}
	p, err := h.Catalog.UpdateProduct(c.UserContext(), id, in)
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		applog.Security(c, "validation.fail", map[string]any{"field": "product", "reason": err.Error()})
		return productForm(c, fiber.StatusBadRequest, draft, c.FormValue("price"), "Check the product fields: "+err.Error())
	case services.IsNotFound(err):
		return notFound(c, "Product not found")
	case err != nil:
		applog.Error(c, "admin.products.update.fail", err, map[string]any{"product": id})
		return failPage(c, fiber.StatusInternalServerError, "Could not save product")
	}
	applog.Audit(c, "admin.products.update", map[string]any{"product": id, "price": p.Price})
	return c.Redirect("/admin/products/" + id)
}

// POST /admin/products/:id/variants with color, hex, size (repeated) and qty_<size>
func (h *AdminHandler) AddVariant(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Product not found")
	}
	in := services.VariantInput{Color: c.FormValue("color"), Hex: c.FormValue("hex")}
	for _, raw := range c.Request().PostArgs().PeekMulti("size") {
		label := string(raw)
		qty, ok := validate.NonNegative(c.FormValue("qty_" + label))
		if !ok {
			applog.Security(c, "validation.fail", map[string]any{"field": "qty", "size": label})
			return c.Status(fiber.StatusBadRequest).SendString("quantities must be whole numbers")
		}
		in.Sizes = append(in.Sizes, services.SizeInput{Label: label, Qty: qty})
	}

	v, err := h.Catalog.AddVariant(c.UserContext(), id, in)
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		applog.Security(c, "validation.fail", map[string]any{"field": "variant", "reason": err.Error()})
		return c.Status(fiber.StatusBadRequest).SendString(err.Error())
	case errors.Is(err, services.ErrExists):
		return c.Status(fiber.StatusConflict).SendString("this product already has that color")
	case services.IsNotFound(err):
		return notFound(c, "Product not found")
	case err != nil:
		applog.Error(c, "admin.products.variant.fail", err, map[string]any{"product": id})
		return failPage(c, fiber.StatusInternalServerError, "Could not add color")
	}
	applog.Audit(c, "admin.products.variant", map[string]any{"product": id, "variant": v.ID, "sizes": len(v.Sizes)})
	return c.Redirect("/admin/products/" + id)
}

// POST /admin/products/:id/delete
func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "Product not found")
	}
	_, err := h.Catalog.DeleteProduct(c.UserContext(), id)
	if services.IsNotFound(err) {
		return notFound(c, "Product not found")
	}
	if err != nil {
		applog.Error(c, "admin.products.delete.fail", err, map[string]any{"product": id})
		return failPage(c, fiber.StatusInternalServerError, "Could not delete product")
	}
	applog.Audit(c, "admin.products.delete", map[string]any{"product": id})
	return c.Redirect("/admin/products")
}

// GET /admin/users/:id
func (h *AdminHandler) UserDetail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return notFound(c, "User not found")
	}
	d, err := h.Users.Detail(c.UserContext(), id)
	if services.IsNotFound(err) {
		return notFound(c, "User not found")
	}
	if err != nil {
		applog.Error(c, "admin.users.get.fail", err, map[string]any{"user_id": id})
		return failPage(c, fiber.StatusInternalServerError, "Could not load user")
	}
	applog.Audit(c, "admin.users.view", map[string]any{"user_id": id})
	return render(c, "admin_user", fiber.Map{"Detail": d})
}
