package handlers

import (
	"github.com/gofiber/fiber/v2"

	"threadline/internal/metrics"
)

// Mount registers every application route. Global middleware (request ids, csrf, limiters,
// user attachment) is installed by the caller before Mount.
func Mount(app *fiber.App, d *Deps) {
	requireUser := RequireUser(d.Auth)

	app.Get("/", d.ProductHandler.List)
	app.Get("/products", d.ProductHandler.List)
	app.Get("/products/:id", d.ProductHandler.Detail)
	app.Post("/products/:id/reviews", requireUser, d.ReviewHandler.Create)
	app.Get("/reviews/:id/edit", requireUser, d.ReviewHandler.EditForm)
	app.Post("/reviews/:id/edit", requireUser, d.ReviewHandler.Update)
	app.Post("/reviews/:id/delete", requireUser, d.ReviewHandler.Delete)
	app.Get("/category/:name", d.CategoryHandler.List)
	app.Get("/search", d.SearchHandler.Search)

	api := app.Group("/api/v1")
	api.Get("/availability", d.InventoryHandler.Check)

	app.Get("/cart", d.CartHandler.View)
	app.Post("/cart", d.CartHandler.Add)
	app.Post("/cart/decrement", d.CartHandler.Decrement)
	app.Post("/cart/remove", d.CartHandler.Remove)
	app.Post("/cart/clear", d.CartHandler.Clear)
	app.Post("/checkout", requireUser, d.CheckoutHandler.Start)
	app.Post(WebhookPath, d.WebhookHandler.Receive)

	app.Get("/success", requireUser, d.OrderHandler.Success)
	app.Get("/orders", requireUser, d.OrderHandler.History)
	app.Get("/orders/:id", requireUser, d.OrderHandler.View)

	app.Get("/profile/address", requireUser, d.ProfileHandler.AddressForm)
	app.Post("/profile/address", requireUser, d.ProfileHandler.SaveAddress)

	app.Get("/login", d.AuthHandler.LoginForm)
	app.Post("/login", d.AuthHandler.Login)
	app.Post("/logout", d.AuthHandler.Logout)

	admin := app.Group("/admin", RequireAdmin(d.Auth))
	admin.Get("/", d.AdminHandler.Dashboard)
	admin.Get("/orders", d.AdminHandler.OrdersPage)
	admin.Post("/orders/:id/status", d.AdminHandler.UpdateOrderStatus)
	admin.Post("/orders/:id/payment", d.AdminHandler.UpdatePaymentStatus)
	admin.Get("/inventory", d.AdminHandler.Inventory)
	admin.Post("/inventory", d.AdminHandler.UpdateInventory)
	admin.Get("/products", d.AdminHandler.Products)
	admin.Get("/products/new", d.AdminHandler.NewProduct)
	admin.Post("/products", d.AdminHandler.CreateProduct)
	admin.Get("/products/:id", d.AdminHandler.EditProduct)
	admin.Post("/products/:id", d.AdminHandler.UpdateProduct)
	admin.Post("/products/:id/variants", d.AdminHandler.AddVariant)
	admin.Post("/products/:id/publish", d.AdminHandler.SetPublished)
	admin.Post("/products/:id/delete", d.AdminHandler.DeleteProduct)
	admin.Get("/users", d.AdminHandler.UsersPage)
	admin.Get("/users/:id", d.AdminHandler.UserDetail)
	admin.Post("/users/:id/delete", d.AdminHandler.DeleteUser)

	app.Get("/metrics", metrics.Handler())
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
}

// NotFound is the catch-all registered after Mount.
func NotFound(c *fiber.Ctx) error {
	return notFound(c, "Page not found")
}
