package handlers

import (
	"context"

	"github.com/jmoiron/sqlx"

	"threadline/internal/cart"
	"threadline/internal/config"
	"threadline/internal/fulfillment"
	"threadline/internal/idempotency"
	"threadline/internal/payment"
	"threadline/internal/repos"
	"threadline/internal/services"
)

// Gateway is the payment side the handlers need: opening sessions and reading webhooks.
type Gateway interface {
	services.CheckoutGateway
	ParseWebhook(payload []byte, sigHeader string) (payment.CompletedEvent, bool, error)
}

type Fulfiller interface {
	Process(ctx context.Context, ev payment.CompletedEvent) (fulfillment.Result, error)
}

// Backend selects the stores behind catalog, orders and fulfillment. Nil fields fall back to
// the sqlite implementations on the shared db.
type Backend struct {
	Catalog   services.Catalog
	Orders    services.Orders
	Fulfiller Fulfiller
	Gateway   Gateway
}

type Deps struct {
	Auth *services.AuthService

	AuthHandler      *AuthHandler
	ProductHandler   *ProductHandler
	CategoryHandler  *CategoryHandler
	SearchHandler    *SearchHandler
	InventoryHandler *InventoryHandler
	CartHandler      *CartHandler
	CheckoutHandler  *CheckoutHandler
	WebhookHandler   *WebhookHandler
	OrderHandler     *OrderHandler
	ReviewHandler    *ReviewHandler
	ProfileHandler   *ProfileHandler
	AdminHandler     *AdminHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, b Backend) *Deps {
	if b.Catalog == nil {
		b.Catalog = repos.NewCatalogRepo(db)
	}
	if b.Orders == nil {
		b.Orders = repos.NewOrderRepo(db)
	}
	if b.Fulfiller == nil {
		b.Fulfiller = fulfillment.NewSequencer(repos.NewFulfillmentStore(db), idempotency.NewMemoryGuard(), cfg.ShippingFee)
	}
	if b.Gateway == nil {
		b.Gateway = payment.NewGateway(payment.Config{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			SuccessURL:    cfg.AppURL + "/success",
			CancelURL:     cfg.AppURL + "/cart",
		})
	}

	userRepo := repos.NewUserRepo(db)
	addrRepo := repos.NewAddressRepo(db)
	reviewRepo := repos.NewReviewRepo(db)
	sealer := cart.NewSealer([]byte(cfg.CartSealKey))

	authSvc := &services.AuthService{Users: userRepo}
	catalogSvc := services.NewCatalogService(b.Catalog, reviewRepo)
	invSvc := services.NewInventoryService(b.Catalog)
	cartSvc := services.NewCartService(b.Catalog, cfg.CartMaxPerLine, cfg.ShippingFee)
	checkoutSvc := services.NewCheckoutService(cartSvc, addrRepo, b.Gateway)
	orderSvc := services.NewOrderService(b.Orders)
	reviewSvc := services.NewReviewService(reviewRepo, b.Catalog)
	userSvc := services.NewUserService(userRepo, addrRepo, b.Orders)

	return &Deps{
		Auth:             authSvc,
		AuthHandler:      &AuthHandler{Auth: authSvc},
		ProductHandler:   &ProductHandler{Catalog: catalogSvc},
		CategoryHandler:  &CategoryHandler{Catalog: catalogSvc},
		SearchHandler:    &SearchHandler{Catalog: catalogSvc},
		InventoryHandler: &InventoryHandler{Inv: invSvc},
		CartHandler:      &CartHandler{Carts: cartSvc, Sealer: sealer},
		CheckoutHandler:  &CheckoutHandler{Checkout: checkoutSvc, Carts: cartSvc, Sealer: sealer},
		WebhookHandler:   &WebhookHandler{Gateway: b.Gateway, Fulfiller: b.Fulfiller},
		OrderHandler:     &OrderHandler{Orders: orderSvc, Sealer: sealer},
		ReviewHandler:    &ReviewHandler{Reviews: reviewSvc},
		ProfileHandler:   &ProfileHandler{Users: userSvc},
		AdminHandler:     &AdminHandler{Orders: orderSvc, Inv: invSvc, Catalog: catalogSvc, Users: userSvc},
	}
}
