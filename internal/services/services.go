package services

import (
	"context"
	"errors"

	"threadline/internal/domain"
)

var (
	ErrBadCreds       = errors.New("invalid email or password")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidStatus  = errors.New("unknown status")
	ErrInvalidInput   = errors.New("invalid input")
	ErrCartEmpty      = errors.New("cart is empty")
	ErrCartChanged    = errors.New("cart changed: some items are no longer available in the requested quantity")
	ErrNoAddress      = errors.New("shipping address required")
	ErrOwnerProtected = errors.New("owner accounts cannot be deleted")
	ErrExists         = errors.New("already exists")
)

// Catalog is implemented by repos.CatalogRepo and mongostore.Store.
type Catalog interface {
	ListPublished(ctx context.Context, limit, offset int) ([]domain.Product, int, error)
	ListAll(ctx context.Context) ([]domain.Product, error)
	ByCategory(ctx context.Context, category string) ([]domain.Product, error)
	Related(ctx context.Context, p domain.Product, n int) ([]domain.Product, error)
	Search(ctx context.Context, q string, limit int) ([]domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	FindSize(ctx context.Context, sizeID string) (domain.StockLine, error)
	Stock(ctx context.Context, sizeIDs []string) (map[string]int, error)
	SetPublished(ctx context.Context, productID string, published bool) error
	SetSizeQty(ctx context.Context, sizeID string, qty int) error
	CreateProduct(ctx context.Context, p domain.Product) error
	UpdateProduct(ctx context.Context, p domain.Product) error
	AddVariant(ctx context.Context, productID string, v domain.Variant) error
	DeleteProduct(ctx context.Context, id string) error
}

// Orders is implemented by repos.OrderRepo and mongostore.Orders.
type Orders interface {
	Get(ctx context.Context, id string) (domain.Order, error)
	BySession(ctx context.Context, sessionID string) (domain.Order, error)
	ListLatest(ctx context.Context, limit int) ([]domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	LatestByUser(ctx context.Context, userID string) (domain.Order, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdatePaymentStatus(ctx context.Context, id, status string) error
	CancelUserOrders(ctx context.Context, userID string) error
}
