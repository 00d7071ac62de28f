package services

import (
	"context"
	"errors"

	"threadline/internal/cart"
	"threadline/internal/domain"
	"threadline/internal/metrics"
)

type CartService struct {
	Catalog     Catalog
	MaxPerLine  int
	ShippingFee int64
}

func NewCartService(c Catalog, maxPerLine int, shippingFee int64) *CartService {
	return &CartService{Catalog: c, MaxPerLine: maxPerLine, ShippingFee: shippingFee}
}

// Add puts qty units of a size into the cart, snapshotting price and availability from the
// catalog. Unpublished products cannot be added.
func (s *CartService) Add(ctx context.Context, l *cart.Ledger, sizeID string, qty int) error {
	sl, err := s.Catalog.FindSize(ctx, sizeID)
	if err != nil {
		return err
	}
	if !sl.Published {
		return domain.ErrNotFound
	}
	maxQty := sl.AvailableQty
	if s.MaxPerLine > 0 && s.MaxPerLine < maxQty {
		maxQty = s.MaxPerLine
	}
	err = l.Add(cart.Item{
		LineID:       sl.SizeID,
		ProductID:    sl.ProductID,
		Name:         sl.ProductName,
		Quantity:     qty,
		UnitPrice:    sl.Price,
		Color:        sl.Color,
		Size:         sl.Size,
		AvailableQty: sl.AvailableQty,
		Image:        sl.Image,
		MaxQuantity:  maxQty,
	})
	switch {
	case errors.Is(err, cart.ErrQuantityExceeded):
		metrics.CartRejections.WithLabelValues("quantity").Inc()
	case errors.Is(err, cart.ErrCartFull):
		metrics.CartRejections.WithLabelValues("full").Inc()
	case errors.Is(err, cart.ErrInvalidQuantity):
		metrics.CartRejections.WithLabelValues("invalid").Inc()
	}
	return err
}

type CartView struct {
	Items    []cart.Item
	Subtotal int64
	Shipping int64
	Total    int64
	// Adjusted lists lines dropped or capped because stock moved since they were added.
	Adjusted []string
	Tampered bool
}

// View refreshes the cart against current stock and prices the result.
func (s *CartService) View(ctx context.Context, l *cart.Ledger) (CartView, error) {
	rec, err := s.reconcile(ctx, l)
	if err != nil {
		return CartView{}, err
	}
	v := CartView{
		Items:    l.Items(),
		Subtotal: l.Subtotal(),
		Adjusted: append(rec.Dropped, rec.Capped...),
		Tampered: l.Tampered(),
	}
	if len(v.Items) > 0 {
		v.Shipping = s.ShippingFee
	}
	v.Total = v.Subtotal + v.Shipping
	return v, nil
}

func (s *CartService) reconcile(ctx context.Context, l *cart.Ledger) (cart.Reconciliation, error) {
	items := l.Items()
	if len(items) == 0 {
		return cart.Reconciliation{}, nil
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.LineID
	}
	fresh, err := s.Catalog.Stock(ctx, ids)
	if err != nil {
		return cart.Reconciliation{}, err
	}
	return l.Reconcile(fresh), nil
}
