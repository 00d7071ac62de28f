package services

import (
	"context"
	"fmt"

	"threadline/internal/cart"
	"threadline/internal/domain"
	"threadline/internal/payment"
	"threadline/internal/repos"
)

type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (string, error)
}

// CheckoutService turns a verified cart into a hosted payment session. Stock is not touched
// here; the order is created when the payment webhook arrives.
type CheckoutService struct {
	Carts     *CartService
	Addresses *repos.AddressRepo
	Gateway   CheckoutGateway
}

func NewCheckoutService(carts *CartService, addrs *repos.AddressRepo, gw CheckoutGateway) *CheckoutService {
	return &CheckoutService{Carts: carts, Addresses: addrs, Gateway: gw}
}

// Start verifies the cart seal, reconciles stock, reprices every line from the catalog and
// returns the gateway's checkout URL.
func (s *CheckoutService) Start(ctx context.Context, l *cart.Ledger, u *domain.User) (string, error) {
	if err := l.Ensure(); err != nil {
		return "", err
	}
	if l.Len() == 0 {
		return "", ErrCartEmpty
	}
	addr, err := s.Addresses.Get(ctx, u.ID)
	if IsNotFound(err) {
		return "", ErrNoAddress
	}
	if err != nil {
		return "", err
	}

	rec, err := s.Carts.reconcile(ctx, l)
	if err != nil {
		return "", err
	}
	if rec.Changed() {
		return "", ErrCartChanged
	}

	req := payment.CheckoutRequest{
		UserID:      u.ID,
		Email:       u.Email,
		Address:     addr,
		ShippingFee: s.Carts.ShippingFee,
	}
	for _, it := range l.Items() {
		sl, err := s.Carts.Catalog.FindSize(ctx, it.LineID)
		if err != nil {
			return "", fmt.Errorf("reprice %s: %w", it.LineID, err)
		}
		req.Lines = append(req.Lines, payment.OrderLine{
			ProductID: sl.ProductID,
			Name:      sl.ProductName,
			Size:      sl.Size,
			Color:     sl.Color,
			Quantity:  it.Quantity,
			Price:     sl.Price,
		})
	}
	return s.Gateway.CreateCheckoutSession(ctx, req)
}
