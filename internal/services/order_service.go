package services

import (
	"context"
	"fmt"

	"threadline/internal/domain"
)

type OrderService struct {
	Orders Orders
}

func NewOrderService(orders Orders) *OrderService {
	return &OrderService{Orders: orders}
}

// Get returns an order visible to u: its owner or an admin.
func (s *OrderService) Get(ctx context.Context, id string, u *domain.User) (domain.Order, error) {
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if u == nil || (o.UserID != u.ID && !u.IsAdmin()) {
		return domain.Order{}, ErrForbidden
	}
	return o, nil
}

func (s *OrderService) History(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.Orders.ListByUser(ctx, userID)
}

// Latest returns the user's most recent order, shown on the post-payment page.
func (s *OrderService) Latest(ctx context.Context, userID string) (domain.Order, error) {
	return s.Orders.LatestByUser(ctx, userID)
}

func (s *OrderService) ListLatest(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.Orders.ListLatest(ctx, limit)
}

// SetStatus moves an order to any known status; transitions are not constrained.
func (s *OrderService) SetStatus(ctx context.Context, id, status string) error {
	if !domain.ValidOrderStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.Orders.UpdateStatus(ctx, id, status)
}

func (s *OrderService) SetPaymentStatus(ctx context.Context, id, status string) error {
	if !domain.ValidPaymentStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.Orders.UpdatePaymentStatus(ctx, id, status)
}
