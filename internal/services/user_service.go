package services

import (
	"context"

	"threadline/internal/domain"
	"threadline/internal/repos"
	"threadline/internal/validate"
)

type UserService struct {
	Users     *repos.UserRepo
	Addresses *repos.AddressRepo
	Orders    Orders
}

func NewUserService(users *repos.UserRepo, addrs *repos.AddressRepo, orders Orders) *UserService {
	return &UserService{Users: users, Addresses: addrs, Orders: orders}
}

// Address returns the saved address, or a zero Address if there is none yet.
func (s *UserService) Address(ctx context.Context, userID string) (domain.Address, error) {
	a, err := s.Addresses.Get(ctx, userID)
	if IsNotFound(err) {
		return domain.Address{}, nil
	}
	return a, err
}

// SaveAddress validates and stores a shipping address. Every field is required.
func (s *UserService) SaveAddress(ctx context.Context, userID string, a domain.Address) (domain.Address, error) {
	var ok [5]bool
	a.Street, ok[0] = validate.Text(a.Street, 120)
	a.City, ok[1] = validate.Text(a.City, 60)
	a.State, ok[2] = validate.Text(a.State, 60)
	a.Country, ok[3] = validate.Text(a.Country, 60)
	a.PostalCode, ok[4] = validate.PostalCode(a.PostalCode)
	for _, v := range ok {
		if !v {
			return a, ErrInvalidInput
		}
	}
	return a, s.Addresses.Save(ctx, userID, a)
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.Users.List(ctx)
}

// Delete removes a user account. Owners cannot be deleted and nobody can delete themselves.
// The user's undelivered orders are canceled and kept.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	target, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if target.IsOwner() {
		return target, ErrOwnerProtected
	}
	if actor == nil || !actor.IsAdmin() || actor.ID == target.ID {
		return target, ErrForbidden
	}
	if err := s.Orders.CancelUserOrders(ctx, target.ID); err != nil {
		return target, err
	}
	return target, s.Users.DeleteUserCascade(ctx, target.ID)
}

// UserDetail is the admin view of one account.
type UserDetail struct {
	User    *domain.User
	Address domain.Address
	Orders  []domain.Order
}

func (s *UserService) Detail(ctx context.Context, userID string) (UserDetail, error) {
	u, err := s.Users.ByID(ctx, userID)
	if err != nil {
		return UserDetail{}, err
	}
	d := UserDetail{User: u}
	if d.Address, err = s.Address(ctx, userID); err != nil {
		return d, err
	}
	if d.Orders, err = s.Orders.ListByUser(ctx, userID); err != nil {
		return d, err
	}
	return d, nil
}
