package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadline/internal/domain"
	"threadline/internal/services"
)

func TestUserService_Address(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a, err := e.userSvc.Address(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Address{}, a)

	bad := testAddr
	bad.City = "  "
	_, err = e.userSvc.SaveAddress(ctx, bob.ID, bad)
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	bad = testAddr
	bad.PostalCode = "4110<>"
	_, err = e.userSvc.SaveAddress(ctx, bob.ID, bad)
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	in := testAddr
	in.Street = "  1 MG Road  "
	saved, err := e.userSvc.SaveAddress(ctx, bob.ID, in)
	require.NoError(t, err)
	assert.Equal(t, testAddr, saved)

	a, err = e.userSvc.Address(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, testAddr, a)
}

func TestUserService_DeleteRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.userSvc.Delete(ctx, admin, owner.ID)
	assert.ErrorIs(t, err, services.ErrOwnerProtected)
	_, err = e.userSvc.Delete(ctx, admin, admin.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = e.userSvc.Delete(ctx, alice, bob.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = e.userSvc.Delete(ctx, admin, "u-nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserService_DeleteCancelsOrders(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	open := e.place(t, "cs_1", alice.ID, 1)
	done := e.place(t, "cs_2", alice.ID, 1)
	require.NoError(t, e.orders.UpdateStatus(ctx, done.ID, domain.StatusDelivered))
	require.NoError(t, e.addresses.Save(ctx, alice.ID, testAddr))

	deleted, err := e.userSvc.Delete(ctx, owner, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, deleted.ID)

	_, err = e.users.ByID(ctx, alice.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = e.addresses.Get(ctx, alice.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := e.orders.Get(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, got.OrderStatus)
	got, err = e.orders.Get(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, got.OrderStatus)
}

func TestUserService_Detail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.userSvc.SaveAddress(ctx, alice.ID, testAddr)
	require.NoError(t, err)
	e.place(t, "cs_detail_1", alice.ID, 1)
	e.place(t, "cs_detail_2", bob.ID, 1)

	d, err := e.userSvc.Detail(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@threadline.test", d.User.Email)
	assert.Equal(t, "Pune", d.Address.City)
	require.Len(t, d.Orders, 1)
	assert.Equal(t, alice.ID, d.Orders[0].UserID)

	d, err = e.userSvc.Detail(ctx, admin.ID)
	require.NoError(t, err)
	assert.Empty(t, d.Orders)
	assert.Equal(t, domain.Address{}, d.Address)

	_, err = e.userSvc.Detail(ctx, "u-ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
