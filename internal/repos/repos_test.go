package repos

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadline/internal/domain"
	"threadline/internal/fulfillment"
	"threadline/internal/outbox"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenDB_MigratesAndSeeds(t *testing.T) {
	db := testDB(t)

	var products, users int
	require.NoError(t, db.Get(&products, `SELECT COUNT(*) FROM products`))
	require.NoError(t, db.Get(&users, `SELECT COUNT(*) FROM users`))
	assert.Equal(t, len(demoCatalog), products)
	assert.Equal(t, 4, users)

	// Seeding again is a no-op.
	require.NoError(t, seedCatalog(db))
	require.NoError(t, seedUsers(db))
	require.NoError(t, db.Get(&products, `SELECT COUNT(*) FROM products`))
	assert.Equal(t, len(demoCatalog), products)
}

func TestCatalog_GetLoadsVariantsAndSizes(t *testing.T) {
	repo := NewCatalogRepo(testDB(t))
	ctx := context.Background()

	p, err := repo.Get(ctx, "tee-classic")
	require.NoError(t, err)
	require.Len(t, p.Variants, 2)
	assert.Equal(t, "Black", p.Variants[0].ColorName)
	assert.Equal(t, []string{"S", "M", "L", "XL"}, labels(p.Variants[0].Sizes))
	assert.NotEmpty(t, p.Variants[0].Images)
	assert.Equal(t, 10+12+8+4+6+9+7, p.TotalStock())

	_, err = repo.Get(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalog_ListingsSkipUnpublished(t *testing.T) {
	repo := NewCatalogRepo(testDB(t))
	ctx := context.Background()

	page, total, err := repo.ListPublished(ctx, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, len(demoCatalog)-1, total)
	for _, p := range page {
		assert.True(t, p.Published)
		assert.NotEqual(t, "jacket-denim", p.ID)
	}

	require.NoError(t, repo.SetPublished(ctx, "jacket-denim", true))
	_, total, err = repo.ListPublished(ctx, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, len(demoCatalog), total)

	tees, err := repo.ByCategory(ctx, "T-Shirts")
	require.NoError(t, err)
	assert.Len(t, tees, 2)

	p, _ := repo.Get(ctx, "tee-classic")
	related, err := repo.Related(ctx, p, 4)
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "tee-graphic", related[0].ID)

	assert.ErrorIs(t, repo.SetPublished(ctx, "missing", true), domain.ErrNotFound)

	found, err := repo.Search(ctx, "LINEN", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "shirt-linen", found[0].ID)
}

func TestCatalog_LocateStockAndSetQty(t *testing.T) {
	repo := NewCatalogRepo(testDB(t))
	ctx := context.Background()

	sl, err := repo.Locate(ctx, "shirt-linen", "Red", "M")
	require.NoError(t, err)
	assert.Equal(t, SizeID("shirt-linen", "Red", "M"), sl.SizeID)
	assert.Equal(t, 5, sl.AvailableQty)
	assert.Equal(t, int64(149900), sl.Price)
	assert.Equal(t, "Linen Shirt", sl.ProductName)

	_, err = repo.Locate(ctx, "shirt-linen", "Green", "M")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.SetSizeQty(ctx, sl.SizeID, 2))
	stock, err := repo.Stock(ctx, []string{sl.SizeID, "ghost", SizeID("jacket-denim", "Indigo", "M")})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{sl.SizeID: 2}, stock, "unknown and unpublished sizes are absent")

	assert.Error(t, repo.SetSizeQty(ctx, sl.SizeID, -1))
	assert.ErrorIs(t, repo.SetSizeQty(ctx, "ghost", 1), domain.ErrNotFound)
}

func placeOrder(t *testing.T, store *FulfillmentStore, key, userID string, sizeID string, qty int) domain.Order {
	t.Helper()
	o := domain.Order{
		ID: "o-" + key, UserID: userID, UserEmail: "a@b.com", Total: 1000,
		PaymentStatus: domain.PaymentPaid, OrderStatus: domain.StatusOrderPlaced,
		Address:   domain.Address{Street: "s", City: "c", State: "st", Country: "IN", PostalCode: "1"},
		SessionID: key, CreatedAt: time.Now().UTC(),
		Details: []domain.OrderDetail{{ProductID: "shirt-linen", ProductTitle: "Linen Shirt", ProductPrice: 149900, ProductQty: qty, ProductColor: "Red", ProductSize: "M"}},
	}
	err := store.WithTx(context.Background(), func(ctx context.Context, tx fulfillment.Tx) error {
		if err := tx.ClaimEvent(context.Background(), key, o.ID); err != nil {
			return err
		}
		if err := tx.DecrementSize(context.Background(), sizeID, qty); err != nil {
			return err
		}
		return tx.InsertOrder(context.Background(), &o)
	})
	require.NoError(t, err)
	return o
}

func TestFulfillmentStore_TxCommitsAndRollsBack(t *testing.T) {
	db := testDB(t)
	store := NewFulfillmentStore(db)
	catalog := NewCatalogRepo(db)
	ctx := context.Background()
	sizeID := SizeID("shirt-linen", "Red", "M")

	placed := placeOrder(t, store, "cs_1", "u-alice", sizeID, 2)

	got, err := store.OrderByEvent(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, placed.ID, got.ID)
	require.Len(t, got.Details, 1)
	assert.Equal(t, 2, got.Details[0].ProductQty)

	sl, _ := catalog.FindSize(ctx, sizeID)
	assert.Equal(t, 3, sl.AvailableQty)

	// A second claim of the same key is a duplicate and the decrement is rolled back with it.
	err = store.WithTx(ctx, func(ctx context.Context, tx fulfillment.Tx) error {
		require.NoError(t, tx.DecrementSize(ctx, sizeID, 1))
		return tx.ClaimEvent(ctx, "cs_1", "o-other")
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	sl, _ = catalog.FindSize(ctx, sizeID)
	assert.Equal(t, 3, sl.AvailableQty)

	// Conditional decrement refuses to go negative.
	err = store.WithTx(ctx, func(ctx context.Context, tx fulfillment.Tx) error { return tx.DecrementSize(ctx, sizeID, 4) })
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestOrderRepo_ListsAndUpdates(t *testing.T) {
	db := testDB(t)
	store := NewFulfillmentStore(db)
	orders := NewOrderRepo(db)
	ctx := context.Background()
	sizeID := SizeID("shirt-linen", "Red", "M")

	placeOrder(t, store, "cs_1", "u-alice", sizeID, 1)
	time.Sleep(5 * time.Millisecond)
	second := placeOrder(t, store, "cs_2", "u-alice", sizeID, 1)
	placeOrder(t, store, "cs_3", "u-bob", sizeID, 1)

	mine, err := orders.ListByUser(ctx, "u-alice")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Len(t, mine[0].Details, 1)

	latest, err := orders.LatestByUser(ctx, "u-alice")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	all, err := orders.ListLatest(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, orders.UpdateStatus(ctx, second.ID, domain.StatusDelivered))
	require.NoError(t, orders.UpdatePaymentStatus(ctx, second.ID, domain.PaymentUnpaid))
	got, err := orders.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, got.OrderStatus)
	assert.Equal(t, domain.PaymentUnpaid, got.PaymentStatus)
	assert.Equal(t, "IN", got.Address.Country)

	assert.ErrorIs(t, orders.UpdateStatus(ctx, "missing", domain.StatusDelivered), domain.ErrNotFound)
	_, err = orders.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOutboxRepo_PendingAndMarkSent(t *testing.T) {
	db := testDB(t)
	repo := NewOutboxRepo(db)
	ctx := context.Background()

	m, err := outbox.New(outbox.TopicOrderPlaced, "o1", map[string]string{"order_id": "o1"})
	require.NoError(t, err)
	require.NoError(t, insertOutbox(ctx, db, m))

	pending, err := repo.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, m.ID, pending[0].ID)
	assert.JSONEq(t, `{"order_id":"o1"}`, string(pending[0].Payload))

	require.NoError(t, repo.MarkSent(ctx, m.ID))
	pending, err = repo.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestUserRepo_SessionsAndDeleteCascade(t *testing.T) {
	db := testDB(t)
	users := NewUserRepo(db)
	addrs := NewAddressRepo(db)
	ctx := context.Background()

	u, err := users.ByEmail(ctx, "ALICE@threadline.test")
	require.NoError(t, err)
	require.NoError(t, users.BindSession(ctx, "sid-1", u.ID))
	su, err := users.SessionUser(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, su.ID)

	require.NoError(t, addrs.Save(ctx, u.ID, domain.Address{Street: "1", City: "Pune", State: "MH", Country: "IN", PostalCode: "411001"}))
	a, err := addrs.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pune", a.City)

	placeOrder(t, NewFulfillmentStore(db), "cs_9", u.ID, SizeID("shirt-linen", "Red", "M"), 1)

	require.NoError(t, NewOrderRepo(db).CancelUserOrders(ctx, u.ID))
	require.NoError(t, users.DeleteUserCascade(ctx, u.ID))
	_, err = users.ByID(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = users.SessionUser(ctx, "sid-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = addrs.Get(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	o, err := NewOrderRepo(db).BySession(ctx, "cs_9")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, o.OrderStatus, "orders are kept for audit and canceled")

	assert.ErrorIs(t, users.DeleteUserCascade(ctx, u.ID), domain.ErrNotFound)
}

func labels(sizes []domain.Size) []string {
	out := make([]string, len(sizes))
	for i, s := range sizes {
		out[i] = s.Label
	}
	return out
}
