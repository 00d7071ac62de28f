package services_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"threadline/internal/cart"
	"threadline/internal/domain"
	"threadline/internal/fulfillment"
	"threadline/internal/idempotency"
	"threadline/internal/payment"
	"threadline/internal/repos"
	"threadline/internal/services"
)

const fee = 9900

var (
	redM     = repos.SizeID("shirt-linen", "Red", "M")
	redL     = repos.SizeID("shirt-linen", "Red", "L")
	jacketM  = repos.SizeID("jacket-denim", "Indigo", "M")
	testAddr = domain.Address{Street: "1 MG Road", City: "Pune", State: "MH", Country: "IN", PostalCode: "411001"}
	testSeal = cart.NewSealer([]byte("test-key"))
	alice    = &domain.User{ID: "u-alice", Email: "alice@threadline.test", Name: "Alice", Role: domain.RoleUser}
	bob      = &domain.User{ID: "u-bob", Email: "bob@threadline.test", Name: "Bob", Role: domain.RoleUser}
	admin    = &domain.User{ID: "u-admin", Email: "admin@threadline.test", Name: "Admin", Role: domain.RoleAdmin}
	owner    = &domain.User{ID: "u-owner", Email: "owner@threadline.test", Name: "Owner", Role: domain.RoleOwner}
)

type fakeGateway struct {
	got   payment.CheckoutRequest
	calls int
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (string, error) {
	g.calls++
	g.got = req
	return "https://checkout.example/cs_1", nil
}

type env struct {
	db        *sqlx.DB
	catalog   *repos.CatalogRepo
	orders    *repos.OrderRepo
	users     *repos.UserRepo
	addresses *repos.AddressRepo
	reviews   *repos.ReviewRepo
	seq       *fulfillment.Sequencer
	gateway   *fakeGateway

	carts     *services.CartService
	checkout  *services.CheckoutService
	orderSvc  *services.OrderService
	userSvc   *services.UserService
	reviewSvc *services.ReviewService
	inventory *services.InventoryService
	catalogSv *services.CatalogService
	auth      *services.AuthService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := &env{
		db:        db,
		catalog:   repos.NewCatalogRepo(db),
		orders:    repos.NewOrderRepo(db),
		users:     repos.NewUserRepo(db),
		addresses: repos.NewAddressRepo(db),
		reviews:   repos.NewReviewRepo(db),
		gateway:   &fakeGateway{},
	}
	e.seq = fulfillment.NewSequencer(repos.NewFulfillmentStore(db), idempotency.NewMemoryGuard(), fee)
	e.carts = services.NewCartService(e.catalog, 10, fee)
	e.checkout = services.NewCheckoutService(e.carts, e.addresses, e.gateway)
	e.orderSvc = services.NewOrderService(e.orders)
	e.userSvc = services.NewUserService(e.users, e.addresses, e.orders)
	e.reviewSvc = services.NewReviewService(e.reviews, e.catalog)
	e.inventory = services.NewInventoryService(e.catalog)
	e.catalogSv = services.NewCatalogService(e.catalog, e.reviews)
	e.auth = &services.AuthService{Users: e.users}
	return e
}

func (e *env) ledger() (*cart.Ledger, cart.MemoryStore) {
	store := cart.MemoryStore{}
	return cart.Open(store, testSeal), store
}

// place runs a paid checkout for userID through the sequencer.
func (e *env) place(t *testing.T, session, userID string, qty int) domain.Order {
	t.Helper()
	meta, err := payment.EncodeMetadata(payment.CheckoutRequest{
		UserID:  userID,
		Email:   userID + "@threadline.test",
		Address: testAddr,
		Lines: []payment.OrderLine{
			{ProductID: "shirt-linen", Name: "Linen Shirt", Color: "Red", Size: "M", Quantity: qty, Price: 149900},
		},
	})
	require.NoError(t, err)
	res, err := e.seq.Process(context.Background(), payment.CompletedEvent{
		EventID:       "evt_" + session,
		SessionID:     session,
		AmountTotal:   int64(qty)*149900 + fee,
		PaymentStatus: domain.PaymentPaid,
		Metadata:      meta,
	})
	require.NoError(t, err)
	return res.Order
}

func (e *env) qtyOf(t *testing.T, sizeID string) int {
	t.Helper()
	sl, err := e.catalog.FindSize(context.Background(), sizeID)
	require.NoError(t, err)
	return sl.AvailableQty
}
