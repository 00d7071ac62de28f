// Package fulfillment turns a confirmed payment into exactly one order, or into no state
// change at all.
//
// A completed checkout event is validated against the current catalog before anything is
// written. Only when every line can be satisfied are the stock decrements, the order, the
// dedup record and the outbox message written, all in one store transaction.
package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"threadline/internal/domain"
	"threadline/internal/idempotency"
	applog "threadline/internal/log"
	"threadline/internal/metrics"
	"threadline/internal/outbox"
	"threadline/internal/payment"
)

var (
	ErrMalformedPayload        = errors.New("malformed payment metadata")
	ErrInventoryRecordNotFound = errors.New("inventory record not found")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrPersistence             = errors.New("order persistence failed")
	// ErrInFlight means another delivery of the same event is being processed right now.
	ErrInFlight = errors.New("event already in flight")
)

// Tx is the set of writes a fulfillment performs inside one store transaction.
type Tx interface {
	// ClaimEvent records key as processed for orderID, or returns domain.ErrDuplicate.
	ClaimEvent(ctx context.Context, key, orderID string) error
	// Locate resolves product -> variant(color) -> size, or returns domain.ErrNotFound.
	Locate(ctx context.Context, productID, color, size string) (domain.StockLine, error)
	// DecrementSize subtracts qty only if at least qty is available, else domain.ErrInsufficientStock.
	DecrementSize(ctx context.Context, sizeID string, qty int) error
	InsertOrder(ctx context.Context, o *domain.Order) error
	Enqueue(ctx context.Context, m outbox.Message) error
}

type Store interface {
	// WithTx runs fn in a transaction, committing only if fn returns nil. Calls on tx must use
	// the context handed to fn. A store may run fn more than once on transient conflicts.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// OrderByEvent returns the order bound to a processed event key.
	OrderByEvent(ctx context.Context, key string) (domain.Order, error)
}

type Result struct {
	Order    domain.Order
	Replayed bool
}

type Sequencer struct {
	store       Store
	guard       idempotency.Guard
	shippingFee int64
	now         func() time.Time
}

func NewSequencer(store Store, guard idempotency.Guard, shippingFee int64) *Sequencer {
	if guard == nil {
		guard = idempotency.NewMemoryGuard()
	}
	return &Sequencer{store: store, guard: guard, shippingFee: shippingFee, now: time.Now}
}

type line struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

type request struct {
	key     string
	userID  string
	email   string
	address domain.Address
	lines   []line
}

type placedEvent struct {
	OrderID   string         `json:"order_id"`
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	Total     int64          `json:"total"`
	Items     map[string]int `json:"items"`
	PlacedAt  time.Time      `json:"placed_at"`
}

var errReplay = errors.New("replay")

// Process applies a completed checkout event.
func (s *Sequencer) Process(ctx context.Context, ev payment.CompletedEvent) (Result, error) {
	req, err := parse(ev)
	if err != nil {
		metrics.Fulfillments.WithLabelValues("malformed").Inc()
		applog.Error(nil, "fulfillment.malformed", err, map[string]any{"event_id": ev.EventID})
		return Result{}, err
	}

	ok, err := s.guard.Acquire(ctx, req.key)
	if err != nil {
		// The durable dedup record still protects us; carry on without the guard.
		applog.Error(nil, "fulfillment.guard.fail", err, map[string]any{"key": req.key})
	} else if !ok {
		metrics.Fulfillments.WithLabelValues("in_flight").Inc()
		return Result{}, ErrInFlight
	} else {
		defer func() { _ = s.guard.Release(context.WithoutCancel(ctx), req.key) }()
	}

	order := domain.Order{
		ID:            uuid.NewString(),
		UserID:        req.userID,
		UserEmail:     req.email,
		Total:         ev.AmountTotal,
		PaymentStatus: ev.PaymentStatus,
		OrderStatus:   domain.StatusOrderPlaced,
		Address:       req.address,
		SessionID:     req.key,
		CreatedAt:     s.now().UTC(),
	}
	var expected int64

	err = s.store.WithTx(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.ClaimEvent(ctx, req.key, order.ID); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return errReplay
			}
			return err
		}

		// Validate every line before touching stock.
		need := map[string]int{}
		var sizeOrder []string
		located := make([]domain.StockLine, len(req.lines))
		for i, ln := range req.lines {
			sl, err := tx.Locate(ctx, ln.ProductID, ln.Color, ln.Size)
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: %s %s/%s", ErrInventoryRecordNotFound, ln.ProductID, ln.Color, ln.Size)
			}
			if err != nil {
				return err
			}
			if _, seen := need[sl.SizeID]; !seen {
				sizeOrder = append(sizeOrder, sl.SizeID)
			}
			need[sl.SizeID] += ln.Quantity
			if sl.AvailableQty < need[sl.SizeID] {
				return fmt.Errorf("%w: %s %s/%s wants %d, %d available",
					ErrInsufficientStock, ln.ProductID, ln.Color, ln.Size, need[sl.SizeID], sl.AvailableQty)
			}
			located[i] = sl
		}

		for _, id := range sizeOrder {
			if err := tx.DecrementSize(ctx, id, need[id]); err != nil {
				if errors.Is(err, domain.ErrInsufficientStock) {
					return fmt.Errorf("%w: size %s", ErrInsufficientStock, id)
				}
				return err
			}
		}

		order.Details = make([]domain.OrderDetail, len(req.lines))
		expected = s.shippingFee
		for i, ln := range req.lines {
			sl := located[i]
			order.Details[i] = domain.OrderDetail{
				ProductID:    sl.ProductID,
				ProductTitle: sl.ProductName,
				ProductPrice: sl.Price,
				ProductQty:   ln.Quantity,
				ProductColor: sl.Color,
				ProductSize:  sl.Size,
			}
			expected += sl.Price * int64(ln.Quantity)
		}
		if err := tx.InsertOrder(ctx, &order); err != nil {
			return err
		}

		msg, err := outbox.New(outbox.TopicOrderPlaced, order.ID, placedEvent{
			OrderID:   order.ID,
			UserID:    order.UserID,
			SessionID: order.SessionID,
			Total:     order.Total,
			Items:     need,
			PlacedAt:  order.CreatedAt,
		})
		if err != nil {
			return err
		}
		return tx.Enqueue(ctx, msg)
	})

	fields := map[string]any{"event_id": ev.EventID, "session_id": req.key}
	switch {
	case err == nil:
	case errors.Is(err, errReplay):
		existing, lookupErr := s.store.OrderByEvent(ctx, req.key)
		if lookupErr != nil {
			applog.Error(nil, "fulfillment.persistence.fail", lookupErr, fields)
			return Result{}, fmt.Errorf("%w: load replayed order: %v", ErrPersistence, lookupErr)
		}
		metrics.Fulfillments.WithLabelValues("replayed").Inc()
		fields["order_id"] = existing.ID
		applog.Info(nil, "fulfillment.replay", fields)
		return Result{Order: existing, Replayed: true}, nil
	case errors.Is(err, ErrInventoryRecordNotFound):
		metrics.Fulfillments.WithLabelValues("not_found").Inc()
		applog.Error(nil, "fulfillment.rejected", err, fields)
		return Result{}, err
	case errors.Is(err, ErrInsufficientStock):
		metrics.Fulfillments.WithLabelValues("insufficient").Inc()
		applog.Error(nil, "fulfillment.rejected", err, fields)
		return Result{}, err
	default:
		metrics.Fulfillments.WithLabelValues("persistence").Inc()
		applog.Error(nil, "fulfillment.persistence.fail", err, fields)
		return Result{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	fields["order_id"] = order.ID
	fields["total"] = order.Total
	if expected != ev.AmountTotal {
		fields["expected_total"] = expected
		applog.Security(nil, "fulfillment.total.mismatch", fields)
	}
	metrics.Fulfillments.WithLabelValues("placed").Inc()
	applog.Info(nil, "fulfillment.order.placed", fields)
	return Result{Order: order}, nil
}

func parse(ev payment.CompletedEvent) (request, error) {
	key := ev.DedupKey()
	if key == "" {
		return request{}, fmt.Errorf("%w: event has no id", ErrMalformedPayload)
	}
	if !domain.ValidPaymentStatus(ev.PaymentStatus) {
		return request{}, fmt.Errorf("%w: payment status %q", ErrMalformedPayload, ev.PaymentStatus)
	}
	req := request{
		key:    key,
		userID: ev.Metadata[payment.MetaUserID],
		email:  ev.Metadata[payment.MetaEmail],
	}
	if req.userID == "" {
		return request{}, fmt.Errorf("%w: %s missing", ErrMalformedPayload, payment.MetaUserID)
	}

	rawAddr, rawLines := ev.Metadata[payment.MetaAddress], payment.JoinDetails(ev.Metadata)
	if err := validateJSON(addressValidator, payment.MetaAddress, rawAddr); err != nil {
		return request{}, err
	}
	if err := validateJSON(detailsValidator, payment.MetaDetails, rawLines); err != nil {
		return request{}, err
	}
	if err := json.Unmarshal([]byte(rawAddr), &req.address); err != nil {
		return request{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := json.Unmarshal([]byte(rawLines), &req.lines); err != nil {
		return request{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return req, nil
}
