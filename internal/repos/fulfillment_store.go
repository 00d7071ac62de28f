package repos

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"threadline/internal/domain"
	"threadline/internal/fulfillment"
	"threadline/internal/outbox"
)

// FulfillmentStore runs order placement in one sqlite transaction. With the single-connection
// pool from OpenDB, concurrent placements are serialized.
type FulfillmentStore struct{ db *sqlx.DB }

func NewFulfillmentStore(db *sqlx.DB) *FulfillmentStore { return &FulfillmentStore{db: db} }

func (s *FulfillmentStore) WithTx(ctx context.Context, fn func(context.Context, fulfillment.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &sqliteTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *FulfillmentStore) OrderByEvent(ctx context.Context, key string) (domain.Order, error) {
	return getOrder(ctx, s.db, `
		SELECT `+orderCols+` FROM orders
		WHERE id = (SELECT order_id FROM processed_events WHERE session_id = ?)`, key)
}

type sqliteTx struct{ tx *sqlx.Tx }

func (t *sqliteTx) ClaimEvent(ctx context.Context, key, orderID string) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO processed_events(session_id, order_id) VALUES (?, ?)
		ON CONFLICT(session_id) DO NOTHING`, key, orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

func (t *sqliteTx) Locate(ctx context.Context, productID, color, size string) (domain.StockLine, error) {
	return locate(ctx, t.tx, productID, color, size)
}

// DecrementSize atomically subtracts qty if enough stock exists.
func (t *sqliteTx) DecrementSize(ctx context.Context, sizeID string, qty int) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE sizes
		SET available_qty = available_qty - ?
		WHERE id = ? AND available_qty >= ?
	`, qty, sizeID, qty)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

func (t *sqliteTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	_, err := t.tx.ExecContext(ctx, `
	  INSERT INTO orders
	    (id, user_id, user_email, total, payment_status, order_status,
	     street, city, state, country, postal_code, session_id, created_at)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.UserEmail, o.Total, o.PaymentStatus, o.OrderStatus,
		o.Address.Street, o.Address.City, o.Address.State, o.Address.Country, o.Address.PostalCode,
		o.SessionID, o.CreatedAt)
	if err != nil {
		return err
	}
	for i, d := range o.Details {
		if _, err := t.tx.ExecContext(ctx, `
		  INSERT INTO order_details
		    (order_id, line_no, product_id, product_title, product_price, product_qty, product_color, product_size)
		  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, i, d.ProductID, d.ProductTitle, d.ProductPrice, d.ProductQty, d.ProductColor, d.ProductSize); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqliteTx) Enqueue(ctx context.Context, m outbox.Message) error {
	return insertOutbox(ctx, t.tx, m)
}
