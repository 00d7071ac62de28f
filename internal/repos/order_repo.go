package repos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"threadline/internal/domain"
)

type OrderRepo struct{ db *sqlx.DB }

func NewOrderRepo(db *sqlx.DB) *OrderRepo { return &OrderRepo{db: db} }

type orderRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	UserEmail     string    `db:"user_email"`
	Total         int64     `db:"total"`
	PaymentStatus string    `db:"payment_status"`
	OrderStatus   string    `db:"order_status"`
	SessionID     string    `db:"session_id"`
	CreatedAt     time.Time `db:"created_at"`
	domain.Address
}

func (r orderRow) order() domain.Order {
	return domain.Order{
		ID:            r.ID,
		UserID:        r.UserID,
		UserEmail:     r.UserEmail,
		Total:         r.Total,
		PaymentStatus: r.PaymentStatus,
		OrderStatus:   r.OrderStatus,
		Address:       r.Address,
		SessionID:     r.SessionID,
		CreatedAt:     r.CreatedAt,
	}
}

const orderCols = `id, user_id, user_email, total, payment_status, order_status,
  street, city, state, country, postal_code, COALESCE(session_id,'') AS session_id, created_at`

// Get returns the order with its details.
func (r *OrderRepo) Get(ctx context.Context, id string) (domain.Order, error) {
	return getOrder(ctx, r.db, `SELECT `+orderCols+` FROM orders WHERE id = ?`, id)
}

// BySession returns the order placed for a checkout session.
func (r *OrderRepo) BySession(ctx context.Context, sessionID string) (domain.Order, error) {
	return getOrder(ctx, r.db, `SELECT `+orderCols+` FROM orders WHERE session_id = ?`, sessionID)
}

func getOrder(ctx context.Context, q sqlx.QueryerContext, query string, arg any) (domain.Order, error) {
	var row orderRow
	if err := sqlx.GetContext(ctx, q, &row, query, arg); err != nil {
		return domain.Order{}, notFound(err)
	}
	o := row.order()
	if err := sqlx.SelectContext(ctx, q, &o.Details, `
		SELECT product_id, product_title, product_price, product_qty, product_color, product_size
		FROM order_details
		WHERE order_id = ?
		ORDER BY line_no`, o.ID); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *OrderRepo) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	var rows []orderRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Order, len(rows))
	byID := make(map[string]int, len(rows))
	ids := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.order()
		byID[row.ID] = i
		ids[i] = row.ID
	}
	if len(ids) == 0 {
		return out, nil
	}

	q, args2, err := sqlx.In(`
		SELECT order_id, product_id, product_title, product_price, product_qty, product_color, product_size
		FROM order_details
		WHERE order_id IN (?)
		ORDER BY order_id, line_no`, ids)
	if err != nil {
		return nil, err
	}
	var details []struct {
		OrderID string `db:"order_id"`
		domain.OrderDetail
	}
	if err := r.db.SelectContext(ctx, &details, r.db.Rebind(q), args2...); err != nil {
		return nil, err
	}
	for _, d := range details {
		i := byID[d.OrderID]
		out[i].Details = append(out[i].Details, d.OrderDetail)
	}
	return out, nil
}

func (r *OrderRepo) ListLatest(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.list(ctx, `SELECT `+orderCols+` FROM orders ORDER BY created_at DESC, id LIMIT ?`, limit)
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, `SELECT `+orderCols+` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
}

// LatestByUser returns the user's most recent order.
func (r *OrderRepo) LatestByUser(ctx context.Context, userID string) (domain.Order, error) {
	return getOrder(ctx, r.db, `SELECT `+orderCols+` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id LIMIT 1`, userID)
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id, status string) error {
	return r.update(ctx, `UPDATE orders SET order_status = ? WHERE id = ?`, status, id)
}

func (r *OrderRepo) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	return r.update(ctx, `UPDATE orders SET payment_status = ? WHERE id = ?`, status, id)
}

func (r *OrderRepo) update(ctx context.Context, query, status, id string) error {
	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CancelUserOrders marks a deleted user's undelivered orders as canceled; rows are kept for audit.
func (r *OrderRepo) CancelUserOrders(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE orders SET order_status = ? WHERE user_id = ? AND order_status NOT IN (?, ?)`,
		domain.StatusCanceled, userID, domain.StatusDelivered, domain.StatusCanceled)
	return err
}
