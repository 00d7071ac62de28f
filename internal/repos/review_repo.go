package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"threadline/internal/domain"
)

type ReviewRepo struct{ db *sqlx.DB }

func NewReviewRepo(db *sqlx.DB) *ReviewRepo { return &ReviewRepo{db: db} }

func (r *ReviewRepo) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	var out []domain.Review
	err := r.db.SelectContext(ctx, &out, `
		SELECT rv.id, rv.product_id, rv.user_id, u.name AS user_name, rv.rating, rv.body, rv.created_at
		FROM reviews rv
		JOIN users u ON u.id = rv.user_id
		WHERE rv.product_id = ?
		ORDER BY rv.created_at DESC`, productID)
	return out, err
}

func (r *ReviewRepo) Create(ctx context.Context, rv *domain.Review) error {
	if rv.ID == "" {
		rv.ID = uuid.NewString()
	}
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews(id, product_id, user_id, rating, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`, rv.ID, rv.ProductID, rv.UserID, rv.Rating, rv.Body, rv.CreatedAt)
	return err
}

func (r *ReviewRepo) Get(ctx context.Context, id string) (domain.Review, error) {
	var rv domain.Review
	err := r.db.GetContext(ctx, &rv, `
		SELECT rv.id, rv.product_id, rv.user_id, u.name AS user_name, rv.rating, rv.body, rv.created_at
		FROM reviews rv JOIN users u ON u.id = rv.user_id
		WHERE rv.id = ?`, id)
	if err != nil {
		return domain.Review{}, notFound(err)
	}
	return rv, nil
}

func (r *ReviewRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Update rewrites the rating and text of a review.
func (r *ReviewRepo) Update(ctx context.Context, id string, rating int, body string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reviews SET rating = ?, body = ? WHERE id = ?`, rating, body, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ReviewRepo) DeleteByProduct(ctx context.Context, productID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE product_id = ?`, productID)
	return err
}
