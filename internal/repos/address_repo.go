package repos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"threadline/internal/domain"
)

type AddressRepo struct{ db *sqlx.DB }

func NewAddressRepo(db *sqlx.DB) *AddressRepo { return &AddressRepo{db: db} }

// Get returns domain.ErrNotFound when the user has not saved an address yet.
func (r *AddressRepo) Get(ctx context.Context, userID string) (domain.Address, error) {
	var a domain.Address
	err := r.db.GetContext(ctx, &a, `
		SELECT street, city, state, country, postal_code
		FROM addresses WHERE user_id = ?`, userID)
	if err != nil {
		return domain.Address{}, notFound(err)
	}
	return a, nil
}

func (r *AddressRepo) Save(ctx context.Context, userID string, a domain.Address) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO addresses(user_id, street, city, state, country, postal_code, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
		  street = excluded.street, city = excluded.city, state = excluded.state,
		  country = excluded.country, postal_code = excluded.postal_code,
		  updated_at = CURRENT_TIMESTAMP`,
		userID, a.Street, a.City, a.State, a.Country, a.PostalCode)
	return err
}
