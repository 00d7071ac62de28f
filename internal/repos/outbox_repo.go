package repos

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"threadline/internal/outbox"
)

// OutboxRepo is the sqlite outbox.Source.
type OutboxRepo struct{ db *sqlx.DB }

func NewOutboxRepo(db *sqlx.DB) *OutboxRepo { return &OutboxRepo{db: db} }

func insertOutbox(ctx context.Context, e sqlx.ExecerContext, m outbox.Message) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO outbox(id, topic, msg_key, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Topic, m.Key, string(m.Payload), m.CreatedAt)
	return err
}

func (r *OutboxRepo) Pending(ctx context.Context, limit int) ([]outbox.Message, error) {
	var rows []struct {
		outbox.Message
		Body string `db:"body"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, topic, msg_key, payload AS body, created_at
		FROM outbox
		WHERE sent_at IS NULL
		ORDER BY created_at, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	out := make([]outbox.Message, len(rows))
	for i, row := range rows {
		out[i] = row.Message
		out[i].Payload = json.RawMessage(row.Body)
	}
	return out, nil
}

func (r *OutboxRepo) MarkSent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox SET sent_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}
