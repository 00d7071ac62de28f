package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"threadline/internal/outbox"
)

// Pending returns unsent outbox messages, oldest first.
func (s *Store) Pending(ctx context.Context, limit int) ([]outbox.Message, error) {
	cur, err := s.outbox.Find(ctx, bson.M{"sent_at": bson.M{"$exists": false}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	var out []outbox.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode outbox: %w", err)
	}
	return out, nil
}

func (s *Store) MarkSent(ctx context.Context, id string) error {
	_, err := s.outbox.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"sent_at": time.Now().UTC()}})
	return err
}
