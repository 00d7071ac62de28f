package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"threadline/internal/domain"
	"threadline/internal/fulfillment"
	"threadline/internal/outbox"
)

type processedEvent struct {
	Key       string    `bson:"_id"`
	OrderID   string    `bson:"order_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// WithTx runs fn inside a multi-document transaction. The driver retries fn on transient
// errors such as write conflicts between concurrent placements.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, fulfillment.Tx) error) error {
	sess, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc, &mongoTx{s: s})
	})
	return err
}

func (s *Store) OrderByEvent(ctx context.Context, key string) (domain.Order, error) {
	var ev processedEvent
	if err := s.events.FindOne(ctx, bson.M{"_id": key}).Decode(&ev); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("failed to get processed event: %w", err)
	}
	return getOrder(ctx, s.orders, bson.M{"_id": ev.OrderID})
}

type mongoTx struct{ s *Store }

func (t *mongoTx) ClaimEvent(ctx context.Context, key, orderID string) error {
	_, err := t.s.events.InsertOne(ctx, processedEvent{Key: key, OrderID: orderID, CreatedAt: time.Now().UTC()})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to claim event: %w", err)
	}
	return nil
}

func (t *mongoTx) Locate(ctx context.Context, productID, color, size string) (domain.StockLine, error) {
	return locate(ctx, t.s.products, productID, color, size)
}

// DecrementSize applies a conditional $inc: the filter only matches while the size still has
// at least qty units.
func (t *mongoTx) DecrementSize(ctx context.Context, sizeID string, qty int) error {
	filter := bson.M{
		"product_variants.sizes": bson.M{"$elemMatch": bson.M{
			"_id":           sizeID,
			"available_qty": bson.M{"$gte": qty},
		}},
	}
	update := bson.M{"$inc": bson.M{"product_variants.$[].sizes.$[s].available_qty": -qty}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"s._id": sizeID}},
	})
	res, err := t.s.products.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to decrement size: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInsufficientStock
	}
	return nil
}

func (t *mongoTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	if _, err := t.s.orders.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (t *mongoTx) Enqueue(ctx context.Context, m outbox.Message) error {
	if _, err := t.s.outbox.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("failed to enqueue outbox message: %w", err)
	}
	return nil
}
