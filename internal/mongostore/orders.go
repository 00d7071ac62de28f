package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"threadline/internal/domain"
)

// Orders is the order view over the store, split out so that its Get does not clash with
// the catalog's.
type Orders struct{ s *Store }

func (s *Store) Orders() *Orders { return &Orders{s: s} }

func getOrder(ctx context.Context, col *mongo.Collection, filter any, opts ...*options.FindOneOptions) (domain.Order, error) {
	var o domain.Order
	if err := col.FindOne(ctx, filter, opts...).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

func (v *Orders) findOrders(ctx context.Context, filter any, opts ...*options.FindOptions) ([]domain.Order, error) {
	cur, err := v.s.orders.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	out := []domain.Order{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return out, nil
}

func (v *Orders) Get(ctx context.Context, id string) (domain.Order, error) {
	return getOrder(ctx, v.s.orders, bson.M{"_id": id})
}

func (v *Orders) BySession(ctx context.Context, sessionID string) (domain.Order, error) {
	return getOrder(ctx, v.s.orders, bson.M{"session_id": sessionID})
}

func (v *Orders) ListLatest(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	return v.findOrders(ctx, bson.M{}, options.Find().SetSort(newestFirst).SetLimit(int64(limit)))
}

func (v *Orders) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return v.findOrders(ctx, bson.M{"user_id": userID}, options.Find().SetSort(newestFirst))
}

func (v *Orders) LatestByUser(ctx context.Context, userID string) (domain.Order, error) {
	return getOrder(ctx, v.s.orders, bson.M{"user_id": userID}, options.FindOne().SetSort(newestFirst))
}

func (v *Orders) UpdateStatus(ctx context.Context, id, status string) error {
	return v.setOrderField(ctx, id, "order_status", status)
}

func (v *Orders) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	return v.setOrderField(ctx, id, "payment_status", status)
}

func (v *Orders) setOrderField(ctx context.Context, id, field, value string) error {
	res, err := v.s.orders.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{field: value}})
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CancelUserOrders marks a deleted user's undelivered orders as canceled.
func (v *Orders) CancelUserOrders(ctx context.Context, userID string) error {
	_, err := v.s.orders.UpdateMany(ctx, bson.M{
		"user_id":      userID,
		"order_status": bson.M{"$nin": bson.A{domain.StatusDelivered, domain.StatusCanceled}},
	}, bson.M{"$set": bson.M{"order_status": domain.StatusCanceled}})
	return err
}
