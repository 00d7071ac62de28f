// Package mongostore is the MongoDB backend for the catalog, orders, order placement and the
// outbox. Users, sessions, reviews and addresses always live in sqlite.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"threadline/internal/domain"
)

const (
	colProducts = "products"
	colOrders   = "orders"
	colEvents   = "processed_events"
	colOutbox   = "outbox"
)

// Connect opens a client and pings it. Order placement uses multi-document transactions,
// so the server must be a replica set member.
func Connect(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(5)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(database), nil
}

// Store groups the collections used by the catalog, order and fulfillment views.
type Store struct {
	db       *mongo.Database
	products *mongo.Collection
	orders   *mongo.Collection
	events   *mongo.Collection
	outbox   *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		db:       db,
		products: db.Collection(colProducts),
		orders:   db.Collection(colOrders),
		events:   db.Collection(colEvents),
		outbox:   db.Collection(colOutbox),
	}
}

func (s *Store) CreateIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.products: {
			{Keys: bson.D{{Key: "product_category", Value: 1}, {Key: "is_published", Value: 1}}},
			{Keys: bson.D{{Key: "product_variants.sizes._id", Value: 1}}},
		},
		s.orders: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		s.outbox: {
			{Keys: bson.D{{Key: "sent_at", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}
	for col, models := range indexes {
		if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", col.Name(), err)
		}
	}
	return nil
}

// Seed inserts products when the catalog is empty.
func (s *Store) Seed(ctx context.Context, products []domain.Product) error {
	n, err := s.products.CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	docs := make([]any, len(products))
	for i, p := range products {
		docs[i] = p
	}
	if _, err := s.products.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}
