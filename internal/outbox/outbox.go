// Package outbox relays events recorded in the same transaction as the order to the
// message broker.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	applog "threadline/internal/log"
	"threadline/internal/metrics"
)

const TopicOrderPlaced = "order.placed"

// Message is one pending outbox row.
type Message struct {
	ID        string          `db:"id" bson:"_id"`
	Topic     string          `db:"topic" bson:"topic"`
	Key       string          `db:"msg_key" bson:"key"`
	Payload   json.RawMessage `db:"payload" bson:"payload"`
	CreatedAt time.Time       `db:"created_at" bson:"created_at"`
}

// New builds a message with a fresh id and payload marshalled to JSON.
func New(topic, key string, payload any) (Message, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{ID: uuid.NewString(), Topic: topic, Key: key, Payload: b, CreatedAt: time.Now().UTC()}, nil
}

// Source is where unsent messages are read from and acknowledged.
type Source interface {
	Pending(ctx context.Context, limit int) ([]Message, error)
	MarkSent(ctx context.Context, id string) error
}

type Publisher interface {
	Publish(ctx context.Context, m Message) error
}

// KafkaPublisher writes messages keyed by order id so one order's events stay ordered.
type KafkaPublisher struct {
	w     *kafka.Writer
	topic string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{w: w, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, m Message) error {
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(m.Key),
		Value: m.Payload,
		Time:  m.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(m.Topic)},
			{Key: "event_id", Value: []byte(m.ID)},
		},
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// LogPublisher stands in for the broker when none is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, m Message) error {
	applog.Info(nil, "outbox.publish.log", map[string]any{"id": m.ID, "topic": m.Topic, "key": m.Key})
	return nil
}

// Relay polls Source and hands each message to Publisher, marking it sent on success.
// Delivery is at least once.
type Relay struct {
	src   Source
	pub   Publisher
	tick  time.Duration
	batch int
}

func NewRelay(src Source, pub Publisher, tick time.Duration) *Relay {
	if tick <= 0 {
		tick = time.Second
	}
	return &Relay{src: src, pub: pub, tick: tick, batch: 100}
}

func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.tick)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if _, err := r.Flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
				applog.Error(nil, "outbox.fetch.fail", err, nil)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Flush publishes one batch and returns how many messages were sent.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	msgs, err := r.src.Pending(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, m := range msgs {
		if err := r.pub.Publish(ctx, m); err != nil {
			metrics.OutboxPublished.WithLabelValues("error").Inc()
			applog.Error(nil, "outbox.publish.fail", err, map[string]any{"id": m.ID})
			continue
		}
		if err := r.src.MarkSent(ctx, m.ID); err != nil {
			applog.Error(nil, "outbox.mark.fail", err, map[string]any{"id": m.ID})
			continue
		}
		metrics.OutboxPublished.WithLabelValues("ok").Inc()
		sent++
	}
	return sent, nil
}
