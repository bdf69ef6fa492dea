package orders

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/mars-shop.git/internal/kafka"
	"github.com/ariefcatur/mars-shop.git/internal/logger"
)

// EventSink is the subset of *kafka.Producer used to publish order events.
type EventSink interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafkago.Header) error
}

// KafkaEvents publishes order events as envelopes on their topics.
type KafkaEvents struct {
	Sink     EventSink
	Producer string
}

func (k *KafkaEvents) OrderCreated(ctx context.Context, o Order, customer *Contact) error {
	return k.publish(ctx, TopicOrderCreated, EventOrderCreated, o.ID, OrderCreatedPayload{Order: o, Customer: customer})
}

func (k *KafkaEvents) StatusChanged(ctx context.Context, orderID int64, from, to Status) error {
	return k.publish(ctx, TopicOrderStatusChanged, EventOrderStatusChanged, orderID,
		OrderStatusChangedPayload{OrderID: orderID, From: from, To: to})
}

func (k *KafkaEvents) publish(ctx context.Context, topic, eventType string, orderID int64, payload any) error {
	env, err := NewEnvelope(eventType, k.Producer, orderID, payload)
	if err != nil {
		return err
	}
	env.TraceID = logger.RequestID(ctx)
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return k.Sink.Publish(ctx, topic, PartitionKey(orderID), b, kafkax.EventHeaders(eventType, env.EventVersion)...)
}

// NewEnvelope wraps payload with a fresh event id.
func NewEnvelope(eventType, producer string, orderID int64, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       raw,
	}, nil
}
