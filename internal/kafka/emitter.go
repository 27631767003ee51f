package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/go-digital-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
)

const envelopeVersion = 1

// Publisher is the part of Producer the Emitter needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error
}

// Emitter wraps lifecycle payloads in envelope v1 and publishes them keyed by
// purchase id.
type Emitter struct {
	Producer    Publisher
	ServiceName string
	Now         func() time.Time
}

var _ orders.Emitter = (*Emitter)(nil)

func (e *Emitter) Emit(ctx context.Context, topic, eventType, correlationID string, payload any) error {
	env, err := e.Envelope(ctx, eventType, correlationID, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return e.Producer.Publish(ctx, topic, orders.PartitionKey(correlationID), value,
		kafka.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(envelopeVersion))},
	)
}

func (e *Emitter) Envelope(ctx context.Context, eventType, correlationID string, payload any) (orders.Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return orders.Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	now := time.Now().UTC()
	if e.Now != nil {
		now = e.Now()
	}
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    now,
		Producer:      e.ServiceName,
		CorrelationID: correlationID,
		Payload:       body,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}
	return env, nil
}
