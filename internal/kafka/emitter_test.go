package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ariefcatur/go-digital-orders/internal/orders"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	topic   string
	key     []byte
	value   []byte
	headers []kafka.Header
}

type fakePublisher struct{ msgs []captured }

func (f *fakePublisher) Publish(_ context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	f.msgs = append(f.msgs, captured{topic: topic, key: key, value: value, headers: headers})
	return nil
}

func TestEmitterWrapsEnvelope(t *testing.T) {
	pub := &fakePublisher{}
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	e := &Emitter{Producer: pub, ServiceName: "orders-api", Now: func() time.Time { return at }}

	err := e.Emit(context.Background(), orders.TopicPaymentSucceeded, orders.EventPaymentSucceeded, "pu-1",
		orders.PaymentSettledPayload{PurchaseID: "pu-1", Status: orders.PaymentCompleted, Amount: "29.99"})
	require.NoError(t, err)
	require.Len(t, pub.msgs, 1)

	m := pub.msgs[0]
	assert.Equal(t, orders.TopicPaymentSucceeded, m.topic)
	assert.Equal(t, "pu-1", string(m.key))
	assert.Equal(t, "x-event-type", m.headers[0].Key)
	assert.Equal(t, orders.EventPaymentSucceeded, string(m.headers[0].Value))

	var env orders.Envelope
	require.NoError(t, json.Unmarshal(m.value, &env))
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "orders-api", env.Producer)
	assert.Equal(t, "pu-1", env.CorrelationID)
	assert.True(t, at.Equal(env.OccurredAt))

	p, err := UnwrapPayload[orders.PaymentSettledPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, "29.99", p.Amount)
	assert.Equal(t, orders.PaymentCompleted, p.Status)
}

func TestProducerPublishFullInbox(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 1)
	require.NoError(t, p.Publish(context.Background(), "t", nil, []byte("a")))
	assert.ErrorIs(t, p.Publish(context.Background(), "t", nil, []byte("b")), ErrInboxFull)
}
