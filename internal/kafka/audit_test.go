package kafka

import (
	"errors"
	"testing"

	"github.com/ariefcatur/go-digital-orders/internal/audit"
	"github.com/ariefcatur/go-digital-orders/internal/orders"
	"github.com/ariefcatur/go-digital-orders/internal/orders/orderstest"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditFailuresRecordsLostMessage(t *testing.T) {
	al := &orderstest.AuditLog{}
	onErr := AuditFailures(al)

	onErr(kafka.Message{
		Topic:   orders.TopicDeliveryRequested,
		Key:     []byte("pu-1"),
		Headers: []kafka.Header{{Key: "x-event-type", Value: []byte(orders.EventDeliveryRequested)}},
	}, errors.New("leader not available"))

	entries := al.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionPublishFailed, entries[0].Action)
	assert.Equal(t, "pu-1", entries[0].Subject)
	assert.Contains(t, entries[0].Detail, orders.EventDeliveryRequested)
	assert.Contains(t, entries[0].Detail, "leader not available")
}
