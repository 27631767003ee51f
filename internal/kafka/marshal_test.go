package kafka

import (
	"encoding/json"
	"testing"

	"github.com/ariefcatur/go-digital-orders/internal/orders"
	"github.com/stretchr/testify/assert"
)

func TestUnwrapPayloadRejectsGarbage(t *testing.T) {
	_, err := UnwrapPayload[orders.DeliveryRequestedPayload](json.RawMessage(`{"purchase_id":`))
	assert.ErrorContains(t, err, "decode payload")
}
