package orders

import (
	"context"
	"encoding/json"
	"time"
)

const (
	EventOrderCreated      = "OrderCreated"
	EventPaymentSucceeded  = "PaymentSucceeded"
	EventPaymentFailed     = "PaymentFailed"
	EventDeliveryRequested = "DeliveryRequested"
	EventDeliveryCompleted = "DeliveryCompleted"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // purchase_id
	Payload       json.RawMessage `json:"payload"`
}

// Emitter publishes lifecycle events. Implementations must not block on the
// broker; a nil Emitter disables publishing.
type Emitter interface {
	Emit(ctx context.Context, topic, eventType, correlationID string, payload any) error
}

// ---- payloads ----

type OrderCreatedPayload struct {
	PurchaseID       string `json:"purchase_id"`
	UserID           string `json:"user_id"`
	ProductID        string `json:"product_id"`
	PaymentReference string `json:"payment_reference"`
	Amount           string `json:"amount"`
}

type PaymentSettledPayload struct {
	PurchaseID       string        `json:"purchase_id"`
	UserID           string        `json:"user_id"`
	ProductID        string        `json:"product_id"`
	PaymentReference string        `json:"payment_reference"`
	Status           PaymentStatus `json:"status"`
	Amount           string        `json:"amount"`
}

// DeliveryRequestedPayload with an empty Policy asks for the automatic path,
// which honours the auto-deliver flag.
type DeliveryRequestedPayload struct {
	PurchaseID       string `json:"purchase_id"`
	PaymentReference string `json:"payment_reference,omitempty"`
	Policy           string `json:"policy,omitempty"`
	Answers          []int  `json:"answers,omitempty"`
	Actor            string `json:"actor,omitempty"`
}

type DeliveryCompletedPayload struct {
	PurchaseID  string    `json:"purchase_id"`
	UserID      string    `json:"user_id"`
	ArtifactRef string    `json:"artifact_ref"`
	Policy      string    `json:"policy"`
	DeliveredAt time.Time `json:"delivered_at"`
}
