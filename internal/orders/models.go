package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is one user's ownership of one product.
type Purchase struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	ProductID        string          `json:"product_id"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	PaymentReference string          `json:"payment_reference"`
	Amount           decimal.Decimal `json:"amount"`
	DeliveryStatus   DeliveryStatus  `json:"delivery_status"`
	ArtifactRef      string          `json:"artifact_ref,omitempty"`
	DeliveredAt      *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Payment tracks the provider settlement of a Purchase, joined by PaymentReference.
type Payment struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	ProductID        string          `json:"product_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	PaymentReference string          `json:"payment_reference"`
	Status           PaymentStatus   `json:"status"`
	ProviderPayload  []byte          `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Receipt is what a successful purchase request hands back to the caller,
// who uses PaymentReference to start the provider checkout.
type Receipt struct {
	Purchase         Purchase `json:"purchase"`
	Payment          Payment  `json:"payment"`
	PaymentReference string   `json:"payment_reference"`
}

type PaymentFilter struct {
	Status PaymentStatus
	UserID string
	Page   int
	Limit  int
}
