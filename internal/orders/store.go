package orders

import (
	"context"
	"time"
)

// Store is the persistence contract of the lifecycle engine. Implementations
// must enforce the live-owner uniqueness and the conditional updates
// themselves; callers never read-then-write to protect an invariant.
type Store interface {
	// HasLivePurchase is a fast-path hint only.
	HasLivePurchase(ctx context.Context, userID, productID string) (bool, error)
	// InsertPurchase writes both rows atomically. A second live purchase for
	// the same (user, product) fails with apperr.ErrDuplicateOrder.
	InsertPurchase(ctx context.Context, pu Purchase, pay Payment) error

	PurchaseByID(ctx context.Context, id string) (Purchase, error)
	PurchaseByReference(ctx context.Context, ref string) (Purchase, error)
	PaymentByReference(ctx context.Context, ref string) (Payment, error)
	PurchasesByUser(ctx context.Context, userID string) ([]Purchase, error)
	ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, int, error)

	// SettlePayment moves payment and purchase from pending to `to` in one
	// unit and returns the purchase as written. applied is false when the
	// payment was no longer pending.
	SettlePayment(ctx context.Context, ref string, to PaymentStatus, payload []byte, at time.Time) (pu Purchase, applied bool, err error)
	// MarkDelivered sets the delivery fields only if payment completed and the
	// purchase was not delivered yet.
	MarkDelivered(ctx context.Context, purchaseID, artifactRef string, at time.Time) (applied bool, err error)
}
