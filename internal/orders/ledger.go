package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/audit"
	"github.com/ariefcatur/go-digital-orders/internal/catalog"
	"github.com/ariefcatur/go-digital-orders/internal/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-digital-orders/internal/orders")

type ProductLookup interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
}

// OwnershipCache is a best-effort copy of live ownership. Neither a hit nor a
// miss is trusted while the store can answer; only its unique index decides.
type OwnershipCache interface {
	Owned(ctx context.Context, userID, productID string) bool
	MarkOwned(ctx context.Context, userID, productID string)
	Forget(ctx context.Context, userID, productID string)
}

// Ledger creates and exclusively owns Purchase and Payment rows.
type Ledger struct {
	Store    Store
	Products ProductLookup
	Owners   OwnershipCache // optional
	Audit    audit.Recorder
	Events   Emitter // optional
	Metrics  *metrics.Registry
	Timeout  time.Duration
	Currency string
	Now      func() time.Time
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now().UTC()
}

func (l *Ledger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.Timeout)
}

// CreatePurchase accepts a purchase intent for (userID, productID). Concurrent
// calls for the same pair yield exactly one Receipt; the rest fail with
// apperr.ErrDuplicateOrder.
func (l *Ledger) CreatePurchase(ctx context.Context, userID, productID string) (Receipt, error) {
	ctx, span := tracer.Start(ctx, "ledger.CreatePurchase")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("product.id", productID))

	if userID == "" || productID == "" {
		return Receipt{}, apperr.ErrInvalidArgument.WithMessage("user and product are required")
	}

	sctx, cancel := l.withTimeout(ctx)
	defer cancel()

	product, err := l.Products.Get(sctx, productID)
	if err != nil {
		return Receipt{}, l.reject(ctx, userID, productID, apperr.Internal(err))
	}
	if !product.IsActive {
		return Receipt{}, l.reject(ctx, userID, productID, apperr.ErrProductInactive)
	}

	cached := l.Owners != nil && l.Owners.Owned(sctx, userID, productID)
	owned, err := l.Store.HasLivePurchase(sctx, userID, productID)
	if err != nil {
		// store unreadable: a cached ownership still answers the duplicate case
		if cached {
			return Receipt{}, l.reject(ctx, userID, productID, apperr.ErrDuplicateOrder)
		}
		return Receipt{}, apperr.Internal(err)
	}
	if owned {
		return Receipt{}, l.reject(ctx, userID, productID, apperr.ErrDuplicateOrder)
	}
	if cached {
		// left over from a failed payment whose Forget was lost
		l.Owners.Forget(ctx, userID, productID)
	}

	now := l.now()
	ref := NewPaymentReference(now)
	currency := l.Currency
	if currency == "" {
		currency = "TRY"
	}
	pu := Purchase{
		ID:               uuid.NewString(),
		UserID:           userID,
		ProductID:        productID,
		PaymentStatus:    PaymentPending,
		PaymentReference: ref,
		Amount:           product.Price,
		DeliveryStatus:   DeliveryPending,
		CreatedAt:        now,
	}
	pay := Payment{
		ID:               uuid.NewString(),
		UserID:           userID,
		ProductID:        productID,
		Amount:           product.Price,
		Currency:         currency,
		PaymentReference: ref,
		Status:           PaymentPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := l.Store.InsertPurchase(sctx, pu, pay); err != nil {
		if errors.Is(err, apperr.ErrDuplicateOrder) {
			return Receipt{}, l.reject(ctx, userID, productID, err)
		}
		log.Printf("[ledger] insert purchase user=%s product=%s: %v", userID, productID, err)
		return Receipt{}, apperr.Internal(err)
	}

	if l.Owners != nil {
		l.Owners.MarkOwned(ctx, userID, productID)
	}
	l.Audit.Record(ctx, audit.Entry{
		Action:  audit.ActionOrderCreated,
		Outcome: audit.OutcomeApplied,
		Actor:   userID,
		Subject: ref,
		Detail:  fmt.Sprintf("purchase=%s product=%s amount=%s", pu.ID, productID, pu.Amount.StringFixed(2)),
	})
	l.Metrics.PurchaseCreated()
	if l.Events != nil {
		if err := l.Events.Emit(ctx, TopicOrderCreated, EventOrderCreated, pu.ID, OrderCreatedPayload{
			PurchaseID:       pu.ID,
			UserID:           userID,
			ProductID:        productID,
			PaymentReference: ref,
			Amount:           pu.Amount.StringFixed(2),
		}); err != nil {
			log.Printf("[ledger] emit %s purchase=%s: %v", EventOrderCreated, pu.ID, err)
		}
	}

	return Receipt{Purchase: pu, Payment: pay, PaymentReference: ref}, nil
}

func (l *Ledger) reject(ctx context.Context, userID, productID string, err error) error {
	var ae *apperr.Error
	code := "internal"
	if errors.As(err, &ae) {
		code = ae.Code
	}
	l.Metrics.PurchaseRejected(code)
	if errors.Is(err, apperr.ErrDuplicateOrder) {
		l.Audit.Record(ctx, audit.Entry{
			Action:  audit.ActionOrderRejected,
			Outcome: audit.OutcomeRejected,
			Actor:   userID,
			Subject: productID,
			Detail:  code,
		})
	}
	return err
}
