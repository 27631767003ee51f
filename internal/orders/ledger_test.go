package orders_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/audit"
	"github.com/ariefcatur/go-digital-orders/internal/metrics"
	"github.com/ariefcatur/go-digital-orders/internal/orders"
	"github.com/ariefcatur/go-digital-orders/internal/orders/orderstest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	ledger *orders.Ledger
	store  *orderstest.MemStore
	audit  *orderstest.AuditLog
	events *orderstest.Events
}

func newLedger(t *testing.T) ledgerFixture {
	t.Helper()
	store := orderstest.NewMemStore()
	al := &orderstest.AuditLog{}
	ev := &orderstest.Events{}
	l := &orders.Ledger{
		Store: store,
		Products: orderstest.Products{
			"p1": {ID: "p1", Name: "Exam pack", Price: decimal.RequireFromString("29.99"), IsActive: true},
			"p2": {ID: "p2", Name: "Retired pack", Price: decimal.RequireFromString("9.99"), IsActive: false},
		},
		Audit:   al,
		Events:  ev,
		Metrics: metrics.NewRegistry(),
	}
	return ledgerFixture{ledger: l, store: store, audit: al, events: ev}
}

func TestCreatePurchase(t *testing.T) {
	f := newLedger(t)

	rc, err := f.ledger.CreatePurchase(context.Background(), "u1", "p1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rc.PaymentReference, "PAY_"))
	assert.Equal(t, rc.PaymentReference, rc.Purchase.PaymentReference)
	assert.Equal(t, rc.PaymentReference, rc.Payment.PaymentReference)
	assert.Equal(t, orders.PaymentPending, rc.Purchase.PaymentStatus)
	assert.Equal(t, orders.DeliveryPending, rc.Purchase.DeliveryStatus)
	assert.Equal(t, "29.99", rc.Purchase.Amount.StringFixed(2))
	assert.Equal(t, 1, f.audit.Count(audit.ActionOrderCreated))
	assert.Equal(t, 1, f.events.Count(orders.EventOrderCreated))
}

func TestCreatePurchaseProductErrors(t *testing.T) {
	f := newLedger(t)

	_, err := f.ledger.CreatePurchase(context.Background(), "u1", "missing")
	assert.True(t, errors.Is(err, apperr.ErrProductNotFound))

	_, err = f.ledger.CreatePurchase(context.Background(), "u1", "p2")
	assert.True(t, errors.Is(err, apperr.ErrProductInactive))

	purchases, payments := f.store.Counts()
	assert.Zero(t, purchases)
	assert.Zero(t, payments)
}

func TestCreatePurchaseDuplicate(t *testing.T) {
	f := newLedger(t)
	ctx := context.Background()

	_, err := f.ledger.CreatePurchase(ctx, "u1", "p1")
	require.NoError(t, err)

	_, err = f.ledger.CreatePurchase(ctx, "u1", "p1")
	assert.True(t, errors.Is(err, apperr.ErrDuplicateOrder))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, 1, f.audit.Count(audit.ActionOrderRejected))

	// another user is unaffected
	_, err = f.ledger.CreatePurchase(ctx, "u2", "p1")
	assert.NoError(t, err)
}

func TestCreatePurchaseConcurrentExactlyOneWins(t *testing.T) {
	f := newLedger(t)
	const n = 32

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		dupes     int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.ledger.CreatePurchase(context.Background(), "u1", "p1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperr.ErrDuplicateOrder):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, dupes)
	purchases, payments := f.store.Counts()
	assert.Equal(t, 1, purchases)
	assert.Equal(t, 1, payments)
}

func TestCreatePurchaseOwnershipFastPath(t *testing.T) {
	f := newLedger(t)
	owners := &orderstest.Owners{}
	f.ledger.Owners = owners
	ctx := context.Background()

	_, err := f.ledger.CreatePurchase(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.True(t, owners.Owned(ctx, "u1", "p1"))

	// store is down, but the cache alone rejects the duplicate
	f.store.Err = errors.New("connection reset")
	_, err = f.ledger.CreatePurchase(ctx, "u1", "p1")
	assert.True(t, errors.Is(err, apperr.ErrDuplicateOrder))
}

func TestCreatePurchaseIgnoresStaleOwnership(t *testing.T) {
	f := newLedger(t)
	owners := &orderstest.Owners{}
	f.ledger.Owners = owners
	ctx := context.Background()

	// the key survived a failed payment; the store has no live purchase
	owners.MarkOwned(ctx, "u1", "p1")

	rc, err := f.ledger.CreatePurchase(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentPending, rc.Purchase.PaymentStatus)
	assert.Zero(t, f.audit.Count(audit.ActionOrderRejected))
	assert.True(t, owners.Owned(ctx, "u1", "p1"))
}

func TestCreatePurchaseStoreFailureIsTransient(t *testing.T) {
	f := newLedger(t)
	f.store.Err = errors.New("connection reset")

	_, err := f.ledger.CreatePurchase(context.Background(), "u1", "p1")
	require.Error(t, err)
	assert.True(t, apperr.IsRetryable(err))
	assert.True(t, errors.Is(err, apperr.ErrStoreUnavailable))
}

func TestCreatePurchaseAfterFailedPaymentAllowed(t *testing.T) {
	f := newLedger(t)
	ctx := context.Background()

	rc, err := f.ledger.CreatePurchase(ctx, "u1", "p1")
	require.NoError(t, err)
	_, applied, err := f.store.SettlePayment(ctx, rc.PaymentReference, orders.PaymentFailed, nil, rc.Payment.CreatedAt)
	require.NoError(t, err)
	require.True(t, applied)

	_, err = f.ledger.CreatePurchase(ctx, "u1", "p1")
	assert.NoError(t, err)
}

func TestCreatePurchaseRequiresIDs(t *testing.T) {
	f := newLedger(t)

	_, err := f.ledger.CreatePurchase(context.Background(), "", "p1")
	assert.Equal(t, apperr.KindInvalid, apperr.KindOf(err))
}

var _ orders.ProductLookup = orderstest.Products{}
