package payments_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/audit"
	"github.com/ariefcatur/go-digital-orders/internal/notify"
	"github.com/ariefcatur/go-digital-orders/internal/orders"
	"github.com/ariefcatur/go-digital-orders/internal/orders/orderstest"
	"github.com/ariefcatur/go-digital-orders/internal/payments"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deliverer struct {
	calls atomic.Int32
	err   error
}

func (d *deliverer) AutoDeliver(context.Context, string) error {
	d.calls.Add(1)
	return d.err
}

type notifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (n *notifier) Send(_ context.Context, _ notify.Target, m notify.Message) (notify.SendResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
	return notify.SendResult{IDs: []string{"n1"}}, n.err
}

func (n *notifier) kinds() []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Kind
	for _, m := range n.sent {
		out = append(out, m.Kind)
	}
	return out
}

type fixture struct {
	rec      *payments.Reconciler
	store    *orderstest.MemStore
	audit    *orderstest.AuditLog
	delivery *deliverer
	notifier *notifier
	ref      string
	purchase string
}

// newFixture places one pending purchase of p1 (29.99) for u1.
func newFixture(t *testing.T) fixture {
	t.Helper()
	store := orderstest.NewMemStore()
	al := &orderstest.AuditLog{}
	ledger := &orders.Ledger{
		Store: store,
		Products: orderstest.Products{
			"p1": {ID: "p1", Name: "Exam pack", Price: decimal.RequireFromString("29.99"), IsActive: true},
		},
		Audit: al,
	}
	rc, err := ledger.CreatePurchase(context.Background(), "u1", "p1")
	require.NoError(t, err)

	d := &deliverer{}
	n := &notifier{}
	return fixture{
		rec: &payments.Reconciler{
			Store:    store,
			Delivery: d,
			Notifier: n,
			Audit:    al,
			Events:   &orderstest.Events{},
		},
		store:    store,
		audit:    al,
		delivery: d,
		notifier: n,
		ref:      rc.PaymentReference,
		purchase: rc.Purchase.ID,
	}
}

func TestParseOutcome(t *testing.T) {
	o, err := payments.ParseOutcome("success")
	require.NoError(t, err)
	assert.Equal(t, payments.OutcomeSuccess, o)

	_, err = payments.ParseOutcome("refunded")
	assert.True(t, errors.Is(err, apperr.ErrInvalidOutcome))
}

func TestReconcileSuccessSettlesBothRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.rec.ReconcileCallback(ctx, f.ref, payments.OutcomeSuccess, []byte(`{"transaction_id":"tx-1"}`))
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentCompleted, st)

	pay, err := f.store.PaymentByReference(ctx, f.ref)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentCompleted, pay.Status)
	assert.Equal(t, "29.99", pay.Amount.StringFixed(2))
	assert.JSONEq(t, `{"transaction_id":"tx-1"}`, string(pay.ProviderPayload))

	pu, err := f.store.PurchaseByID(ctx, f.purchase)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentCompleted, pu.PaymentStatus)

	assert.EqualValues(t, 1, f.delivery.calls.Load())
	assert.Equal(t, []notify.Kind{notify.KindSuccess}, f.notifier.kinds())
	assert.Equal(t, 1, f.audit.Count(audit.ActionPaymentCompleted))
}

func TestReconcileReplayIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		st, err := f.rec.ReconcileCallback(ctx, f.ref, payments.OutcomeSuccess, nil)
		require.NoError(t, err)
		assert.Equal(t, orders.PaymentCompleted, st)
	}
	assert.EqualValues(t, 1, f.delivery.calls.Load())
	assert.Len(t, f.notifier.kinds(), 1)
	assert.Equal(t, 2, f.audit.Count(audit.ActionCallbackReplayed))
}

func TestReconcileConflictingOutcomeRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.rec.ReconcileCallback(ctx, f.ref, payments.OutcomeSuccess, nil)
	require.NoError(t, err)

	st, err := f.rec.ReconcileCallback(ctx, f.ref, payments.OutcomeFailure, nil)
	assert.True(t, errors.Is(err, apperr.ErrConflictingCallback))
	assert.Equal(t, orders.PaymentCompleted, st)
	assert.Equal(t, 1, f.audit.Count(audit.ActionCallbackConflict))

	pay, err := f.store.PaymentByReference(ctx, f.ref)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentCompleted, pay.Status)
}

func TestReconcileFailureNotifiesAndReleasesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owners := &orderstest.Owners{}
	owners.MarkOwned(ctx, "u1", "p1")
	f.rec.Owners = owners

	st, err := f.rec.ReconcileCallback(ctx, f.ref, payments.OutcomeFailure, nil)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentFailed, st)
	assert.Zero(t, f.delivery.calls.Load())
	assert.Equal(t, []notify.Kind{notify.KindError}, f.notifier.kinds())

	live, err := f.store.HasLivePurchase(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.False(t, live)
	assert.False(t, owners.Owned(ctx, "u1", "p1"))
}

func TestReconcileUnknownReference(t *testing.T) {
	f := newFixture(t)

	_, err := f.rec.ReconcileCallback(context.Background(), "PAY_0_missing", payments.OutcomeSuccess, nil)
	assert.True(t, errors.Is(err, apperr.ErrUnknownPayment))
	assert.Equal(t, 1, f.audit.Count(audit.ActionCallbackUnknown))

	purchases, paymentsN := f.store.Counts()
	assert.Equal(t, 1, purchases)
	assert.Equal(t, 1, paymentsN)
}

func TestReconcileInvalidOutcome(t *testing.T) {
	f := newFixture(t)

	_, err := f.rec.ReconcileCallback(context.Background(), f.ref, payments.Outcome("chargeback"), nil)
	assert.True(t, errors.Is(err, apperr.ErrInvalidOutcome))

	pay, err := f.store.PaymentByReference(context.Background(), f.ref)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentPending, pay.Status)
}

func TestReconcileSideEffectFailureKeepsSettlement(t *testing.T) {
	f := newFixture(t)
	f.delivery.err = apperr.ErrRenderFailed
	f.notifier.err = errors.New("notifications down")

	st, err := f.rec.ReconcileCallback(context.Background(), f.ref, payments.OutcomeSuccess, nil)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentCompleted, st)
	assert.Equal(t, 1, f.audit.Count(audit.ActionDeliveryFailed))
}

// purchaseReadFails loses every purchase read after the rows were written.
type purchaseReadFails struct {
	*orderstest.MemStore
}

func (purchaseReadFails) PurchaseByReference(context.Context, string) (orders.Purchase, error) {
	return orders.Purchase{}, apperr.ErrStoreUnavailable
}

func TestReconcileSideEffectsDoNotDependOnPurchaseRead(t *testing.T) {
	f := newFixture(t)
	f.rec.Store = purchaseReadFails{f.store}

	st, err := f.rec.ReconcileCallback(context.Background(), f.ref, payments.OutcomeSuccess, nil)
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentCompleted, st)

	assert.Equal(t, 1, f.audit.Count(audit.ActionPaymentCompleted))
	assert.EqualValues(t, 1, f.delivery.calls.Load())
	assert.Equal(t, []notify.Kind{notify.KindSuccess}, f.notifier.kinds())
}

func TestReconcileConcurrentCallbacksSettleOnce(t *testing.T) {
	f := newFixture(t)
	const n = 16

	var (
		wg        sync.WaitGroup
		conflicts atomic.Int32
	)
	for i := 0; i < n; i++ {
		outcome := payments.OutcomeSuccess
		if i%2 == 1 {
			outcome = payments.OutcomeFailure
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.rec.ReconcileCallback(context.Background(), f.ref, outcome, nil)
			if errors.Is(err, apperr.ErrConflictingCallback) {
				conflicts.Add(1)
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, f.notifier.kinds(), 1)
	assert.EqualValues(t, n/2, conflicts.Load())

	pay, err := f.store.PaymentByReference(context.Background(), f.ref)
	require.NoError(t, err)
	assert.True(t, pay.Status.Terminal())
	if pay.Status == orders.PaymentCompleted {
		assert.EqualValues(t, 1, f.delivery.calls.Load())
	} else {
		assert.Zero(t, f.delivery.calls.Load())
	}
}
