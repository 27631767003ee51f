// Package orderstest provides an in-memory orders.Store with the same
// uniqueness and compare-and-set guarantees as the Postgres repo.
package orderstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/orders"
)

type MemStore struct {
	mu        sync.Mutex
	purchases map[string]orders.Purchase // by id
	payments  map[string]orders.Payment  // by reference

	// Err, when set, is returned by every call. Simulates an unavailable store.
	Err error
}

var _ orders.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		purchases: map[string]orders.Purchase{},
		payments:  map[string]orders.Payment{},
	}
}

func (m *MemStore) HasLivePurchase(_ context.Context, userID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	return m.liveLocked(userID, productID), nil
}

func (m *MemStore) liveLocked(userID, productID string) bool {
	for _, p := range m.purchases {
		if p.UserID == userID && p.ProductID == productID && p.PaymentStatus != orders.PaymentFailed {
			return true
		}
	}
	return false
}

func (m *MemStore) InsertPurchase(_ context.Context, pu orders.Purchase, pay orders.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.liveLocked(pu.UserID, pu.ProductID) {
		return apperr.ErrDuplicateOrder
	}
	if _, ok := m.payments[pay.PaymentReference]; ok {
		return apperr.ErrStoreUnavailable.WithMessage("payment reference collision")
	}
	m.purchases[pu.ID] = pu
	m.payments[pay.PaymentReference] = pay
	return nil
}

func (m *MemStore) PurchaseByID(_ context.Context, id string) (orders.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return orders.Purchase{}, m.Err
	}
	p, ok := m.purchases[id]
	if !ok {
		return orders.Purchase{}, apperr.ErrPurchaseNotFound
	}
	return p, nil
}

func (m *MemStore) PurchaseByReference(_ context.Context, ref string) (orders.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return orders.Purchase{}, m.Err
	}
	for _, p := range m.purchases {
		if p.PaymentReference == ref {
			return p, nil
		}
	}
	return orders.Purchase{}, apperr.ErrPurchaseNotFound
}

func (m *MemStore) PaymentByReference(_ context.Context, ref string) (orders.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return orders.Payment{}, m.Err
	}
	p, ok := m.payments[ref]
	if !ok {
		return orders.Payment{}, apperr.ErrUnknownPayment
	}
	return p, nil
}

func (m *MemStore) PurchasesByUser(_ context.Context, userID string) ([]orders.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []orders.Purchase
	for _, p := range m.purchases {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemStore) ListPayments(_ context.Context, f orders.PaymentFilter) ([]orders.Payment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, 0, m.Err
	}
	var out []orders.Payment
	for _, p := range m.payments {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.UserID != "" && p.UserID != f.UserID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (m *MemStore) SettlePayment(_ context.Context, ref string, to orders.PaymentStatus, payload []byte, at time.Time) (orders.Purchase, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return orders.Purchase{}, false, m.Err
	}
	if !orders.CanTransition(orders.PaymentPending, to) {
		return orders.Purchase{}, false, apperr.ErrIllegalTransition
	}
	pay, ok := m.payments[ref]
	if !ok || pay.Status != orders.PaymentPending {
		return orders.Purchase{}, false, nil
	}
	var settled orders.Purchase
	found := false
	for id, pu := range m.purchases {
		if pu.PaymentReference == ref && pu.PaymentStatus == orders.PaymentPending {
			pu.PaymentStatus = to
			m.purchases[id] = pu
			settled, found = pu, true
		}
	}
	if !found {
		return orders.Purchase{}, false, apperr.ErrStoreUnavailable
	}
	pay.Status = to
	pay.ProviderPayload = append([]byte(nil), payload...)
	pay.UpdatedAt = at
	m.payments[ref] = pay
	return settled, true, nil
}

func (m *MemStore) MarkDelivered(_ context.Context, purchaseID, artifactRef string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	pu, ok := m.purchases[purchaseID]
	if !ok || pu.PaymentStatus != orders.PaymentCompleted || pu.DeliveryStatus == orders.DeliveryDelivered {
		return false, nil
	}
	pu.DeliveryStatus = orders.DeliveryDelivered
	pu.ArtifactRef = artifactRef
	delivered := at
	pu.DeliveredAt = &delivered
	m.purchases[purchaseID] = pu
	return true, nil
}

// Counts reports stored rows, for invariant checks in tests.
func (m *MemStore) Counts() (purchases, payments int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.purchases), len(m.payments)
}
