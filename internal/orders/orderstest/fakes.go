package orderstest

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/audit"
	"github.com/ariefcatur/go-digital-orders/internal/catalog"
)

// Products is a map-backed catalog lookup.
type Products map[string]catalog.Product

func (p Products) Get(_ context.Context, id string) (catalog.Product, error) {
	pr, ok := p[id]
	if !ok {
		return catalog.Product{}, apperr.ErrProductNotFound
	}
	return pr, nil
}

// AuditLog keeps recorded entries in memory.
type AuditLog struct {
	mu      sync.Mutex
	Entries []audit.Entry
}

func (a *AuditLog) Record(_ context.Context, e audit.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Entries = append(a.Entries, e)
}

func (a *AuditLog) Count(action string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.Entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

type Event struct {
	Topic         string
	EventType     string
	CorrelationID string
	Payload       any
}

// Events records emitted lifecycle events.
type Events struct {
	mu     sync.Mutex
	Events []Event
}

func (e *Events) Emit(_ context.Context, topic, eventType, correlationID string, payload any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Events = append(e.Events, Event{Topic: topic, EventType: eventType, CorrelationID: correlationID, Payload: payload})
	return nil
}

func (e *Events) Count(eventType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.Events {
		if ev.EventType == eventType {
			n++
		}
	}
	return n
}

// Owners is an in-memory ownership cache.
type Owners struct {
	mu    sync.Mutex
	owned map[string]bool
}

func (o *Owners) Owned(_ context.Context, userID, productID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.owned[userID+"/"+productID]
}

func (o *Owners) MarkOwned(_ context.Context, userID, productID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.owned == nil {
		o.owned = map[string]bool{}
	}
	o.owned[userID+"/"+productID] = true
}

func (o *Owners) Forget(_ context.Context, userID, productID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.owned, userID+"/"+productID)
}

// Snapshot copies the recorded entries.
func (a *AuditLog) Snapshot() []audit.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]audit.Entry(nil), a.Entries...)
}
