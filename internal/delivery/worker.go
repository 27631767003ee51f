package delivery

import (
	"context"
	"encoding/json"
	"log"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	kafkax "github.com/ariefcatur/go-digital-orders/internal/kafka"
	"github.com/ariefcatur/go-digital-orders/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
)

// Deduper remembers processed event ids.
type Deduper interface {
	Seen(ctx context.Context, service, eventID string) bool
	Mark(ctx context.Context, service, eventID string)
}

// Worker consumes delivery.requested events.
type Worker struct {
	Orchestrator *Orchestrator
	Dedup        Deduper // optional
	ServiceName  string
}

// HandleDeliveryRequested returns nil only when the offset may be committed.
// Transient failures are returned so the message is not committed.
func (w *Worker) HandleDeliveryRequested(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		log.Printf("[delivery-worker] drop undecodable message offset=%d: %v", m.Offset, err)
		return nil
	}
	if env.EventType != orders.EventDeliveryRequested {
		return nil
	}
	if w.Dedup != nil && w.Dedup.Seen(ctx, w.ServiceName, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.DeliveryRequestedPayload](env.Payload)
	if err != nil {
		log.Printf("[delivery-worker] drop event=%s: %v", env.EventID, err)
		return nil
	}

	var res Result
	if p.Policy == "" {
		res, err = w.Orchestrator.AutoDeliver(ctx, p.PurchaseID)
	} else {
		res, err = w.Orchestrator.Deliver(ctx, p.PurchaseID, Request{Policy: Policy(p.Policy), Answers: p.Answers, Actor: p.Actor})
	}
	if err != nil {
		if apperr.IsRetryable(err) {
			return err
		}
		log.Printf("[delivery-worker] purchase=%s not deliverable: %v", p.PurchaseID, err)
	} else {
		log.Printf("[delivery-worker] purchase=%s ref=%s deferred=%t", p.PurchaseID, res.ArtifactRef, res.Deferred)
	}
	if w.Dedup != nil {
		w.Dedup.Mark(ctx, w.ServiceName, env.EventID)
	}
	return nil
}
