package delivery

import (
	"context"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/orders"
)

// Scheduler is what the payment path calls once a purchase completes. Inline
// delivers in the caller's goroutine; otherwise a delivery.requested event is
// published for the delivery worker.
type Scheduler struct {
	Orchestrator *Orchestrator
	Events       orders.Emitter
	Async        bool
}

func (s *Scheduler) AutoDeliver(ctx context.Context, purchaseID string) error {
	if s.Async {
		return s.Events.Emit(ctx, orders.TopicDeliveryRequested, orders.EventDeliveryRequested, purchaseID,
			orders.DeliveryRequestedPayload{PurchaseID: purchaseID})
	}
	_, err := s.Orchestrator.AutoDeliver(ctx, purchaseID)
	return err
}

// Enqueue hands an explicit delivery to the worker. Used by processes that do
// not own the artifact store.
func (s *Scheduler) Enqueue(ctx context.Context, purchaseID string, req Request) error {
	if req.Policy != PolicyAuto && req.Policy != PolicyScored {
		return apperr.ErrInvalidArgument.WithMessage("policy must be auto or scored")
	}
	return s.Events.Emit(ctx, orders.TopicDeliveryRequested, orders.EventDeliveryRequested, purchaseID,
		orders.DeliveryRequestedPayload{
			PurchaseID: purchaseID,
			Policy:     string(req.Policy),
			Answers:    req.Answers,
			Actor:      req.Actor,
		})
}
