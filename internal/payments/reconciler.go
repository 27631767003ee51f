package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/audit"
	"github.com/ariefcatur/go-digital-orders/internal/metrics"
	"github.com/ariefcatur/go-digital-orders/internal/notify"
	"github.com/ariefcatur/go-digital-orders/internal/orders"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-digital-orders/internal/payments")

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeSuccess, OutcomeFailure:
		return Outcome(s), nil
	}
	return "", apperr.ErrInvalidOutcome
}

func (o Outcome) target() orders.PaymentStatus {
	if o == OutcomeSuccess {
		return orders.PaymentCompleted
	}
	return orders.PaymentFailed
}

// Deliverer is invoked once per purchase on its first transition to completed.
// It either delivers inline or schedules delivery.
type Deliverer interface {
	AutoDeliver(ctx context.Context, purchaseID string) error
}

type Notifier interface {
	Send(ctx context.Context, target notify.Target, msg notify.Message) (notify.SendResult, error)
}

// OwnershipReleaser drops cached ownership when a failed payment frees the slot.
type OwnershipReleaser interface {
	Forget(ctx context.Context, userID, productID string)
}

type ProductNamer interface {
	ProductName(ctx context.Context, productID string) string
}

// Reconciler applies provider callbacks to Payment and Purchase state.
type Reconciler struct {
	Store    orders.Store
	Delivery Deliverer
	Notifier Notifier
	Names    ProductNamer      // optional, for notification text
	Owners   OwnershipReleaser // optional
	Audit    audit.Recorder
	Events   orders.Emitter // optional
	Metrics  *metrics.Registry
	Timeout  time.Duration
	Now      func() time.Time
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// ReconcileCallback is safe to receive any number of times per reference.
// Replays of the settled outcome return the current state; a different outcome
// for a settled payment is rejected with apperr.ErrConflictingCallback.
func (r *Reconciler) ReconcileCallback(ctx context.Context, ref string, outcome Outcome, payload []byte) (orders.PaymentStatus, error) {
	ctx, span := tracer.Start(ctx, "reconciler.ReconcileCallback")
	defer span.End()
	span.SetAttributes(attribute.String("payment.reference", ref), attribute.String("payment.outcome", string(outcome)))

	if _, err := ParseOutcome(string(outcome)); err != nil {
		r.Metrics.Callback(string(outcome), "invalid")
		return "", err
	}
	if ref == "" {
		return "", apperr.ErrInvalidArgument.WithMessage("payment reference is required")
	}

	sctx, cancel := r.withTimeout(ctx)
	defer cancel()

	pay, err := r.Store.PaymentByReference(sctx, ref)
	if errors.Is(err, apperr.ErrUnknownPayment) {
		r.Metrics.Callback(string(outcome), "unknown")
		r.Audit.Record(ctx, audit.Entry{
			Action:  audit.ActionCallbackUnknown,
			Outcome: audit.OutcomeRejected,
			Actor:   "provider",
			Subject: ref,
			Detail:  "outcome=" + string(outcome),
		})
		return "", err
	}
	if err != nil {
		return "", apperr.Internal(err)
	}

	to := outcome.target()
	if pay.Status.Terminal() {
		return r.settled(ctx, pay, outcome)
	}

	purchase, applied, err := r.Store.SettlePayment(sctx, ref, to, payload, r.now())
	if err != nil {
		return "", apperr.Internal(err)
	}
	if !applied {
		// lost the race to a concurrent callback; judge against what won
		pay, err = r.Store.PaymentByReference(sctx, ref)
		if err != nil {
			return "", apperr.Internal(err)
		}
		return r.settled(ctx, pay, outcome)
	}

	r.Metrics.Callback(string(outcome), "applied")
	r.afterSettle(ctx, purchase, to)
	return to, nil
}

// settled handles a callback for a payment already in a terminal state.
func (r *Reconciler) settled(ctx context.Context, pay orders.Payment, outcome Outcome) (orders.PaymentStatus, error) {
	if pay.Status == outcome.target() {
		r.Metrics.Callback(string(outcome), "replayed")
		r.Audit.Record(ctx, audit.Entry{
			Action:  audit.ActionCallbackReplayed,
			Outcome: audit.OutcomeRejected,
			Actor:   "provider",
			Subject: pay.PaymentReference,
			Detail:  "status=" + string(pay.Status),
		})
		return pay.Status, nil
	}
	r.Metrics.Callback(string(outcome), "conflict")
	log.Printf("[reconcile] conflicting callback ref=%s stored=%s got=%s", pay.PaymentReference, pay.Status, outcome)
	r.Audit.Record(ctx, audit.Entry{
		Action:  audit.ActionCallbackConflict,
		Outcome: audit.OutcomeRejected,
		Actor:   "provider",
		Subject: pay.PaymentReference,
		Detail:  fmt.Sprintf("stored=%s callback=%s", pay.Status, outcome),
	})
	return pay.Status, apperr.ErrConflictingCallback.WithMessage(
		fmt.Sprintf("payment already %s, %s callback ignored", pay.Status, outcome))
}

// afterSettle runs the side effects of a first transition. Failures here are
// logged and audited; the settled payment is never rolled back.
func (r *Reconciler) afterSettle(ctx context.Context, p orders.Purchase, to orders.PaymentStatus) {
	action, eventType, topic := audit.ActionPaymentFailed, orders.EventPaymentFailed, orders.TopicPaymentFailed
	if to == orders.PaymentCompleted {
		action, eventType, topic = audit.ActionPaymentCompleted, orders.EventPaymentSucceeded, orders.TopicPaymentSucceeded
	}
	r.Audit.Record(ctx, audit.Entry{
		Action:  action,
		Outcome: audit.OutcomeApplied,
		Actor:   "provider",
		Subject: p.PaymentReference,
		Detail:  "purchase=" + p.ID,
	})
	if r.Events != nil {
		if err := r.Events.Emit(ctx, topic, eventType, p.ID, orders.PaymentSettledPayload{
			PurchaseID:       p.ID,
			UserID:           p.UserID,
			ProductID:        p.ProductID,
			PaymentReference: p.PaymentReference,
			Status:           to,
			Amount:           p.Amount.StringFixed(2),
		}); err != nil {
			log.Printf("[reconcile] emit %s purchase=%s: %v", eventType, p.ID, err)
		}
	}

	if to == orders.PaymentFailed && r.Owners != nil {
		r.Owners.Forget(ctx, p.UserID, p.ProductID)
	}
	if to == orders.PaymentCompleted && r.Delivery != nil {
		if err := r.Delivery.AutoDeliver(ctx, p.ID); err != nil {
			log.Printf("[reconcile] delivery purchase=%s: %v", p.ID, err)
			r.Audit.Record(ctx, audit.Entry{
				Action:  audit.ActionDeliveryFailed,
				Outcome: audit.OutcomeFailed,
				Actor:   "system",
				Subject: p.ID,
				Detail:  "auto delivery after payment: " + err.Error(),
			})
		}
	}

	if r.Notifier == nil {
		return
	}
	name := p.ProductID
	if r.Names != nil {
		name = r.Names.ProductName(ctx, p.ProductID)
	}
	msg := notify.Message{
		Title:     "Payment failed",
		Body:      fmt.Sprintf("Your payment for %s could not be completed. Please try again.", name),
		Kind:      notify.KindError,
		CreatedBy: notify.SystemSender,
	}
	if to == orders.PaymentCompleted {
		msg = notify.Message{
			Title:     "Payment successful",
			Body:      fmt.Sprintf("Your payment for %s was completed. Your document is being prepared.", name),
			Kind:      notify.KindSuccess,
			CreatedBy: notify.SystemSender,
		}
	}
	if _, err := r.Notifier.Send(ctx, notify.Target{UserID: p.UserID}, msg); err != nil {
		log.Printf("[reconcile] notify user=%s purchase=%s: %v", p.UserID, p.ID, err)
	}
}

func (r *Reconciler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.Timeout)
}
