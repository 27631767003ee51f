// Package delivery decides whether a paid purchase gets its document, renders
// it, and records the delivery exactly once.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/artifacts"
	"github.com/ariefcatur/go-digital-orders/internal/audit"
	"github.com/ariefcatur/go-digital-orders/internal/catalog"
	"github.com/ariefcatur/go-digital-orders/internal/metrics"
	"github.com/ariefcatur/go-digital-orders/internal/orders"
	"github.com/ariefcatur/go-digital-orders/internal/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/ariefcatur/go-digital-orders/internal/delivery")

type Policy string

const (
	// PolicyAuto is the payment callback path: a summary document, no answers.
	PolicyAuto Policy = "auto"
	// PolicyScored is triggered by a user or operator with an answer set.
	PolicyScored Policy = "scored"
)

type Request struct {
	Policy  Policy
	Answers []int
	Actor   string
}

type Result struct {
	ArtifactRef      string `json:"artifact_ref,omitempty"`
	AlreadyDelivered bool   `json:"already_delivered"`
	Deferred         bool   `json:"deferred"`
}

type Renderer interface {
	Render(ctx context.Context, template string, data render.Data) ([]byte, error)
}

type ArtifactStore interface {
	Put(ctx context.Context, ref string, data []byte) error
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// Locker is a short-lived mutual exclusion per key. ok is false when another
// holder has it.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

type Flags interface {
	AutoDeliver(ctx context.Context) (bool, error)
}

const lockTTL = 30 * time.Second

type Orchestrator struct {
	Store         orders.Store
	Products      orders.ProductLookup
	Renderer      Renderer
	Artifacts     ArtifactStore
	Flags         Flags
	Locks         Locker // optional
	Audit         audit.Recorder
	Events        orders.Emitter // optional
	Metrics       *metrics.Registry
	StoreTimeout  time.Duration
	RenderTimeout time.Duration
	Now           func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// AutoDeliver is the policy gate on the payment path. The auto_deliver flag
// is read fresh; when off the purchase stays pending delivery.
func (o *Orchestrator) AutoDeliver(ctx context.Context, purchaseID string) (Result, error) {
	sctx, cancel := withTimeout(ctx, o.StoreTimeout)
	on, err := o.Flags.AutoDeliver(sctx)
	cancel()
	if err != nil {
		return Result{}, apperr.Internal(err)
	}
	if !on {
		o.Metrics.Delivery(string(PolicyAuto), "deferred")
		o.Audit.Record(ctx, audit.Entry{
			Action:  audit.ActionDeliveryDeferred,
			Outcome: audit.OutcomeDeferred,
			Subject: purchaseID,
			Detail:  "auto_deliver=false",
		})
		return Result{Deferred: true}, nil
	}
	return o.Deliver(ctx, purchaseID, Request{Policy: PolicyAuto})
}

// Deliver produces the document for a completed purchase. A purchase is
// delivered at most once; later calls return the existing artifact ref.
func (o *Orchestrator) Deliver(ctx context.Context, purchaseID string, req Request) (Result, error) {
	ctx, span := tracer.Start(ctx, "delivery.Deliver")
	defer span.End()
	span.SetAttributes(attribute.String("purchase.id", purchaseID), attribute.String("delivery.policy", string(req.Policy)))

	if req.Policy == "" {
		req.Policy = PolicyAuto
	}
	if req.Policy != PolicyAuto && req.Policy != PolicyScored {
		return Result{}, apperr.ErrInvalidArgument.WithMessage("policy must be auto or scored")
	}
	if req.Actor == "" {
		req.Actor = "system"
	}

	pu, err := o.purchase(ctx, purchaseID)
	if err != nil {
		return Result{}, err
	}
	if done, ok := delivered(pu); ok {
		return done, nil
	}
	if pu.PaymentStatus != orders.PaymentCompleted {
		return Result{}, apperr.ErrPaymentNotCompleted
	}

	if o.Locks != nil {
		release, ok, err := o.Locks.Acquire(ctx, purchaseID, lockTTL)
		switch {
		case err != nil:
			// the CAS below still guarantees a single delivery
			log.Printf("[delivery] lock purchase=%s unavailable: %v", purchaseID, err)
		case !ok:
			return Result{}, apperr.ErrDeliveryInProgress
		default:
			defer release()
			// re-check under the lock; the previous holder may have finished
			if pu, err = o.purchase(ctx, purchaseID); err != nil {
				return Result{}, err
			}
			if done, ok := delivered(pu); ok {
				return done, nil
			}
		}
	}

	doc, err := o.render(ctx, pu, req)
	if err != nil {
		o.Metrics.Delivery(string(req.Policy), "failed")
		o.Audit.Record(ctx, audit.Entry{
			Action:  audit.ActionDeliveryFailed,
			Outcome: audit.OutcomeFailed,
			Actor:   req.Actor,
			Subject: purchaseID,
			Detail:  err.Error(),
		})
		return Result{}, err
	}

	ref := artifacts.NewRef()
	sctx, cancel := withTimeout(ctx, o.StoreTimeout)
	defer cancel()
	if err := o.Artifacts.Put(sctx, ref, doc); err != nil {
		return Result{}, apperr.Internal(err)
	}

	at := o.now()
	applied, err := o.Store.MarkDelivered(sctx, purchaseID, ref, at)
	if err != nil {
		o.discard(ctx, ref)
		return Result{}, apperr.Internal(err)
	}
	if !applied {
		o.discard(ctx, ref)
		pu, err = o.purchase(ctx, purchaseID)
		if err != nil {
			return Result{}, err
		}
		if done, ok := delivered(pu); ok {
			return done, nil
		}
		return Result{}, apperr.ErrPaymentNotCompleted
	}

	o.Metrics.Delivery(string(req.Policy), "delivered")
	o.Audit.Record(ctx, audit.Entry{
		Action:  audit.ActionDeliveryCompleted,
		Outcome: audit.OutcomeApplied,
		Actor:   req.Actor,
		Subject: purchaseID,
		Detail:  fmt.Sprintf("policy=%s artifact=%s", req.Policy, ref),
	})
	if o.Events != nil {
		if err := o.Events.Emit(ctx, orders.TopicDeliveryCompleted, orders.EventDeliveryCompleted, purchaseID, orders.DeliveryCompletedPayload{
			PurchaseID:  purchaseID,
			UserID:      pu.UserID,
			ArtifactRef: ref,
			Policy:      string(req.Policy),
			DeliveredAt: at,
		}); err != nil {
			log.Printf("[delivery] emit %s purchase=%s: %v", orders.EventDeliveryCompleted, purchaseID, err)
		}
	}
	return Result{ArtifactRef: ref}, nil
}

// Artifact returns the stored document of a delivered purchase.
func (o *Orchestrator) Artifact(ctx context.Context, purchaseID string) (orders.Purchase, []byte, error) {
	pu, err := o.purchase(ctx, purchaseID)
	if err != nil {
		return orders.Purchase{}, nil, err
	}
	if pu.DeliveryStatus != orders.DeliveryDelivered || pu.ArtifactRef == "" {
		return pu, nil, apperr.ErrArtifactNotFound
	}
	sctx, cancel := withTimeout(ctx, o.StoreTimeout)
	defer cancel()
	b, err := o.Artifacts.Get(sctx, pu.ArtifactRef)
	return pu, b, apperr.Internal(err)
}

func (o *Orchestrator) purchase(ctx context.Context, id string) (orders.Purchase, error) {
	sctx, cancel := withTimeout(ctx, o.StoreTimeout)
	defer cancel()
	pu, err := o.Store.PurchaseByID(sctx, id)
	return pu, apperr.Internal(err)
}

func (o *Orchestrator) render(ctx context.Context, pu orders.Purchase, req Request) ([]byte, error) {
	sctx, cancel := withTimeout(ctx, o.StoreTimeout)
	product, err := o.Products.Get(sctx, pu.ProductID)
	cancel()
	if err != nil {
		return nil, apperr.Internal(err)
	}

	data := render.Data{
		PurchaseID: pu.ID,
		UserID:     pu.UserID,
		Product:    product,
		Amount:     pu.Amount.StringFixed(2),
		IssuedAt:   o.now(),
	}
	tmpl := render.TemplateSummary
	if req.Policy == PolicyScored {
		sc := catalog.Score(product.Questions, req.Answers)
		data.Score = &sc
		tmpl = render.TemplateScored
	}

	rctx, cancel := withTimeout(ctx, o.RenderTimeout)
	defer cancel()
	start := time.Now()
	doc, err := o.Renderer.Render(rctx, tmpl, data)
	o.Metrics.Rendered(time.Since(start))
	if err == nil {
		return doc, nil
	}
	log.Printf("[delivery] render purchase=%s policy=%s: %v", pu.ID, req.Policy, err)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, apperr.ErrRenderFailed.WithMessage("renderer timed out").Wrap(err)
	}
	return nil, apperr.ErrRenderFailed.Wrap(err)
}

func (o *Orchestrator) discard(ctx context.Context, ref string) {
	if err := o.Artifacts.Delete(context.WithoutCancel(ctx), ref); err != nil {
		log.Printf("[delivery] discard orphan artifact %s: %v", ref, err)
	}
}

func delivered(pu orders.Purchase) (Result, bool) {
	if pu.DeliveryStatus == orders.DeliveryDelivered {
		return Result{ArtifactRef: pu.ArtifactRef, AlreadyDelivered: true}, true
	}
	return Result{}, false
}
