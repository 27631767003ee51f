package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/audit"
	"github.com/ariefcatur/go-digital-orders/internal/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 16

// Dispatcher writes notifications and manages their read state.
type Dispatcher struct {
	Store       Store
	Users       Directory
	Audit       audit.Recorder
	Metrics     *metrics.Registry
	Concurrency int // parallel inserts during a global send
	Timeout     time.Duration
	Now         func() time.Time
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

func (d *Dispatcher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.Timeout)
}

// Send writes one row for a targeted message, or one row per active user for a
// global one. Global rows are independent: a failed insert is counted in
// SendResult.Failed and the others stand.
func (d *Dispatcher) Send(ctx context.Context, t Target, m Message) (SendResult, error) {
	if m.Title == "" || m.Body == "" {
		return SendResult{}, apperr.ErrInvalidArgument.WithMessage("title and message are required")
	}
	if m.Kind == "" {
		m.Kind = KindInfo
	}
	if !m.Kind.Valid() {
		return SendResult{}, apperr.ErrInvalidArgument.WithMessage("kind must be one of info, success, warning, error")
	}
	if m.CreatedBy == "" {
		m.CreatedBy = SystemSender
	}

	if !t.Global {
		if t.UserID == "" {
			return SendResult{}, apperr.ErrInvalidArgument.WithMessage("user or global target is required")
		}
		n := d.build(t.UserID, false, m)
		sctx, cancel := d.withTimeout(ctx)
		defer cancel()
		if err := d.Store.Insert(sctx, n); err != nil {
			d.Metrics.Notifications(0, 1)
			return SendResult{Failed: 1}, apperr.Internal(err)
		}
		d.Metrics.Notifications(1, 0)
		return SendResult{IDs: []string{n.ID}}, nil
	}

	lctx, cancel := d.withTimeout(ctx)
	users, err := d.Users.ActiveUserIDs(lctx)
	cancel()
	if err != nil {
		return SendResult{}, apperr.Internal(err)
	}

	var (
		mu  sync.Mutex
		res = SendResult{IDs: make([]string, 0, len(users))}
	)
	limit := d.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(limit)
	for _, uid := range users {
		n := d.build(uid, true, m)
		g.Go(func() error {
			ictx, cancel := d.withTimeout(gctx)
			defer cancel()
			err := d.Store.Insert(ictx, n)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[notify] global insert user=%s: %v", n.UserID, err)
				res.Failed++
				return nil
			}
			res.IDs = append(res.IDs, n.ID)
			return nil
		})
	}
	_ = g.Wait()

	d.Metrics.Notifications(len(res.IDs), res.Failed)
	d.Audit.Record(ctx, audit.Entry{
		Action:  audit.ActionNotificationSent,
		Outcome: audit.OutcomeApplied,
		Actor:   m.CreatedBy,
		Subject: "global",
		Detail:  fmt.Sprintf("title=%q recipients=%d", m.Title, len(res.IDs)),
	})
	if res.Failed > 0 {
		log.Printf("[notify] global send %q: %d of %d failed", m.Title, res.Failed, len(users))
		d.Audit.Record(ctx, audit.Entry{
			Action:  audit.ActionNotificationFanout,
			Outcome: audit.OutcomeFailed,
			Actor:   m.CreatedBy,
			Subject: "global",
			Detail:  fmt.Sprintf("title=%q failed=%d of=%d", m.Title, res.Failed, len(users)),
		})
	}
	return res, nil
}

func (d *Dispatcher) build(userID string, global bool, m Message) Notification {
	return Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     m.Title,
		Message:   m.Body,
		Kind:      m.Kind,
		IsGlobal:  global,
		CreatedBy: m.CreatedBy,
		CreatedAt: d.now(),
	}
}

func (d *Dispatcher) List(ctx context.Context, userID string, opt ListOptions) (Page, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	p, err := d.Store.ListForUser(ctx, userID, opt)
	return p, apperr.Internal(err)
}

func (d *Dispatcher) MarkRead(ctx context.Context, userID, id string) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return apperr.Internal(d.Store.MarkRead(ctx, userID, id, d.now()))
}

func (d *Dispatcher) MarkAllRead(ctx context.Context, userID string) (int, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	n, err := d.Store.MarkAllRead(ctx, userID, d.now())
	return n, apperr.Internal(err)
}

func (d *Dispatcher) Delete(ctx context.Context, userID, id string) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return apperr.Internal(d.Store.Delete(ctx, userID, id))
}

func (d *Dispatcher) AdminList(ctx context.Context, f AdminFilter) (Page, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	p, err := d.Store.AdminList(ctx, f)
	return p, apperr.Internal(err)
}

func (d *Dispatcher) AdminDelete(ctx context.Context, id string) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return apperr.Internal(d.Store.AdminDelete(ctx, id))
}
