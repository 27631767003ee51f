// Package audit is the append-only record of every lifecycle transition,
// applied or rejected. Operators read it; the engine only writes.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	ActionOrderCreated       = "order_created"
	ActionOrderRejected      = "order_rejected"
	ActionPaymentCompleted   = "payment_completed"
	ActionPaymentFailed      = "payment_failed"
	ActionCallbackReplayed   = "callback_replayed"
	ActionCallbackConflict   = "callback_conflict"
	ActionCallbackUnknown    = "callback_unknown"
	ActionDeliveryCompleted  = "delivery_completed"
	ActionDeliveryDeferred   = "delivery_deferred"
	ActionDeliveryFailed     = "delivery_failed"
	ActionNotificationSent   = "notification_sent"
	ActionNotificationFanout = "notification_fanout_partial"
	ActionSettingChanged     = "setting_changed"
	ActionPublishFailed      = "event_publish_failed"
)

const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeDeferred = "deferred"
	OutcomeFailed   = "failed"
)

type Entry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Outcome   string    `json:"outcome"`
	Actor     string    `json:"actor"`
	Subject   string    `json:"subject"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder never fails the caller: a lost audit row is logged, the transition stands.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Record(ctx context.Context, e Entry) {
	if e.Actor == "" {
		e.Actor = "system"
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO audit_log(action, outcome, actor, subject, detail)
		VALUES ($1, $2, $3, $4, $5)`, e.Action, e.Outcome, e.Actor, e.Subject, e.Detail)
	if err != nil {
		log.Printf("[audit] write %s/%s subject=%s failed: %v", e.Action, e.Outcome, e.Subject, err)
	}
}

// List returns the newest entries for subject, or for everything when subject is empty.
func (r *Repo) List(ctx context.Context, subject string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, action, outcome, actor, subject, detail, created_at
		FROM audit_log
		WHERE $1 = '' OR subject = $1
		ORDER BY id DESC LIMIT $2`, subject, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Action, &e.Outcome, &e.Actor, &e.Subject, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Log writes entries to the process log only. Used when no database is wired.
type Log struct{}

func (Log) Record(_ context.Context, e Entry) {
	log.Printf("[audit] %s %s actor=%s subject=%s %s", e.Action, e.Outcome, e.Actor, e.Subject, e.Detail)
}
