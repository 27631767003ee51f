package orders

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const liveOwnerIndex = "ux_purchases_live_owner"

// Repo is the Postgres Store.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

const purchaseColumns = `id, user_id, product_id, payment_status, payment_reference, amount,
	delivery_status, artifact_ref, delivered_at, created_at`

const paymentColumns = `id, user_id, product_id, amount, currency, payment_reference, status,
	provider_payload, created_at, updated_at`

func scanPurchase(row pgx.Row) (Purchase, error) {
	var (
		p   Purchase
		ref *string
	)
	err := row.Scan(&p.ID, &p.UserID, &p.ProductID, &p.PaymentStatus, &p.PaymentReference, &p.Amount,
		&p.DeliveryStatus, &ref, &p.DeliveredAt, &p.CreatedAt)
	if ref != nil {
		p.ArtifactRef = *ref
	}
	return p, err
}

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.UserID, &p.ProductID, &p.Amount, &p.Currency, &p.PaymentReference, &p.Status,
		&p.ProviderPayload, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repo) HasLivePurchase(ctx context.Context, userID, productID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM purchases
		              WHERE user_id=$1 AND product_id=$2 AND payment_status <> 'failed')`,
		userID, productID).Scan(&exists)
	return exists, apperr.Internal(err)
}

// InsertPurchase relies on ux_purchases_live_owner, not on a prior read: of two
// racing transactions exactly one commits, the other gets 23505.
func (r *Repo) InsertPurchase(ctx context.Context, pu Purchase, pay Payment) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Internal(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO purchases(id, user_id, product_id, payment_status, payment_reference, amount, delivery_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pu.ID, pu.UserID, pu.ProductID, pu.PaymentStatus, pu.PaymentReference, pu.Amount, pu.DeliveryStatus, pu.CreatedAt)
	if postgres.IsUniqueViolation(err, liveOwnerIndex) {
		return apperr.ErrDuplicateOrder
	}
	if err != nil {
		return apperr.Internal(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO payments(id, user_id, product_id, amount, currency, payment_reference, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		pay.ID, pay.UserID, pay.ProductID, pay.Amount, pay.Currency, pay.PaymentReference, pay.Status, pay.CreatedAt)
	if err != nil {
		return apperr.Internal(err)
	}
	return apperr.Internal(tx.Commit(ctx))
}

func (r *Repo) PurchaseByID(ctx context.Context, id string) (Purchase, error) {
	p, err := scanPurchase(r.DB.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, apperr.ErrPurchaseNotFound
	}
	return p, apperr.Internal(err)
}

func (r *Repo) PurchaseByReference(ctx context.Context, ref string) (Purchase, error) {
	p, err := scanPurchase(r.DB.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE payment_reference=$1`, ref))
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, apperr.ErrPurchaseNotFound
	}
	return p, apperr.Internal(err)
}

func (r *Repo) PaymentByReference(ctx context.Context, ref string) (Payment, error) {
	p, err := scanPayment(r.DB.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE payment_reference=$1`, ref))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, apperr.ErrUnknownPayment
	}
	return p, apperr.Internal(err)
}

func (r *Repo) PurchasesByUser(ctx context.Context, userID string) ([]Purchase, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var out []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		out = append(out, p)
	}
	return out, apperr.Internal(rows.Err())
}

func (r *Repo) ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, int, error) {
	where := `WHERE 1=1`
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		where += ` AND status = $` + strconv.Itoa(len(args))
	}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where += ` AND user_id = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM payments `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Internal(err)
	}

	limit, offset := pageBounds(f.Page, f.Limit)
	args = append(args, limit, offset)
	rows, err := r.DB.Query(ctx, `SELECT `+paymentColumns+` FROM payments `+where+
		` ORDER BY created_at DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, apperr.Internal(err)
		}
		out = append(out, p)
	}
	return out, total, apperr.Internal(rows.Err())
}

// SettlePayment is a compare-and-set on status='pending'. Both rows move in one
// transaction so readers never see a completed payment with a pending purchase.
func (r *Repo) SettlePayment(ctx context.Context, ref string, to PaymentStatus, payload []byte, at time.Time) (Purchase, bool, error) {
	if !CanTransition(PaymentPending, to) {
		return Purchase{}, false, apperr.ErrIllegalTransition
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Purchase{}, false, apperr.Internal(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE payments SET status=$2, provider_payload=$3, updated_at=$4
		WHERE payment_reference=$1 AND status='pending'`, ref, to, payload, at)
	if err != nil {
		return Purchase{}, false, apperr.Internal(err)
	}
	if ct.RowsAffected() != 1 {
		return Purchase{}, false, nil
	}
	pu, err := scanPurchase(tx.QueryRow(ctx, `
		UPDATE purchases SET payment_status=$2
		WHERE payment_reference=$1 AND payment_status='pending'
		RETURNING `+purchaseColumns, ref, to))
	if err != nil {
		// a pending payment without its pending purchase; keep both rows as they were
		return Purchase{}, false, apperr.Internal(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Purchase{}, false, apperr.Internal(err)
	}
	return pu, true, nil
}

func (r *Repo) MarkDelivered(ctx context.Context, purchaseID, artifactRef string, at time.Time) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE purchases SET delivery_status='delivered', artifact_ref=$2, delivered_at=$3
		WHERE id=$1 AND payment_status='completed' AND delivery_status <> 'delivered'`,
		purchaseID, artifactRef, at)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return ct.RowsAffected() == 1, nil
}

func pageBounds(page, limit int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}
