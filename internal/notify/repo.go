package notify

import (
	"context"
	"strconv"
	"time"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

const columns = `id, user_id, title, message, kind, is_global, is_read, created_by, created_at, read_at`

func scan(row pgx.Row) (Notification, error) {
	var (
		n   Notification
		uid *string
	)
	err := row.Scan(&n.ID, &uid, &n.Title, &n.Message, &n.Kind, &n.IsGlobal, &n.IsRead, &n.CreatedBy, &n.CreatedAt, &n.ReadAt)
	if uid != nil {
		n.UserID = *uid
	}
	return n, err
}

func (r *Repo) Insert(ctx context.Context, n Notification) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO notifications(id, user_id, title, message, kind, is_global, created_by, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)`,
		n.ID, n.UserID, n.Title, n.Message, n.Kind, n.IsGlobal, n.CreatedBy, n.CreatedAt)
	return apperr.Internal(err)
}

func (r *Repo) ListForUser(ctx context.Context, userID string, opt ListOptions) (Page, error) {
	var p Page
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT is_read)
		FROM notifications WHERE user_id=$1`, userID).Scan(&p.Total, &p.Unread)
	if err != nil {
		return Page{}, apperr.Internal(err)
	}
	if opt.UnreadOnly {
		p.Total = p.Unread
	}

	limit, offset := pageBounds(opt.Page, opt.Limit)
	rows, err := r.DB.Query(ctx, `SELECT `+columns+` FROM notifications
		WHERE user_id=$1 AND (NOT $2 OR NOT is_read)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`, userID, opt.UnreadOnly, limit, offset)
	if err != nil {
		return Page{}, apperr.Internal(err)
	}
	p.Items, err = collect(rows)
	return p, err
}

func (r *Repo) MarkRead(ctx context.Context, userID, id string, at time.Time) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE notifications SET is_read=TRUE, read_at=COALESCE(read_at, $3)
		WHERE id=$1 AND user_id=$2`, id, userID, at)
	if err != nil {
		return apperr.Internal(err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrNotificationNotFound
	}
	return nil
}

func (r *Repo) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE notifications SET is_read=TRUE, read_at=$2
		WHERE user_id=$1 AND NOT is_read`, userID, at)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return int(ct.RowsAffected()), nil
}

func (r *Repo) Delete(ctx context.Context, userID, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM notifications WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrNotificationNotFound
	}
	return nil
}

func (r *Repo) AdminList(ctx context.Context, f AdminFilter) (Page, error) {
	where := `WHERE 1=1`
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		where += ` AND ` + cond + `$` + strconv.Itoa(len(args))
	}
	if f.UserID != "" {
		add(`user_id = `, f.UserID)
	}
	if f.Kind != "" {
		add(`kind = `, f.Kind)
	}
	if f.IsGlobal != nil {
		add(`is_global = `, *f.IsGlobal)
	}
	if f.IsRead != nil {
		add(`is_read = `, *f.IsRead)
	}

	var p Page
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT is_read) FROM notifications `+where, args...).
		Scan(&p.Total, &p.Unread)
	if err != nil {
		return Page{}, apperr.Internal(err)
	}

	limit, offset := pageBounds(f.Page, f.Limit)
	args = append(args, limit, offset)
	rows, err := r.DB.Query(ctx, `SELECT `+columns+` FROM notifications `+where+
		` ORDER BY created_at DESC LIMIT $`+strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return Page{}, apperr.Internal(err)
	}
	p.Items, err = collect(rows)
	return p, err
}

func (r *Repo) AdminDelete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM notifications WHERE id=$1`, id)
	if err != nil {
		return apperr.Internal(err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.ErrNotificationNotFound
	}
	return nil
}

func collect(rows pgx.Rows) ([]Notification, error) {
	defer rows.Close()
	out := []Notification{}
	for rows.Next() {
		n, err := scan(rows)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		out = append(out, n)
	}
	return out, apperr.Internal(rows.Err())
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
