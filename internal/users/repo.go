package users

import (
	"context"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo reads the user table owned by the access gateway.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) ActiveUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT id FROM users WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Internal(err)
		}
		ids = append(ids, id)
	}
	return ids, apperr.Internal(rows.Err())
}
