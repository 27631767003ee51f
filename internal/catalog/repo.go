package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const productColumns = `id, name, description, price, questions, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p  Product
		qs []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &qs, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	if len(qs) > 0 {
		if err := json.Unmarshal(qs, &p.Questions); err != nil {
			return Product{}, err
		}
	}
	return p, nil
}

// Get returns the product regardless of its active flag.
func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.ErrProductNotFound
	}
	return p, apperr.Internal(err)
}

func (r *Repo) ListActive(ctx context.Context) ([]Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products WHERE is_active ORDER BY created_at DESC`)
}

func (r *Repo) ListAll(ctx context.Context) ([]Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
}

func (r *Repo) list(ctx context.Context, q string) ([]Product, error) {
	rows, err := r.DB.Query(ctx, q)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		out = append(out, p)
	}
	return out, apperr.Internal(rows.Err())
}

func (r *Repo) Create(ctx context.Context, p Product) (Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Questions == nil {
		p.Questions = []Question{}
	}
	qs, err := json.Marshal(p.Questions)
	if err != nil {
		return Product{}, apperr.ErrInvalidArgument.Wrap(err)
	}
	row := r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, price, questions, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.Price, string(qs), p.IsActive)
	created, err := scanProduct(row)
	return created, apperr.Internal(err)
}

// Update applies patch. Existing purchases keep the amount they were created
// with; price edits only affect future orders.
func (r *Repo) Update(ctx context.Context, id string, patch Patch) (Product, error) {
	sets := []string{}
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Questions != nil {
		qs, err := json.Marshal(patch.Questions)
		if err != nil {
			return Product{}, apperr.ErrInvalidArgument.Wrap(err)
		}
		add("questions", string(qs))
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	sets = append(sets, "updated_at = now()")

	p, err := scanProduct(r.DB.QueryRow(ctx,
		`UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id=$1 RETURNING `+productColumns, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.ErrProductNotFound
	}
	return p, apperr.Internal(err)
}

// Remove hard-deletes a product nobody bought; purchased products are only
// deactivated. Reports whether the row was kept.
func (r *Repo) Remove(ctx context.Context, id string) (softDeleted bool, err error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, apperr.Internal(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var n int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM purchases WHERE product_id=$1`, id).Scan(&n); err != nil {
		return false, apperr.Internal(err)
	}

	q := `DELETE FROM products WHERE id=$1`
	if n > 0 {
		q = `UPDATE products SET is_active=FALSE, updated_at=now() WHERE id=$1`
	}
	ct, err := tx.Exec(ctx, q, id)
	if err != nil {
		return false, apperr.Internal(err)
	}
	if ct.RowsAffected() == 0 {
		return false, apperr.ErrProductNotFound
	}
	return n > 0, apperr.Internal(tx.Commit(ctx))
}
