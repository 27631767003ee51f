// Package settings holds operator-editable runtime flags.
package settings

import (
	"context"
	"errors"
	"strconv"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/audit"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const KeyAutoDeliver = "auto_deliver"

type Repo struct {
	DB    *pgxpool.Pool
	Audit audit.Recorder // optional
}

func (r *Repo) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.DB.QueryRow(ctx, `SELECT value FROM settings WHERE key=$1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Internal(err)
	}
	return v, true, nil
}

func (r *Repo) Set(ctx context.Context, key, value string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO settings(key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()`, key, value)
	return apperr.Internal(err)
}

// AutoDeliver is read on every call, so a toggle applies to the next
// completed payment. A missing row means enabled.
func (r *Repo) AutoDeliver(ctx context.Context) (bool, error) {
	v, ok, err := r.Get(ctx, KeyAutoDeliver)
	if err != nil || !ok {
		return true, err
	}
	return ParseBool(v), nil
}

func (r *Repo) SetAutoDeliver(ctx context.Context, actor string, on bool) error {
	if err := r.Set(ctx, KeyAutoDeliver, strconv.FormatBool(on)); err != nil {
		return err
	}
	if r.Audit != nil {
		r.Audit.Record(ctx, audit.Entry{
			Action:  audit.ActionSettingChanged,
			Outcome: audit.OutcomeApplied,
			Actor:   actor,
			Subject: KeyAutoDeliver,
			Detail:  "value=" + strconv.FormatBool(on),
		})
	}
	return nil
}

// ParseBool accepts the spellings operators actually type.
func ParseBool(v string) bool {
	switch v {
	case "true", "1", "on", "yes", "TRUE", "True":
		return true
	}
	return false
}
