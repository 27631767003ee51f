// Package artifacts stores rendered documents by artifact reference.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
)

const refPrefix = "art_"

func NewRef() string { return refPrefix + uuid.NewString() }

// PebbleStore keeps artifact bytes in a local Pebble database.
type PebbleStore struct {
	db *pebble.DB
}

func Open(dir string) (*PebbleStore, error) {
	d, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: d}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

// Put is synced: a ref handed to the purchase row must survive a crash.
func (p *PebbleStore) Put(_ context.Context, ref string, data []byte) error {
	if !strings.HasPrefix(ref, refPrefix) {
		return apperr.ErrInvalidArgument.WithMessage("malformed artifact ref")
	}
	if err := p.db.Set([]byte(ref), data, pebble.Sync); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (p *PebbleStore) Get(_ context.Context, ref string) ([]byte, error) {
	v, closer, err := p.db.Get([]byte(ref))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, apperr.ErrArtifactNotFound
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

func (p *PebbleStore) Delete(_ context.Context, ref string) error {
	if err := p.db.Delete([]byte(ref), pebble.NoSync); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
