package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("create: %w", ErrDuplicateOrder.WithMessage("user u1 already owns p1"))

	assert.True(t, errors.Is(err, ErrDuplicateOrder))
	assert.False(t, errors.Is(err, ErrProductNotFound))
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestInternalTranslatesForeignErrors(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause)

	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, IsRetryable(err))

	timeout := Internal(context.DeadlineExceeded)
	assert.True(t, errors.Is(timeout, ErrStoreUnavailable))
	assert.Contains(t, timeout.Error(), "timed out")
}

func TestInternalKeepsTaxonomyErrors(t *testing.T) {
	assert.Same(t, ErrUnknownPayment, Internal(ErrUnknownPayment))
	assert.Nil(t, Internal(nil))
}
