// Package apperr defines the error taxonomy shared by the lifecycle engine.
//
// Every error that crosses a component boundary is an *Error carrying a stable
// Kind and Code. Callers branch with errors.Is against the exported sentinels,
// which match on Code only, so wrapped and re-messaged copies still compare equal.
package apperr

import (
	"context"
	"errors"
)

type Kind string

const (
	KindInvalid   Kind = "invalid"
	KindNotFound  Kind = "not_found"
	KindConflict  Kind = "conflict"
	KindTransient Kind = "transient"
	KindInvariant Kind = "invariant_violation"
	KindForbidden Kind = "forbidden"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

// WithMessage returns a copy of e with a caller-specific message.
func (e *Error) WithMessage(msg string) *Error {
	c := *e
	c.Message = msg
	return &c
}

var (
	ErrInvalidArgument      = New(KindInvalid, "invalid_argument", "request is invalid")
	ErrInvalidOutcome       = New(KindInvalid, "invalid_outcome", "callback outcome must be success or failure")
	ErrProductNotFound      = New(KindNotFound, "product_not_found", "product does not exist")
	ErrProductInactive      = New(KindNotFound, "product_inactive", "product is not available for purchase")
	ErrPurchaseNotFound     = New(KindNotFound, "purchase_not_found", "purchase does not exist")
	ErrUnknownPayment       = New(KindNotFound, "unknown_payment", "no payment exists for this reference")
	ErrNotificationNotFound = New(KindNotFound, "notification_not_found", "notification does not exist")
	ErrArtifactNotFound     = New(KindNotFound, "artifact_not_found", "artifact does not exist")
	ErrDuplicateOrder       = New(KindConflict, "duplicate_order", "product already purchased")
	ErrConflictingCallback  = New(KindConflict, "conflicting_callback", "payment already settled with a different outcome")
	ErrPaymentNotCompleted  = New(KindConflict, "payment_not_completed", "payment has not completed")
	ErrIllegalTransition    = New(KindInvariant, "illegal_transition", "state transition is not permitted")
	ErrDeliveryInProgress   = New(KindTransient, "delivery_in_progress", "delivery is already running, retry later")
	ErrRenderFailed         = New(KindTransient, "render_failed", "document could not be rendered, retry later")
	ErrStoreUnavailable     = New(KindTransient, "store_unavailable", "storage is temporarily unavailable")
	ErrForbidden            = New(KindForbidden, "forbidden", "not allowed")
)

// KindOf reports the kind of err. Errors outside the taxonomy are transient.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// Internal translates a collaborator failure into the taxonomy. Errors that
// already carry a kind pass through untouched.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrStoreUnavailable.WithMessage("storage call timed out").Wrap(err)
	}
	return ErrStoreUnavailable.Wrap(err)
}

func IsRetryable(err error) bool { return KindOf(err) == KindTransient }
