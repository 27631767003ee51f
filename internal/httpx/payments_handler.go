package httpx

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/orders"
	"github.com/ariefcatur/go-digital-orders/internal/payments"
	"github.com/ariefcatur/go-digital-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
)

const maxCallbackBody = 64 << 10

type callbackReq struct {
	PaymentReference string `json:"payment_reference"`
	Status           string `json:"status"`
	TransactionID    string `json:"transaction_id"`
}

type paymentStatusResp struct {
	PaymentReference string               `json:"payment_reference"`
	Status           orders.PaymentStatus `json:"status"`
}

// paymentCallback is the provider webhook. The raw body is kept as the
// provider payload.
func (a *API) paymentCallback(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		writeError(w, r, apperr.ErrInvalidArgument.WithMessage("unreadable body"))
		return
	}
	var req callbackReq
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, apperr.ErrInvalidArgument.WithMessage("invalid json"))
		return
	}
	outcome, err := payments.ParseOutcome(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := a.Reconciler.ReconcileCallback(r.Context(), req.PaymentReference, outcome, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentStatusResp{PaymentReference: req.PaymentReference, Status: st})
}

func (a *API) paymentStatus(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	uid := userID(r)
	admin := principal(r).IsAdmin()

	// 1) cache, terminal states only
	if a.StatusCache != nil {
		if ps, ok := a.StatusCache.Get(r.Context(), ref); ok && (ps.UserID == uid || admin) {
			writeJSON(w, http.StatusOK, paymentStatusResp{PaymentReference: ref, Status: orders.PaymentStatus(ps.Status)})
			return
		}
	}

	// 2) fallback store
	pay, err := a.Purchases.PaymentByReference(r.Context(), ref)
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	if pay.UserID != uid && !admin {
		writeError(w, r, apperr.ErrUnknownPayment)
		return
	}
	if a.StatusCache != nil && pay.Status.Terminal() {
		a.StatusCache.Put(r.Context(), redisx.PaymentStatus{
			Reference: ref, UserID: pay.UserID, Status: string(pay.Status), UpdatedAt: pay.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, paymentStatusResp{PaymentReference: ref, Status: pay.Status})
}

func (a *API) adminListPayments(w http.ResponseWriter, r *http.Request) {
	f := orders.PaymentFilter{
		Status: orders.PaymentStatus(r.URL.Query().Get("status")),
		UserID: r.URL.Query().Get("user_id"),
		Page:   queryInt(r, "page", 1),
		Limit:  queryInt(r, "limit", 20),
	}
	if f.Status != "" && !f.Status.Valid() {
		writeError(w, r, apperr.ErrInvalidArgument.WithMessage("unknown payment status"))
		return
	}
	items, total, err := a.Purchases.ListPayments(r.Context(), f)
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	if items == nil {
		items = []orders.Payment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "page": f.Page})
}
