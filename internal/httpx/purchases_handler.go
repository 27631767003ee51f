package httpx

import (
	"net/http"
	"net/url"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/delivery"
	"github.com/ariefcatur/go-digital-orders/internal/orders"
	"github.com/go-chi/chi/v5"
)

type createPurchaseReq struct {
	ProductID string `json:"product_id"`
}

type createPurchaseResp struct {
	orders.Receipt
	PaymentURL string `json:"payment_url,omitempty"`
}

func (a *API) createPurchase(w http.ResponseWriter, r *http.Request) {
	var req createPurchaseReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rc, err := a.Ledger.CreatePurchase(r.Context(), userID(r), req.ProductID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := createPurchaseResp{Receipt: rc}
	if a.PaymentURL != "" {
		resp.PaymentURL = a.PaymentURL + "?ref=" + url.QueryEscape(rc.PaymentReference)
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) listPurchases(w http.ResponseWriter, r *http.Request) {
	ps, err := a.Purchases.PurchasesByUser(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	if ps == nil {
		ps = []orders.Purchase{}
	}
	writeJSON(w, http.StatusOK, ps)
}

// ownPurchase loads a purchase visible to the caller. Other users' purchases
// read as not found.
func (a *API) ownPurchase(r *http.Request) (orders.Purchase, error) {
	pu, err := a.Purchases.PurchaseByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return orders.Purchase{}, apperr.Internal(err)
	}
	if c := principal(r); c == nil || (pu.UserID != c.Sub && !c.IsAdmin()) {
		return orders.Purchase{}, apperr.ErrPurchaseNotFound
	}
	return pu, nil
}

func (a *API) getPurchase(w http.ResponseWriter, r *http.Request) {
	pu, err := a.ownPurchase(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pu)
}

type deliverReq struct {
	Answers []int `json:"answers"`
}

func (a *API) deliverOwn(w http.ResponseWriter, r *http.Request) {
	pu, err := a.ownPurchase(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.deliver(w, r, pu.ID, userID(r))
}

func (a *API) adminDeliver(w http.ResponseWriter, r *http.Request) {
	a.deliver(w, r, chi.URLParam(r, "id"), userID(r))
}

type deliverResp struct {
	delivery.Result
	// AnswersIgnored is set when answers came in for a purchase that was
	// already delivered; the existing artifact is returned unchanged.
	AnswersIgnored bool `json:"answers_ignored,omitempty"`
}

// deliver picks the scored policy when answers are supplied, auto otherwise.
// A purchase is delivered once: with auto-deliver on, the summary usually
// exists by the time a user posts answers, and those answers are not scored.
func (a *API) deliver(w http.ResponseWriter, r *http.Request, purchaseID, actor string) {
	var req deliverReq
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	dr := delivery.Request{Policy: delivery.PolicyAuto, Actor: actor}
	if req.Answers != nil {
		dr.Policy = delivery.PolicyScored
		dr.Answers = req.Answers
	}
	res, err := a.Delivery.Deliver(r.Context(), purchaseID, dr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deliverResp{
		Result:         res,
		AnswersIgnored: res.AlreadyDelivered && dr.Policy == delivery.PolicyScored,
	})
}

func (a *API) downloadArtifact(w http.ResponseWriter, r *http.Request) {
	if _, err := a.ownPurchase(r); err != nil {
		writeError(w, r, err)
		return
	}
	pu, doc, err := a.Delivery.Artifact(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+pu.ArtifactRef+`.txt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
