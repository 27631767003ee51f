package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/catalog"
	"github.com/go-chi/chi/v5"
)

func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := a.Catalog.ListActive(r.Context())
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (a *API) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := a.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	if !p.IsActive {
		writeError(w, r, apperr.ErrProductNotFound)
		return
	}
	// answers stay server side
	qs := make([]catalog.Question, len(p.Questions))
	for i, q := range p.Questions {
		qs[i] = catalog.Question{Question: q.Question, Options: q.Options, Correct: catalog.Unanswered}
	}
	p.Questions = qs
	writeJSON(w, http.StatusOK, p)
}

func (a *API) adminListProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := a.Catalog.ListAll(r.Context())
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (a *API) adminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := decode(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	if p.Name == "" || !p.Price.IsPositive() {
		writeError(w, r, apperr.ErrInvalidArgument.WithMessage("name and a positive price are required"))
		return
	}
	created, err := a.Catalog.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) adminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch catalog.Patch
	if err := decode(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	if patch.Price != nil && !patch.Price.IsPositive() {
		writeError(w, r, apperr.ErrInvalidArgument.WithMessage("price must be positive"))
		return
	}
	p, err := a.Catalog.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) adminRemoveProduct(w http.ResponseWriter, r *http.Request) {
	soft, err := a.Catalog.Remove(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deactivated": soft, "deleted": !soft})
}

type autoDeliverBody struct {
	Enabled *bool `json:"enabled"`
}

func (a *API) getAutoDeliver(w http.ResponseWriter, r *http.Request) {
	on, err := a.Settings.AutoDeliver(r.Context())
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, autoDeliverBody{Enabled: &on})
}

func (a *API) setAutoDeliver(w http.ResponseWriter, r *http.Request) {
	var req autoDeliverBody
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Enabled == nil {
		writeError(w, r, apperr.ErrInvalidArgument.WithMessage("enabled is required"))
		return
	}
	if err := a.Settings.SetAutoDeliver(r.Context(), userID(r), *req.Enabled); err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (a *API) adminAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := a.Audit.List(r.Context(), r.URL.Query().Get("subject"), queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
