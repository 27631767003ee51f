package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/notify"
	"github.com/go-chi/chi/v5"
)

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	page, err := a.Notifications.List(r.Context(), userID(r), notify.ListOptions{
		Page:       queryInt(r, "page", 1),
		Limit:      queryInt(r, "limit", 20),
		UnreadOnly: r.URL.Query().Get("unread") == "true",
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) markRead(w http.ResponseWriter, r *http.Request) {
	if err := a.Notifications.MarkRead(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := a.Notifications.MarkAllRead(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (a *API) deleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := a.Notifications.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sendNotificationReq struct {
	Title    string      `json:"title"`
	Message  string      `json:"message"`
	Kind     notify.Kind `json:"kind"`
	UserID   string      `json:"user_id"`
	IsGlobal bool        `json:"is_global"`
}

func (a *API) adminSendNotification(w http.ResponseWriter, r *http.Request) {
	var req sendNotificationReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.IsGlobal && req.UserID != "" {
		writeError(w, r, apperr.ErrInvalidArgument.WithMessage("choose user_id or is_global, not both"))
		return
	}
	res, err := a.Notifications.Send(r.Context(),
		notify.Target{UserID: req.UserID, Global: req.IsGlobal},
		notify.Message{Title: req.Title, Body: req.Message, Kind: req.Kind, CreatedBy: userID(r)})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (a *API) adminListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := a.Notifications.AdminList(r.Context(), notify.AdminFilter{
		UserID:   q.Get("user_id"),
		Kind:     notify.Kind(q.Get("kind")),
		IsGlobal: queryBool(r, "is_global"),
		IsRead:   queryBool(r, "is_read"),
		Page:     queryInt(r, "page", 1),
		Limit:    queryInt(r, "limit", 20),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) adminDeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := a.Notifications.AdminDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
