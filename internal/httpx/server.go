package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(metrics http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindInvalid:   http.StatusBadRequest,
	apperr.KindNotFound:  http.StatusNotFound,
	apperr.KindConflict:  http.StatusConflict,
	apperr.KindTransient: http.StatusServiceUnavailable,
	apperr.KindInvariant: http.StatusConflict,
	apperr.KindForbidden: http.StatusForbidden,
}

// writeError maps the error taxonomy to a status. Causes stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.ErrStoreUnavailable.Wrap(err)
	}
	code := statusByKind[ae.Kind]
	if code == 0 {
		code = http.StatusInternalServerError
	}
	if code >= 500 {
		log.Printf("[http] %s %s req=%s: %v", r.Method, r.URL.Path, middleware.GetReqID(r.Context()), err)
	}
	if ae.Kind == apperr.KindTransient {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, code, errorBody{Error: ae.Code, Message: ae.Message})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.ErrInvalidArgument.WithMessage("invalid json")
	}
	return nil
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

func queryBool(r *http.Request, key string) *bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return nil
	}
	return &v
}
