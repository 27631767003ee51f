package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-digital-orders/internal/apperr"
	"github.com/ariefcatur/go-digital-orders/internal/auth"
)

type principalKey struct{}

// Authenticate requires a bearer token signed with secret and stores its claims.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: "bearer token required"})
				return
			}
			claims, err := auth.ParseValidate(secret, strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: "invalid token"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, claims)))
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c := principal(r); c == nil || !c.IsAdmin() {
			writeError(w, r, apperr.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func principal(r *http.Request) *auth.Claims {
	c, _ := r.Context().Value(principalKey{}).(*auth.Claims)
	return c
}

func userID(r *http.Request) string {
	if c := principal(r); c != nil {
		return c.Sub
	}
	return ""
}
