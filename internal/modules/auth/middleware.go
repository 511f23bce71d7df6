package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/georgemunganga/printnow-backend/internal/pkg/apperr"
	"github.com/georgemunganga/printnow-backend/internal/pkg/principal"
)

// CookieName is the cookie the web client stores the access token in.
const CookieName = "auth"

// Authenticate resolves the bearer token (or auth cookie) into a principal on
// the request context and rejects the request when there is none.
func Authenticate(svc Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				deny(w, apperr.Unauthorizedf("authentication required"))
				return
			}
			p, err := svc.Verify(raw)
			if err != nil {
				deny(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(principal.WithContext(r.Context(), p)))
		})
	}
}

// RequireStaff admits authenticated principals whose email is on the staff list.
// It must run after Authenticate.
func RequireStaff(emails []string) func(http.Handler) http.Handler {
	staff := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		staff[strings.ToLower(e)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principal.FromContext(r.Context())
			if !ok {
				deny(w, apperr.Unauthorizedf("authentication required"))
				return
			}
			if _, ok := staff[strings.ToLower(p.Email)]; !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(map[string]string{"error": "staff only", "code": "FORBIDDEN"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func deny(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(err))
	json.NewEncoder(w).Encode(apperr.Body(err))
}
