package middleware

import (
	"net/http"

	"github.com/baharkarakas/hodl-ledger/internal/api/httpx"
)

// RequireRole wraps a handler and allows only the given role. It must run
// after Auth.
func RequireRole(need string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing credentials", nil)
				return
			}
			if claims.Role != need {
				httpx.WriteError(w, http.StatusForbidden, "forbidden", "role "+need+" required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
