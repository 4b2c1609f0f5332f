package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/emprendigo/platform/internal/auth"
	"github.com/emprendigo/platform/internal/tenancy"
)

// RequireAuth verifies the Bearer token and stamps the tenant scope onto the
// request context. Everything behind it can assume a tenant is present.
func RequireAuth(signer *auth.TokenSigner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := signer.Verify(strings.TrimSpace(token))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			tenantID, err := uuid.Parse(claims.TenantID)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := tenancy.WithTenantID(r.Context(), tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
