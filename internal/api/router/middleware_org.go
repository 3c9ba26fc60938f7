package router

import (
	"net/http"
	"strings"

	"github.com/medassist-ai/intake-platform/internal/tenancy"
)

const orgHeader = "X-Org-Id"

// resolveOrgID middleware attaches the tenant org id to the request context.
// Requests without an X-Org-Id header fall back to the configured default;
// with no default either, the request is rejected.
func resolveOrgID(defaultOrg string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID := strings.TrimSpace(r.Header.Get(orgHeader))
			if orgID == "" {
				orgID = defaultOrg
			}
			if orgID == "" {
				http.Error(w, "missing X-Org-Id", http.StatusBadRequest)
				return
			}
			ctx := tenancy.WithOrgID(r.Context(), orgID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
