package router

import (
	"net/http"
	"strings"

	"github.com/convodesk/platform/internal/tenancy"
)

// BusinessHeader carries the tenant on channel-facing routes.
const BusinessHeader = "X-Business-Id"

// RequireBusinessHeader rejects requests without a tenant header and puts
// the business ID into the request context for everything downstream.
func RequireBusinessHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		businessID := strings.TrimSpace(r.Header.Get(BusinessHeader))
		if businessID == "" {
			http.Error(w, "X-Business-Id header is required", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(tenancy.WithBusinessID(r.Context(), businessID)))
	})
}
