package middleware

import (
	"net/http"
	"strings"

	"github.com/printmitra/printmitra-backend/pkg/logger"
)

const (
	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
	vendorIDHeader  = "X-Vendor-Id"
)

// ActorContext lifts the authenticated identity headers set by the edge proxy
// into the request context. The API itself does not verify credentials;
// that happens upstream.
func ActorContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if userID := strings.TrimSpace(r.Header.Get(actorIDHeader)); userID != "" {
				ctx = WithUserID(ctx, userID)
			}
			if role := strings.TrimSpace(r.Header.Get(actorRoleHeader)); role != "" {
				ctx = WithRole(ctx, role)
			}
			if vendorID := strings.TrimSpace(r.Header.Get(vendorIDHeader)); vendorID != "" {
				ctx = WithVendorID(ctx, vendorID)
				if logg != nil {
					ctx = logg.WithVendorID(ctx, vendorID)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
