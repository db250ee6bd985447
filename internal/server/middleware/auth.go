package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/stackmint/keysmith/internal/service"
)

type contextKeyAuth string

// AdminIDKey is the context key for the authenticated admin's ID.
const AdminIDKey contextKeyAuth = "admin_id"

// RequireAdmin gates privileged routes on a live admin session. The session
// token is read from the Authorization header (Bearer scheme). On failure the
// request is denied with a 401 JSON error; handlers behind this middleware
// can assume an authenticated admin.
func RequireAdmin(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeAuthError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			adminID, err := authSvc.RequireAuthenticated(r.Context(), token)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "Invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), AdminIDKey, adminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminID extracts the authenticated admin's ID from the context. Returns
// 0 for unauthenticated requests.
func GetAdminID(ctx context.Context) int64 {
	if id, ok := ctx.Value(AdminIDKey).(int64); ok {
		return id
	}
	return 0
}

// bearerToken returns the Authorization header's Bearer payload, or "".
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Manually construct JSON to avoid an import cycle with the handler package.
	w.Write([]byte(`{"error":{"code":` + strconv.Itoa(status) + `,"message":"` + message + `"}}`))
}
