package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ammadakrram/storefront-search/pkg/logger"
)

// ServiceToken guards internal endpoints with a shared bearer token. The
// calling service may identify itself with X-Service-Name; it is recorded
// as the request's caller for logging. An empty token disables the check.
func ServiceToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" {
				presented, ok := bearer(r.Header.Get("Authorization"))
				if !ok {
					writeUnauthorized(w, "missing or malformed authorization header")
					return
				}
				if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
					writeUnauthorized(w, "invalid service token")
					return
				}
			}

			ctx := r.Context()
			if caller := r.Header.Get("X-Service-Name"); caller != "" {
				ctx = logger.WithCaller(ctx, caller)
				ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("caller", caller)))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(header string) (string, bool) {
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || value == "" {
		return "", false
	}
	return value, true
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": "UNAUTHORIZED", "message": message},
	})
}
