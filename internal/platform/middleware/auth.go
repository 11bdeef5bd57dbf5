package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "badgemint/pkg/domain"
	"badgemint/pkg/requestcontext"
)

// TokenValidator verifies a bearer token and returns the holder identity it
// proves.
type TokenValidator interface {
	ValidateToken(tokenString string) (id.HolderID, error)
}

// RequireAuth validates the Authorization header and stores the proven
// caller in the request context. Routes behind it always observe a non-empty
// caller; the service layer still re-checks claimed-vs-proven identity.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w)
				return
			}

			holder, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, holder)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
