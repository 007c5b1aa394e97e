package middleware

import (
	"net/http"

	"github.com/sriman99/Evently-Challenge/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identity resolves the caller from the X-User-ID header set by the
// authenticating gateway in front of this service. Authentication itself
// lives outside this service; requests without a parseable user ID are
// rejected before reaching any handler.
func Identity(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("X-User-ID")
			if header == "" {
				utils.ResponseUnauthorized(w, "Missing X-User-ID header")
				return
			}

			userID, err := uuid.Parse(header)
			if err != nil {
				logger.Warn("Rejected request with malformed user ID",
					zap.String("value", header),
					zap.String("path", r.URL.Path),
				)
				utils.ResponseUnauthorized(w, "Invalid user ID")
				return
			}

			ctx := utils.SetUserContext(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
