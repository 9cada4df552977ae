package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/perfumepal/blender/internal/errors"
	"github.com/perfumepal/blender/internal/metrics"
	"golang.org/x/time/rate"
)

// RateLimit rejects requests beyond a global token bucket with 429.
// A non-positive limit disables limiting.
func RateLimit(limit float64, burst int) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := rate.NewLimiter(rate.Limit(limit), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				metrics.RateLimitRejects.Inc()
				requestID, _ := GetRequestID(r.Context())
				slog.WarnContext(r.Context(), "Rate limit exceeded", "request_id", requestID, "path", r.URL.Path)

				appErr := apperrors.NewRateLimitError("Rate limit exceeded", "RATE_LIMIT_EXCEEDED", "Wait a moment before generating more blends.")
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(appErr.StatusCode)
				json.NewEncoder(w).Encode(map[string]string{"detail": appErr.Detail()})
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(int(limit)))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}
