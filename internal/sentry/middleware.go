package sentry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
)

// HTTPMiddleware recovers panics in HTTP handlers, reports them to Sentry and
// answers with a generic 500 body. onPanic, when set, runs after reporting.
func HTTPMiddleware(onPanic func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hub := sentry.GetHubFromContext(r.Context())
			if hub == nil {
				hub = sentry.CurrentHub().Clone()
			}
			hub.Scope().SetRequest(r)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			ctx := sentry.SetHubOnContext(r.Context(), hub)

			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					hub.Recover(err)
					if onPanic != nil {
						onPanic()
					}
					slog.Error("Unhandled panic",
						"error", fmt.Sprint(err),
						"method", r.Method,
						"path", r.URL.Path,
					)
					if !wrapped.wroteHeader {
						wrapped.Header().Set("Content-Type", "application/json")
						wrapped.WriteHeader(http.StatusInternalServerError)
						json.NewEncoder(wrapped).Encode(map[string]string{"detail": "Internal server error"})
					}
				}
			}()

			next.ServeHTTP(wrapped, r.WithContext(ctx))
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.statusCode = statusCode
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
