package api

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/perfumepal/blender/internal/metrics"
	"github.com/perfumepal/blender/internal/middleware"
	"github.com/perfumepal/blender/internal/sentry"
	"github.com/riandyrn/otelchi"
	otelchimetric "github.com/riandyrn/otelchi/metric"
	"go.opentelemetry.io/otel"
)

// NewRouter wires the HTTP surface: middleware, health, frontend and the blend API.
func NewRouter(s *Server) http.Handler {
	serverName := s.cfg.ServiceName + "-server"

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	// Outside recovery so recovered panics are counted with their 500.
	r.Use(metrics.HTTPMiddleware)
	r.Use(sentry.HTTPMiddleware(metrics.PanicRecoveries.Inc))

	r.Use(otelchi.Middleware(serverName,
		otelchi.WithChiRoutes(r),
		otelchi.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	))

	// HTTP metrics
	metricCfg := otelchimetric.NewBaseConfig(serverName, otelchimetric.WithMeterProvider(otel.GetMeterProvider()))
	r.Use(otelchimetric.NewRequestDurationMillis(metricCfg))
	r.Use(otelchimetric.NewRequestInFlight(metricCfg))
	r.Use(otelchimetric.NewResponseSizeBytes(metricCfg))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	}))

	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	if info, err := os.Stat(s.cfg.StaticDir); err == nil && info.IsDir() {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.StaticDir)))
		r.Handle("/static/*", fs)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.cfg.Server.RateLimit, s.cfg.Server.RateLimitBurst))
		r.Post("/api/generate_blends", s.HandleGenerateBlends)
	})

	return r
}
