package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/perfumepal/blender/internal/config"
	apperrors "github.com/perfumepal/blender/internal/errors"
	"github.com/perfumepal/blender/internal/logger"
	"github.com/perfumepal/blender/internal/middleware"
	"github.com/perfumepal/blender/internal/sentry"
	"github.com/perfumepal/blender/internal/services/blend"
	"github.com/perfumepal/blender/internal/validation"
)

const (
	// maxBodyBytes caps the generate_blends request body.
	maxBodyBytes = 64 << 10

	// APIVersion is the version /health reports, independent of SERVICE_VERSION.
	APIVersion = "1.0.0"
)

// BlendGenerator runs the blend pipeline for one request.
type BlendGenerator interface {
	Run(ctx context.Context, prefs blend.Preferences) (*blend.RecipeSet, error)
}

type Server struct {
	cfg       *config.Config
	generator BlendGenerator
}

func NewServer(cfg *config.Config, generator BlendGenerator) *Server {
	return &Server{
		cfg:       cfg,
		generator: generator,
	}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type RootResponse struct {
	Message string `json:"message"`
	Docs    string `json:"docs"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: APIVersion,
	})
}

// HandleRoot serves the frontend index page when the static directory has
// one, and a short API description otherwise.
func (s *Server) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if s.cfg.StaticDir != "" {
		index := filepath.Join(s.cfg.StaticDir, "index.html")
		if info, err := os.Stat(index); err == nil && !info.IsDir() {
			http.ServeFile(w, r, index)
			return
		}
	}

	writeJSON(w, http.StatusOK, RootResponse{
		Message: "Perfume Pal API",
		Docs:    "/docs",
	})
}

func (s *Server) HandleGenerateBlends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, _ := middleware.GetRequestID(ctx)

	prefs, err := validation.ParseGenerateBlendRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			slog.InfoContext(ctx, "Rejected blend request", "request_id", requestID, "error_code", appErr.Code(), "detail", appErr.Detail())
			writeError(w, appErr)
			return
		}
		writeError(w, apperrors.NewValidationError("Invalid request body", "INVALID_JSON", ""))
		return
	}

	slog.InfoContext(ctx, "Generating blends",
		"request_id", requestID,
		"style", prefs.Style,
		"strength", prefs.Strength,
		"bottle_size_ml", prefs.BottleSizeML,
	)

	result, err := s.generator.Run(ctx, prefs)
	if err != nil {
		var wfErr *blend.WorkflowError
		if errors.As(err, &wfErr) {
			slog.ErrorContext(ctx, "Workflow error", "request_id", requestID, "stage", wfErr.Stage, "error", wfErr.Error(), logger.WithTraceContext(ctx))
			sentry.CaptureException(ctx, err, map[string]string{
				"stage":      wfErr.Stage,
				"request_id": requestID,
			})
			writeError(w, apperrors.NewWorkflowError("Failed to generate blends: "+wfErr.Error(), "BLEND_GENERATION_FAILED", err))
			return
		}

		slog.ErrorContext(ctx, "Unexpected error", "request_id", requestID, "error", err, logger.WithTraceContext(ctx))
		sentry.CaptureException(ctx, err, map[string]string{"request_id": requestID})
		writeError(w, apperrors.NewInternalError("An unexpected error occurred while generating blends", "UNEXPECTED_ERROR", err))
		return
	}

	slog.InfoContext(ctx, "Generated blends", "request_id", requestID, "recipes", len(result.Recipes))
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, appErr *apperrors.AppError) {
	writeJSON(w, appErr.StatusCode, ErrorResponse{Detail: appErr.Detail()})
}
