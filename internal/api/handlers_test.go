package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/perfumepal/blender/internal/config"
	"github.com/perfumepal/blender/internal/services/blend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	result *blend.RecipeSet
	err    error
	calls  int
	got    blend.Preferences
}

func (f *fakeGenerator) Run(ctx context.Context, prefs blend.Preferences) (*blend.RecipeSet, error) {
	f.calls++
	f.got = prefs
	return f.result, f.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		ServiceName:    "perfume-pal",
		ServiceVersion: "1.0.0",
		StaticDir:      t.TempDir(),
	}
	cfg.SetModelDefaults()
	cfg.SetServerDefaults()
	return cfg
}

func decodeDetail(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Detail
}

func TestHandleHealth(t *testing.T) {
	srv := NewServer(testConfig(t), &fakeGenerator{})
	router := NewRouter(srv)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","version":"1.0.0"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestHandleHealth_IgnoresServiceVersion(t *testing.T) {
	cfg := testConfig(t)
	cfg.ServiceVersion = "2.3.4-rc1"

	rr := httptest.NewRecorder()
	NewRouter(NewServer(cfg, &fakeGenerator{})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","version":"1.0.0"}`, rr.Body.String())
}

func TestHandleRoot(t *testing.T) {
	t.Run("no frontend", func(t *testing.T) {
		srv := NewServer(testConfig(t), &fakeGenerator{})

		rr := httptest.NewRecorder()
		NewRouter(srv).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"message":"Perfume Pal API","docs":"/docs"}`, rr.Body.String())
	})

	t.Run("frontend index and static files", func(t *testing.T) {
		cfg := testConfig(t)
		require.NoError(t, os.WriteFile(filepath.Join(cfg.StaticDir, "index.html"), []byte("<h1>Perfume Pal</h1>"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(cfg.StaticDir, "app.js"), []byte("console.log('hi')"), 0o644))
		router := NewRouter(NewServer(cfg, &fakeGenerator{}))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "<h1>Perfume Pal</h1>")

		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "console.log")
	})
}

func TestHandleGenerateBlends_Success(t *testing.T) {
	gen := &fakeGenerator{result: &blend.RecipeSet{Recipes: []blend.Recipe{{Name: "Midnight Oud"}}}}
	router := NewRouter(NewServer(testConfig(t), gen))

	body := `{"style": "dark oud", "strength": "Strong", "bottle_size_ml": 30, "user_ingredients": "oud, amber,  "}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate_blends", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "strong", gen.got.Strength)
	assert.Equal(t, []string{"oud", "amber"}, gen.got.UserIngredients)

	var got blend.RecipeSet
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got.Recipes, 1)
	assert.Equal(t, "Midnight Oud", got.Recipes[0].Name)
}

func TestHandleGenerateBlends_ValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantDetail string
	}{
		{"bad strength", `{"style": "x", "strength": "EXTREME", "bottle_size_ml": 30}`, "Strength must be one of: subtle, moderate, strong"},
		{"bottle too small", `{"style": "x", "strength": "strong", "bottle_size_ml": 3}`, "bottle_size_ml must be between 5 and 100"},
		{"bottle too large", `{"style": "x", "strength": "strong", "bottle_size_ml": 101}`, "bottle_size_ml must be between 5 and 100"},
		{"malformed", `{`, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			router := NewRouter(NewServer(testConfig(t), gen))

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/generate_blends", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			assert.Equal(t, tt.wantDetail, decodeDetail(t, rr))
			assert.Equal(t, 0, gen.calls)
		})
	}
}

func TestHandleGenerateBlends_Failures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantDetail string
	}{
		{
			name:       "workflow error",
			err:        &blend.WorkflowError{Stage: blend.StagePlanner, Err: errors.New("Gemini API error (status 503): unavailable")},
			wantDetail: "Failed to generate blends: Scent Planner failed: Gemini API error (status 503): unavailable",
		},
		{
			name:       "unexpected error",
			err:        errors.New("something else"),
			wantDetail: "An unexpected error occurred while generating blends",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter(NewServer(testConfig(t), &fakeGenerator{err: tt.err}))

			body := `{"style": "dark oud", "strength": "strong", "bottle_size_ml": 30}`
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/generate_blends", strings.NewReader(body)))

			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			assert.Equal(t, tt.wantDetail, decodeDetail(t, rr))
		})
	}
}

type panickingGenerator struct{}

func (panickingGenerator) Run(ctx context.Context, prefs blend.Preferences) (*blend.RecipeSet, error) {
	panic("handler exploded")
}

// scrapeCounter reads one sample from the /metrics exposition, 0 when absent.
func scrapeCounter(t *testing.T, router http.Handler, series string) float64 {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	for _, line := range strings.Split(rr.Body.String(), "\n") {
		if value, ok := strings.CutPrefix(line, series+" "); ok {
			v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			require.NoError(t, err)
			return v
		}
	}
	return 0
}

func TestRouter_PanicReturnsInternalServerError(t *testing.T) {
	router := NewRouter(NewServer(testConfig(t), panickingGenerator{}))
	series := `perfumepal_http_requests_total{method="POST",path="/api/generate_blends",status="500"}`
	before := scrapeCounter(t, router, series)

	body := `{"style": "dark oud", "strength": "strong", "bottle_size_ml": 30}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/generate_blends", strings.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal server error", decodeDetail(t, rr))
	assert.Equal(t, before+1, scrapeCounter(t, router, series))
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateLimitBurst = 1
	router := NewRouter(NewServer(cfg, &fakeGenerator{result: &blend.RecipeSet{}}))

	body := `{"style": "dark oud", "strength": "strong", "bottle_size_ml": 30}`
	codes := make([]int, 0, 2)
	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/generate_blends", strings.NewReader(body)))
		codes = append(codes, rr.Code)
		last = rr
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "Rate limit exceeded", decodeDetail(t, last))

	// health is not limited
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_Metrics(t *testing.T) {
	router := NewRouter(NewServer(testConfig(t), &fakeGenerator{}))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "perfumepal_http_requests_total")
}
