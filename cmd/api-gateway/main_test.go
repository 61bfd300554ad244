package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtdacademy/rtd-connect-api/internal/handler"
	"github.com/rtdacademy/rtd-connect-api/internal/models"
	"github.com/rtdacademy/rtd-connect-api/internal/service"
	"github.com/rtdacademy/rtd-connect-api/pkg/config"
)

func testRouter(env string) (*gin.Engine, *service.AuthService) {
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(service.AuthConfig{Secret: "secret"})
	r := gin.New()
	registerRoutes(r, &config.Config{Env: env, APIPrefix: "/api/v1"}, routeHandlers{
		auth:          auth,
		metrics:       handler.NewMetricsHandler(service.NewMetricsService(), nil),
		funding:       handler.NewFundingHandler(nil),
		terms:         handler.NewTermHandler(nil),
		termMappings:  handler.NewTermMappingHandler(nil),
		configuration: handler.NewConfigurationHandler(nil),
	})
	return r, auth
}

func TestRegisterRoutesExposesSurface(t *testing.T) {
	r, _ := testRouter(config.EnvDevelopment)
	registered := map[string]bool{}
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"GET /docs/*any",
		"POST /api/v1/funding/eligibility",
		"GET /api/v1/students/:id/funding-eligibility",
		"POST /api/v1/funding/recompute",
		"POST /api/v1/terms/evaluate",
		"GET /api/v1/terms/reconciliation",
		"GET /api/v1/terms/reconciliation/summary",
		"GET /api/v1/terms/reconciliation/export",
		"PUT /api/v1/terms/reconciliation/:id/review",
		"GET /api/v1/terms/mappings",
		"PUT /api/v1/terms/mappings",
		"GET /api/v1/configuration",
		"GET /api/v1/configuration/:key",
		"PUT /api/v1/configuration/:key",
		"DELETE /api/v1/configuration/:key",
	} {
		assert.True(t, registered[want], want)
	}
}

func TestDocsHiddenInProduction(t *testing.T) {
	r, _ := testRouter(config.EnvProduction)
	for _, route := range r.Routes() {
		assert.NotEqual(t, "/docs/*any", route.Path)
	}
}

func TestProtectedRoutesRequireRoles(t *testing.T) {
	r, auth := testRouter(config.EnvDevelopment)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/terms/reconciliation", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	parent, err := auth.IssueToken("parent-1", models.RoleParent, "fam-1", time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/terms/reconciliation", nil)
	req.Header.Set("Authorization", "Bearer "+parent)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	staff, err := auth.IssueToken("staff-1", models.RoleStaff, "", time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPut, "/api/v1/terms/mappings", nil)
	req.Header.Set("Authorization", "Bearer "+staff)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthIsPublic(t *testing.T) {
	r, _ := testRouter(config.EnvDevelopment)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
