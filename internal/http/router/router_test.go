package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apphttp "finders_crm_backend/internal/http"
	"finders_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "router-test-secret"

type testConfig struct{}

func (testConfig) GetHTTPAddr() string        { return ":0" }
func (testConfig) GetCORSAllowAll() bool      { return false }
func (testConfig) GetCORSOrigins() []string   { return []string{"http://localhost:4200"} }
func (testConfig) GetCORSAllowCreds() bool    { return true }
func (testConfig) GetJWTAccessSecret() string { return secret }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type pingModule struct{}

func (pingModule) Name() string { return "ping" }

func (pingModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	ctx.Admin.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func newEngine(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  testConfig{},
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{pingModule{}},
	})
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"type": "access",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func serve(engine *gin.Engine, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealthReportsDatabaseState(t *testing.T) {
	ok := newEngine(pingFunc(func(context.Context) error { return nil }))
	assert.Equal(t, http.StatusOK, serve(ok, "/api/health", "").Code)

	down := newEngine(pingFunc(func(context.Context) error { return errors.New("refused") }))
	assert.Equal(t, http.StatusServiceUnavailable, serve(down, "/api/health", "").Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	engine := newEngine(nil)

	assert.Equal(t, http.StatusUnauthorized, serve(engine, "/api/v1/ping", "").Code)
	assert.Equal(t, http.StatusNoContent, serve(engine, "/api/v1/ping", bearer(t, "agent")).Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	engine := newEngine(nil)

	assert.Equal(t, http.StatusForbidden, serve(engine, "/api/v1/admin/ping", bearer(t, "agent")).Code)
	assert.Equal(t, http.StatusNoContent, serve(engine, "/api/v1/admin/ping", bearer(t, "admin")).Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	engine := newEngine(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
