package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finders_crm_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jwtConfig string

func (c jwtConfig) GetJWTAccessSecret() string { return string(c) }

const testSecret = jwtConfig("unit-test-secret")

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", handlers...)
	return r
}

func TestAuthRequiredSetsIdentity(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, jwt.MapClaims{
		"sub":   userID.String(),
		"type":  "access",
		"roles": []string{"agent"},
		"role":  "team_leader",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	var got Identity
	r := newTestRouter(AuthRequired(testSecret), func(c *gin.Context) {
		got = MustGetIdentity(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, userID, got.UserID())
	assert.True(t, got.HasRole("agent"))
	assert.True(t, got.HasRole("team_leader"))
	assert.False(t, got.HasRole("admin"))
}

func TestAuthRequiredRejectsRefreshTokens(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"type": "refresh",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	r := newTestRouter(AuthRequired(testSecret), func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequiredMissingToken(t *testing.T) {
	r := newTestRouter(AuthRequired(testSecret), func(c *gin.Context) { c.Status(http.StatusOK) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), errMissingToken)
}

func TestRequireRole(t *testing.T) {
	withRoles := func(roles ...string) gin.HandlerFunc {
		return func(c *gin.Context) {
			SetIdentity(c, uuid.New(), roles)
			c.Next()
		}
	}
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	cases := []struct {
		name  string
		roles []string
		want  int
	}{
		{"admin allowed", []string{"admin"}, http.StatusOK},
		{"one of several", []string{"agent", "operations"}, http.StatusOK},
		{"missing role", []string{"agent"}, http.StatusForbidden},
		{"no roles", nil, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(withRoles(tc.roles...), RequireRole("admin", "operations"), ok)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestHandleErrorHidesInternalMessages(t *testing.T) {
	r := newTestRouter(func(c *gin.Context) {
		HandleError(c, apperr.Internal("pq: relation referrals does not exist"))
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "relation")
}

func TestHandleErrorUsesKind(t *testing.T) {
	r := newTestRouter(func(c *gin.Context) {
		HandleError(c, apperr.Conflict("Referral has already been confirmed."))
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"Referral has already been confirmed."}`, rec.Body.String())
}

func TestMustGetIdentityWithoutAuth(t *testing.T) {
	var got Identity
	r := newTestRouter(func(c *gin.Context) {
		got = MustGetIdentity(c)
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Nil(t, got)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestIDEchoesClientValue(t *testing.T) {
	r := newTestRouter(RequestID(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(headerRequestID, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(headerRequestID))
}
