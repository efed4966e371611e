package httpkit

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"finders_crm_backend/platform/config"
	"finders_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	headerRequestID     = "X-Request-ID"
	headerAuthorization = "Authorization"
	bearerPrefix        = "Bearer "
	accessTokenType     = "access"

	errMissingToken = "missing token"
	errInvalidToken = "invalid token"
	errUnauthorized = "unauthorized"
	errForbidden    = "forbidden"
)

var errBadToken = errors.New(errInvalidToken)

// RequestID echoes X-Request-ID, minting one when the client sent none,
// and tags the request context for the logger.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// RequestLogger emits one line per request. 5xx responses that recorded a
// gin error are logged at error level with that error.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		entry := logger.RequestEntry{
			Method:   c.Request.Method,
			Path:     path,
			Status:   c.Writer.Status(),
			Latency:  time.Since(start),
			ClientIP: c.ClientIP(),
		}
		if entry.Status >= http.StatusInternalServerError {
			if last := c.Errors.Last(); last != nil {
				entry.Err = last.Err
			}
		}
		log.WithContext(c.Request.Context()).Request(entry)
	}
}

// SecurityHeaders sets the baseline response hardening headers.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'")
		if c.Request.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

// AuthRequired accepts HMAC-signed access tokens whose "sub" is the user id.
// Roles come from the "roles" array and the single "role" claim.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	secret := func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errBadToken
		}
		return []byte(cfg.GetJWTAccessSecret()), nil
	}

	return func(c *gin.Context) {
		raw, found := strings.CutPrefix(c.GetHeader(headerAuthorization), bearerPrefix)
		raw = strings.TrimSpace(raw)
		if !found || raw == "" {
			abortUnauthorized(c, errMissingToken)
			return
		}

		userID, roles, err := readAccessToken(raw, secret)
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		SetIdentity(c, userID, roles)
		c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), userID.String()))
		c.Next()
	}
}

// RequireRole lets the request through when the caller holds any of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok || !id.HasAnyRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: errForbidden})
			return
		}
		c.Next()
	}
}

func readAccessToken(raw string, keyFunc jwt.Keyfunc) (uuid.UUID, []string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, keyFunc)
	if err != nil || !token.Valid {
		return uuid.Nil, nil, errBadToken
	}
	if kind, _ := claims["type"].(string); kind != accessTokenType {
		return uuid.Nil, nil, errBadToken
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, nil, errBadToken
	}

	return userID, claimRoles(claims), nil
}

func claimRoles(claims jwt.MapClaims) []string {
	var roles []string
	switch list := claims["roles"].(type) {
	case []string:
		roles = append(roles, list...)
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok {
				roles = append(roles, s)
			}
		}
	}
	if single, _ := claims["role"].(string); single != "" && !slices.Contains(roles, single) {
		roles = append(roles, single)
	}
	return roles
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: message})
}
