// Package http defines what the API binary hands to the router: the wired
// modules plus the little infrastructure the router itself needs.
package http

import (
	"context"

	"finders_crm_backend/platform/config"
	"finders_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// RouterConfig is the slice of configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs GET /api/health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Module is a feature area that mounts its own routes.
type Module interface {
	Name() string
	RegisterRoutes(rc *RouterContext)
}

// RouterContext exposes the route groups a module may mount on.
type RouterContext struct {
	// V1 is /api/v1 without authentication.
	V1 *gin.RouterGroup
	// Protected is /api/v1 behind AuthRequired.
	Protected *gin.RouterGroup
	// Admin is /api/v1/admin, restricted to the admin role.
	Admin *gin.RouterGroup
}

// App is assembled in cmd/api and consumed by router.New.
type App struct {
	Config  RouterConfig
	Logger  *logger.Logger
	Health  HealthChecker
	Modules []Module
}
