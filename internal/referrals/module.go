// Package referrals mounts the referral ledger, attribution and handoff
// endpoints. The scheduler and backfill binaries use the service package
// directly.
package referrals

import (
	"finders_crm_backend/internal/events"
	apphttp "finders_crm_backend/internal/http"
	"finders_crm_backend/internal/referrals/handler"
	"finders_crm_backend/internal/referrals/ports"
	"finders_crm_backend/internal/referrals/repository"
	"finders_crm_backend/internal/referrals/service"
	"finders_crm_backend/platform/logger"
	"finders_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, leads ports.LeadReader, users ports.UserDirectory, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), leads, users, eventBus, log)
	return &Module{handler: handler.New(svc, val)}
}

func (m *Module) Name() string {
	return "referrals"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)
