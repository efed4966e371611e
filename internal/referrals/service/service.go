// Package service implements the referral ledger, the attribution rule
// engine and the lead handoff workflow.
package service

import (
	"context"
	"time"

	"finders_crm_backend/internal/events"
	"finders_crm_backend/internal/referrals/domain"
	"finders_crm_backend/internal/referrals/ports"
	"finders_crm_backend/internal/referrals/repository"
	"finders_crm_backend/platform/apperr"
	"finders_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	UserID uuid.UUID
	Roles  []string
}

type Service struct {
	repo  repository.Repository
	leads ports.LeadReader
	users ports.UserDirectory
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

// New wires the service. bus may be nil, in which case nothing is published.
func New(repo repository.Repository, leads ports.LeadReader, users ports.UserDirectory, bus events.Bus, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		repo:  repo,
		leads: leads,
		users: users,
		bus:   bus,
		log:   log,
		now:   time.Now,
	}
}

// SetClock overrides the wall clock used for referral dates and ageing.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event)
}

// resolveAgent looks up a user for name snapshots, mapping absence to the
// user-facing "Agent not found".
func (s *Service) resolveAgent(ctx context.Context, id uuid.UUID) (ports.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return ports.User{}, apperr.NotFound(domain.MsgAgentNotFound)
		}
		return ports.User{}, err
	}
	return user, nil
}

func requireHandoffRole(actor Actor, action string) error {
	if !domain.CanHandleReferrals(actor.Roles) {
		return apperr.Forbidden(domain.RoleGateMessage(action))
	}
	return nil
}

func toLedgerEntries(refs []repository.Referral) []domain.LedgerEntry {
	out := make([]domain.LedgerEntry, len(refs))
	for i, r := range refs {
		out[i] = domain.LedgerEntry{ID: r.ID, ReferralDate: r.ReferralDate, External: r.External}
	}
	return out
}
