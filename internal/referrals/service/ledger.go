package service

import (
	"context"
	"strings"
	"time"

	"finders_crm_backend/internal/events"
	"finders_crm_backend/internal/referrals/domain"
	"finders_crm_backend/internal/referrals/repository"
	"finders_crm_backend/platform/apperr"
	"finders_crm_backend/platform/sanitize"

	"github.com/google/uuid"
)

// CreateReferralInput describes a ledger entry added by an administrator or
// an import. Type defaults to employee and ReferralDate to now.
type CreateReferralInput struct {
	LeadID       uuid.UUID
	AgentID      *uuid.UUID
	Name         string
	Type         string
	ReferralDate *time.Time
}

// CreateReferral appends one internal entry. The entry is not reclassified
// here; callers re-run ApplyExternalRuleToLeadReferrals afterwards.
func (s *Service) CreateReferral(ctx context.Context, in CreateReferralInput) (repository.Referral, error) {
	refType := strings.TrimSpace(in.Type)
	if refType == "" {
		refType = domain.TypeEmployee
	}
	if !domain.IsValidReferralType(refType) {
		return repository.Referral{}, apperr.Validation("type must be employee or custom")
	}

	if _, err := s.leads.GetLeadByID(ctx, in.LeadID); err != nil {
		return repository.Referral{}, err
	}

	name := sanitize.Text(in.Name)
	if name == "" && in.AgentID != nil {
		agent, err := s.resolveAgent(ctx, *in.AgentID)
		if err != nil {
			return repository.Referral{}, err
		}
		name = agent.Name
	}
	if name == "" {
		return repository.Referral{}, apperr.Validation("name is required")
	}

	date := s.now()
	if in.ReferralDate != nil {
		date = *in.ReferralDate
	}

	ref, err := s.repo.CreateReferral(ctx, repository.CreateReferralParams{
		LeadID:       in.LeadID,
		AgentID:      in.AgentID,
		Name:         name,
		Type:         refType,
		ReferralDate: date,
	})
	if err != nil {
		return repository.Referral{}, err
	}

	s.publish(ctx, events.ReferralCreated{
		BaseEvent:  events.NewBaseEvent(s.now()),
		ReferralID: ref.ID,
		LeadID:     ref.LeadID,
		AgentID:    ref.AgentID,
		Name:       ref.Name,
		Type:       ref.Type,
	})
	return ref, nil
}

// GetReferralsByLeadID lists a lead's ledger, newest first.
func (s *Service) GetReferralsByLeadID(ctx context.Context, leadID uuid.UUID) ([]repository.ReferralWithAgent, error) {
	if _, err := s.leads.GetLeadByID(ctx, leadID); err != nil {
		return nil, err
	}
	return s.repo.ListByLead(ctx, leadID)
}

// GetReferralsByAgentID lists every entry attributed to an agent, newest first.
func (s *Service) GetReferralsByAgentID(ctx context.Context, agentID uuid.UUID) ([]repository.ReferralWithLead, error) {
	return s.repo.ListByAgent(ctx, agentID)
}

// MarkAsExternal flags an entry as aged out. Calling it twice is harmless.
func (s *Service) MarkAsExternal(ctx context.Context, id uuid.UUID) (repository.Referral, error) {
	return s.repo.SetExternal(ctx, id, true)
}

// DeleteReferral hard-deletes an entry and returns it.
func (s *Service) DeleteReferral(ctx context.Context, id uuid.UUID) (repository.Referral, error) {
	ref, err := s.repo.DeleteReferral(ctx, id)
	if err != nil {
		return repository.Referral{}, err
	}
	s.log.Info("referral deleted", "referral_id", ref.ID, "lead_id", ref.LeadID)
	return ref, nil
}

// GetReferralStats aggregates an agent's ledger.
func (s *Service) GetReferralStats(ctx context.Context, agentID uuid.UUID) (repository.ReferralStats, error) {
	return s.repo.StatsByAgent(ctx, agentID)
}
