package service

import (
	"context"
	"fmt"

	"finders_crm_backend/internal/events"
	"finders_crm_backend/internal/referrals/domain"
	"finders_crm_backend/internal/referrals/repository"

	"github.com/google/uuid"
)

// ExternalRuleResult reports what a full recomputation changed.
type ExternalRuleResult struct {
	LeadID           uuid.UUID
	MarkedExternal   []repository.Referral
	RestoredInternal []repository.Referral
	Message          string
}

// ReassignmentResult reports the entry appended for a new owner and the
// entries that aged out on the way.
type ReassignmentResult struct {
	NewReferral    repository.Referral
	MarkedExternal []repository.Referral
	Message        string
}

// ApplyExternalRuleToLeadReferrals reclassifies every entry of a lead against
// its most recent entry. Safe to re-run.
func (s *Service) ApplyExternalRuleToLeadReferrals(ctx context.Context, leadID uuid.UUID) (ExternalRuleResult, error) {
	result := ExternalRuleResult{
		LeadID:           leadID,
		MarkedExternal:   []repository.Referral{},
		RestoredInternal: []repository.Referral{},
	}

	err := s.repo.WithinTx(ctx, func(store repository.Store) error {
		if _, err := store.LockLead(ctx, leadID); err != nil {
			return err
		}

		entries, err := store.ListLeadReferrals(ctx, leadID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			result.Message = domain.MsgNoReferrals
			return nil
		}

		plan := domain.PlanExternalRule(toLedgerEntries(entries))
		for _, id := range plan.MarkExternal {
			ref, err := store.SetExternal(ctx, id, true)
			if err != nil {
				return err
			}
			result.MarkedExternal = append(result.MarkedExternal, ref)
		}
		for _, id := range plan.RestoreInternal {
			ref, err := store.SetExternal(ctx, id, false)
			if err != nil {
				return err
			}
			result.RestoredInternal = append(result.RestoredInternal, ref)
		}

		result.Message = domain.ExternalRuleMessage(len(result.MarkedExternal), len(result.RestoredInternal))
		return nil
	})
	if err != nil {
		return ExternalRuleResult{}, fmt.Errorf("apply external rule: %w", err)
	}

	s.log.Info("external rule applied",
		"lead_id", leadID,
		"marked_external", len(result.MarkedExternal),
		"restored_internal", len(result.RestoredInternal),
	)
	return result, nil
}

// ProcessLeadReassignment ages out stale internal entries and appends the new
// owner's entry. It does not change lead ownership; previousAgentID is only
// recorded in the log.
func (s *Service) ProcessLeadReassignment(ctx context.Context, leadID, newAgentID uuid.UUID, previousAgentID *uuid.UUID) (ReassignmentResult, error) {
	agent, err := s.resolveAgent(ctx, newAgentID)
	if err != nil {
		return ReassignmentResult{}, err
	}

	var result ReassignmentResult
	err = s.repo.WithinTx(ctx, func(store repository.Store) error {
		if _, err := store.LockLead(ctx, leadID); err != nil {
			return err
		}
		result, err = s.reassignInTx(ctx, store, leadID, newAgentID, agent.Name)
		return err
	})
	if err != nil {
		return ReassignmentResult{}, fmt.Errorf("process lead reassignment: %w", err)
	}

	s.logReassignment(leadID, newAgentID, previousAgentID, result)
	return result, nil
}

// ReassignLead is the administrator path: change the owner directly and
// update attribution in the same transaction.
func (s *Service) ReassignLead(ctx context.Context, leadID, newAgentID uuid.UUID, actor Actor) (ReassignmentResult, error) {
	if _, err := s.leads.GetLeadByID(ctx, leadID); err != nil {
		return ReassignmentResult{}, err
	}
	agent, err := s.resolveAgent(ctx, newAgentID)
	if err != nil {
		return ReassignmentResult{}, err
	}

	var (
		result   ReassignmentResult
		previous *uuid.UUID
		closed   []repository.Handoff
	)
	err = s.repo.WithinTx(ctx, func(store repository.Store) error {
		locked, err := store.LockLead(ctx, leadID)
		if err != nil {
			return err
		}
		previous = locked.AgentID

		// Requests made by the outgoing owner no longer apply.
		if closed, err = store.RejectPendingHandoffs(ctx, leadID, s.now()); err != nil {
			return err
		}
		if err := store.AssignLeadAgent(ctx, leadID, newAgentID); err != nil {
			return err
		}
		result, err = s.reassignInTx(ctx, store, leadID, newAgentID, agent.Name)
		return err
	})
	if err != nil {
		return ReassignmentResult{}, fmt.Errorf("reassign lead: %w", err)
	}

	s.logReassignment(leadID, newAgentID, previous, result)
	for _, h := range closed {
		s.log.Info("pending referral closed by reassignment", "handoff_id", h.ID, "lead_id", leadID)
	}
	s.publish(ctx, events.LeadReassigned{
		BaseEvent:       events.NewBaseEvent(s.now()),
		LeadID:          leadID,
		PreviousAgentID: previous,
		NewAgentID:      newAgentID,
		AssignedByID:    actor.UserID,
		Source:          events.ReassignedByAdmin,
		MarkedExternal:  len(result.MarkedExternal),
	})
	return result, nil
}

// reassignInTx runs the reassignment steps on a store whose lead row is
// already locked.
func (s *Service) reassignInTx(ctx context.Context, store repository.Store, leadID, newAgentID uuid.UUID, agentName string) (ReassignmentResult, error) {
	now := s.now()
	result := ReassignmentResult{MarkedExternal: []repository.Referral{}}

	internal, err := store.ListInternalLeadReferrals(ctx, leadID)
	if err != nil {
		return ReassignmentResult{}, err
	}

	for _, id := range domain.PlanReassignment(now, toLedgerEntries(internal)) {
		ref, err := store.SetExternal(ctx, id, true)
		if err != nil {
			return ReassignmentResult{}, err
		}
		result.MarkedExternal = append(result.MarkedExternal, ref)
	}

	agentID := newAgentID
	result.NewReferral, err = store.CreateReferral(ctx, repository.CreateReferralParams{
		LeadID:       leadID,
		AgentID:      &agentID,
		Name:         agentName,
		Type:         domain.TypeEmployee,
		ReferralDate: now,
	})
	if err != nil {
		return ReassignmentResult{}, err
	}

	result.Message = domain.ReassignmentMessage(len(internal), len(result.MarkedExternal))
	return result, nil
}

func (s *Service) logReassignment(leadID, newAgentID uuid.UUID, previous *uuid.UUID, result ReassignmentResult) {
	args := []any{
		"lead_id", leadID,
		"new_agent_id", newAgentID,
		"marked_external", len(result.MarkedExternal),
	}
	if previous != nil {
		args = append(args, "previous_agent_id", *previous)
	}
	s.log.Info("lead reassigned", args...)
}
