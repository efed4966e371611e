package service

import (
	"context"
	"fmt"

	"finders_crm_backend/internal/events"
	"finders_crm_backend/internal/referrals/domain"
	"finders_crm_backend/internal/referrals/ports"
	"finders_crm_backend/internal/referrals/repository"
	"finders_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// ConfirmResult is returned when a recipient accepts a handoff.
type ConfirmResult struct {
	Referral repository.Handoff
	// Lead is the lead as read after commit. Nil if that read failed.
	Lead        *ports.Lead
	Attribution ReassignmentResult
}

// ReferLeadToAgent opens a pending handoff from the lead's owner to a peer.
// A zero referredToAgentID means the field was not supplied.
func (s *Service) ReferLeadToAgent(ctx context.Context, leadID, referredToAgentID uuid.UUID, actor Actor) (repository.Handoff, error) {
	if err := requireHandoffRole(actor, domain.ActionRefer); err != nil {
		return repository.Handoff{}, err
	}

	lead, err := s.leads.GetLeadByID(ctx, leadID)
	if err != nil {
		return repository.Handoff{}, err
	}
	if lead.AgentID == nil || *lead.AgentID != actor.UserID {
		return repository.Handoff{}, apperr.Forbidden(domain.MsgNotLeadOwner)
	}
	if referredToAgentID == uuid.Nil {
		return repository.Handoff{}, apperr.BadRequest(domain.MsgTargetRequired)
	}
	if !domain.ReferabilityFromFlag(lead.StatusCanBeReferred).Allows(lead.Status) {
		return repository.Handoff{}, apperr.BadRequest(domain.NotReferableMessage(lead.Status))
	}
	if referredToAgentID == actor.UserID {
		return repository.Handoff{}, apperr.BadRequest(domain.MsgSelfReferral)
	}
	if _, err := s.resolveAgent(ctx, referredToAgentID); err != nil {
		return repository.Handoff{}, err
	}

	pending, err := s.repo.HasPendingHandoff(ctx, leadID)
	if err != nil {
		return repository.Handoff{}, err
	}
	if pending {
		return repository.Handoff{}, apperr.Conflict(domain.MsgPendingHandoffExists)
	}

	handoff, err := s.repo.CreateHandoff(ctx, repository.CreateHandoffParams{
		LeadID:            leadID,
		ReferredByUserID:  actor.UserID,
		ReferredToAgentID: referredToAgentID,
	})
	if err != nil {
		return repository.Handoff{}, err
	}

	s.log.Info("lead referred",
		"handoff_id", handoff.ID,
		"lead_id", leadID,
		"referred_by", actor.UserID,
		"referred_to", referredToAgentID,
	)
	s.publish(ctx, events.LeadReferralRequested{
		BaseEvent:         events.NewBaseEvent(s.now()),
		HandoffID:         handoff.ID,
		LeadID:            leadID,
		CustomerName:      lead.CustomerName,
		ReferredByUserID:  actor.UserID,
		ReferredToAgentID: referredToAgentID,
	})
	return handoff, nil
}

// loadForResolution applies the checks shared by confirm and reject, all of
// which happen before any transaction opens.
func (s *Service) loadForResolution(ctx context.Context, handoffID uuid.UUID, actor Actor, action, notRecipientMsg string, next domain.HandoffStatus) (repository.Handoff, error) {
	if err := requireHandoffRole(actor, action); err != nil {
		return repository.Handoff{}, err
	}

	handoff, err := s.repo.GetHandoff(ctx, handoffID)
	if err != nil {
		return repository.Handoff{}, err
	}
	if handoff.ReferredToAgentID != actor.UserID {
		return repository.Handoff{}, apperr.Forbidden(notRecipientMsg)
	}
	if _, err := domain.HandoffStatus(handoff.Status).Transition(next); err != nil {
		return repository.Handoff{}, err
	}
	return handoff, nil
}

// resolveLocked re-reads the request under a row lock and moves it to next.
func (s *Service) resolveLocked(ctx context.Context, store repository.Store, handoffID uuid.UUID, next domain.HandoffStatus) (repository.Handoff, error) {
	locked, err := store.GetHandoffForUpdate(ctx, handoffID)
	if err != nil {
		return repository.Handoff{}, err
	}
	status, err := domain.HandoffStatus(locked.Status).Transition(next)
	if err != nil {
		return repository.Handoff{}, err
	}
	return store.ResolveHandoff(ctx, handoffID, string(status), s.now())
}

// ConfirmReferral accepts a pending handoff: the recipient becomes the lead
// owner and attribution is updated in the same transaction.
func (s *Service) ConfirmReferral(ctx context.Context, handoffID uuid.UUID, actor Actor) (ConfirmResult, error) {
	handoff, err := s.loadForResolution(ctx, handoffID, actor, domain.ActionConfirm, domain.MsgNotConfirmRecipient, domain.HandoffConfirmed)
	if err != nil {
		return ConfirmResult{}, err
	}
	agent, err := s.resolveAgent(ctx, actor.UserID)
	if err != nil {
		return ConfirmResult{}, err
	}

	var (
		result   ConfirmResult
		previous *uuid.UUID
	)
	err = s.repo.WithinTx(ctx, func(store repository.Store) error {
		resolved, err := s.resolveLocked(ctx, store, handoffID, domain.HandoffConfirmed)
		if err != nil {
			return err
		}
		result.Referral = resolved

		locked, err := store.LockLead(ctx, resolved.LeadID)
		if err != nil {
			return err
		}
		previous = locked.AgentID
		if previous == nil || *previous != resolved.ReferredByUserID {
			return apperr.Conflict(domain.MsgHandoffStale)
		}

		if err := store.AssignLeadAgent(ctx, resolved.LeadID, actor.UserID); err != nil {
			return err
		}
		result.Attribution, err = s.reassignInTx(ctx, store, resolved.LeadID, actor.UserID, agent.Name)
		return err
	})
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("confirm referral: %w", err)
	}

	customerName := ""
	if lead, err := s.leads.GetLeadByID(ctx, handoff.LeadID); err != nil {
		s.log.Warn("reload lead after confirmation failed", "lead_id", handoff.LeadID, "error", err)
	} else {
		result.Lead = &lead
		customerName = lead.CustomerName
	}

	s.logReassignment(handoff.LeadID, actor.UserID, previous, result.Attribution)
	s.log.Info("referral confirmed", "handoff_id", handoffID, "lead_id", handoff.LeadID)

	s.publish(ctx, events.LeadReferralConfirmed{
		BaseEvent:         events.NewBaseEvent(s.now()),
		HandoffID:         handoffID,
		LeadID:            handoff.LeadID,
		CustomerName:      customerName,
		ReferredByUserID:  handoff.ReferredByUserID,
		ReferredToAgentID: actor.UserID,
		ReferredToName:    agent.Name,
	})
	s.publish(ctx, events.LeadReassigned{
		BaseEvent:       events.NewBaseEvent(s.now()),
		LeadID:          handoff.LeadID,
		PreviousAgentID: previous,
		NewAgentID:      actor.UserID,
		AssignedByID:    actor.UserID,
		Source:          events.ReassignedByHandoff,
		MarkedExternal:  len(result.Attribution.MarkedExternal),
	})
	return result, nil
}

// RejectReferral declines a pending handoff. Ownership and the ledger stay as they are.
func (s *Service) RejectReferral(ctx context.Context, handoffID uuid.UUID, actor Actor) (repository.Handoff, error) {
	handoff, err := s.loadForResolution(ctx, handoffID, actor, domain.ActionReject, domain.MsgNotRejectRecipient, domain.HandoffRejected)
	if err != nil {
		return repository.Handoff{}, err
	}

	var resolved repository.Handoff
	err = s.repo.WithinTx(ctx, func(store repository.Store) error {
		var err error
		resolved, err = s.resolveLocked(ctx, store, handoffID, domain.HandoffRejected)
		return err
	})
	if err != nil {
		return repository.Handoff{}, fmt.Errorf("reject referral: %w", err)
	}

	s.log.Info("referral rejected", "handoff_id", handoffID, "lead_id", handoff.LeadID)

	event := events.LeadReferralRejected{
		BaseEvent:         events.NewBaseEvent(s.now()),
		HandoffID:         handoffID,
		LeadID:            handoff.LeadID,
		ReferredByUserID:  handoff.ReferredByUserID,
		ReferredToAgentID: actor.UserID,
	}
	if lead, err := s.leads.GetLeadByID(ctx, handoff.LeadID); err == nil {
		event.CustomerName = lead.CustomerName
	}
	if agent, err := s.users.GetUserByID(ctx, actor.UserID); err == nil {
		event.ReferredToName = agent.Name
	}
	s.publish(ctx, event)
	return resolved, nil
}

// GetPendingReferralsForUser lists pending handoffs addressed to the caller.
func (s *Service) GetPendingReferralsForUser(ctx context.Context, actor Actor) ([]repository.HandoffWithLead, error) {
	if err := requireHandoffRole(actor, domain.ActionViewPending); err != nil {
		return nil, err
	}
	return s.repo.ListPendingHandoffs(ctx, actor.UserID)
}

// GetPendingReferralsCount counts pending handoffs addressed to the caller.
func (s *Service) GetPendingReferralsCount(ctx context.Context, actor Actor) (int, error) {
	if err := requireHandoffRole(actor, domain.ActionViewPending); err != nil {
		return 0, err
	}
	return s.repo.CountPendingHandoffs(ctx, actor.UserID)
}
