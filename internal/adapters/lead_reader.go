// Package adapters contains adapters that bridge different bounded contexts.
// These adapters implement interfaces defined by consuming domains while
// wrapping repositories from providing domains.
package adapters

import (
	"context"
	"errors"

	leadsrepo "finders_crm_backend/internal/leads/repository"
	"finders_crm_backend/internal/referrals/domain"
	"finders_crm_backend/internal/referrals/ports"
	"finders_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// LeadStore is the slice of the leads repository the referral context needs.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadsrepo.Lead, error)
}

// ReferralLeadReader satisfies ports.LeadReader on top of the leads repository.
type ReferralLeadReader struct {
	leads LeadStore
}

func NewReferralLeadReader(leads LeadStore) *ReferralLeadReader {
	return &ReferralLeadReader{leads: leads}
}

func (r *ReferralLeadReader) GetLeadByID(ctx context.Context, id uuid.UUID) (ports.Lead, error) {
	lead, err := r.leads.GetByID(ctx, id)
	if errors.Is(err, leadsrepo.ErrNotFound) {
		return ports.Lead{}, apperr.NotFound(domain.MsgLeadNotFound)
	}
	if err != nil {
		return ports.Lead{}, apperr.Wrap(apperr.KindInternal, "load lead failed", err).WithOp("adapters.lead_reader.get")
	}
	return toPortLead(lead), nil
}

func toPortLead(l leadsrepo.Lead) ports.Lead {
	return ports.Lead{
		ID:                  l.ID,
		CustomerName:        l.CustomerName,
		PhoneNumber:         l.PhoneNumber,
		AgentID:             l.AgentID,
		Status:              l.Status,
		StatusCanBeReferred: l.StatusCanBeReferred,
	}
}

var _ ports.LeadReader = (*ReferralLeadReader)(nil)
