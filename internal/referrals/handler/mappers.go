package handler

import (
	"finders_crm_backend/internal/referrals/ports"
	"finders_crm_backend/internal/referrals/repository"
	"finders_crm_backend/internal/referrals/service"
	"finders_crm_backend/internal/referrals/transport"
)

func toReferralResponse(r repository.Referral) transport.ReferralResponse {
	return transport.ReferralResponse{
		ID:           r.ID,
		LeadID:       r.LeadID,
		AgentID:      r.AgentID,
		Name:         r.Name,
		Type:         r.Type,
		ReferralDate: r.ReferralDate,
		External:     r.External,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toReferralResponses(refs []repository.Referral) []transport.ReferralResponse {
	out := make([]transport.ReferralResponse, len(refs))
	for i, r := range refs {
		out[i] = toReferralResponse(r)
	}
	return out
}

func toReferralWithAgentResponses(items []repository.ReferralWithAgent) []transport.ReferralResponse {
	out := make([]transport.ReferralResponse, len(items))
	for i, item := range items {
		resp := toReferralResponse(item.Referral)
		resp.AgentName = item.AgentName
		resp.AgentRole = item.AgentRole
		out[i] = resp
	}
	return out
}

func toReferralWithLeadResponses(items []repository.ReferralWithLead) []transport.ReferralResponse {
	out := make([]transport.ReferralResponse, len(items))
	for i, item := range items {
		resp := toReferralResponse(item.Referral)
		customer, status := item.CustomerName, item.LeadStatus
		resp.CustomerName = &customer
		resp.PhoneNumber = item.PhoneNumber
		resp.LeadStatus = &status
		out[i] = resp
	}
	return out
}

func toStatsResponse(s repository.ReferralStats) transport.ReferralStatsResponse {
	return transport.ReferralStatsResponse{
		AgentID:           s.AgentID,
		Total:             s.Total,
		Internal:          s.Internal,
		External:          s.External,
		FirstReferralDate: s.FirstReferralDate,
		LastReferralDate:  s.LastReferralDate,
	}
}

func toExternalRuleResponse(r service.ExternalRuleResult) transport.ExternalRuleResponse {
	return transport.ExternalRuleResponse{
		LeadID:                    r.LeadID,
		MarkedExternalReferrals:   toReferralResponses(r.MarkedExternal),
		RestoredInternalReferrals: toReferralResponses(r.RestoredInternal),
		Message:                   r.Message,
	}
}

func toReassignmentResponse(r service.ReassignmentResult) transport.ReassignmentResponse {
	return transport.ReassignmentResponse{
		NewReferral:             toReferralResponse(r.NewReferral),
		MarkedExternalReferrals: toReferralResponses(r.MarkedExternal),
		Message:                 r.Message,
	}
}

func toHandoffResponse(h repository.Handoff) transport.HandoffResponse {
	return transport.HandoffResponse{
		ID:                h.ID,
		LeadID:            h.LeadID,
		ReferredByUserID:  h.ReferredByUserID,
		ReferredToAgentID: h.ReferredToAgentID,
		Status:            h.Status,
		CreatedAt:         h.CreatedAt,
		UpdatedAt:         h.UpdatedAt,
		ResolvedAt:        h.ResolvedAt,
	}
}

func toPendingResponses(items []repository.HandoffWithLead) []transport.HandoffResponse {
	out := make([]transport.HandoffResponse, len(items))
	for i, item := range items {
		resp := toHandoffResponse(item.Handoff)
		customer, status := item.CustomerName, item.LeadStatus
		resp.CustomerName = &customer
		resp.PhoneNumber = item.PhoneNumber
		resp.LeadStatus = &status
		resp.ReferredByName = item.ReferredByName
		out[i] = resp
	}
	return out
}

func toLeadResponse(l *ports.Lead) *transport.LeadResponse {
	if l == nil {
		return nil
	}
	return &transport.LeadResponse{
		ID:           l.ID,
		CustomerName: l.CustomerName,
		PhoneNumber:  l.PhoneNumber,
		AgentID:      l.AgentID,
		Status:       l.Status,
	}
}
