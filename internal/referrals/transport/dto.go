// Package transport holds the JSON request and response shapes of the
// referrals HTTP API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type ReferLeadRequest struct {
	ReferredToAgentID *uuid.UUID `json:"referred_to_agent_id"`
}

type CreateReferralRequest struct {
	LeadID       uuid.UUID  `json:"lead_id" validate:"required"`
	AgentID      *uuid.UUID `json:"agent_id"`
	Name         string     `json:"name" validate:"max=200"`
	Type         string     `json:"type" validate:"omitempty,oneof=employee custom"`
	ReferralDate *time.Time `json:"referral_date"`
}

type ReassignLeadRequest struct {
	AgentID uuid.UUID `json:"agent_id" validate:"required"`
}

type ReferralResponse struct {
	ID           uuid.UUID  `json:"id"`
	LeadID       uuid.UUID  `json:"lead_id"`
	AgentID      *uuid.UUID `json:"agent_id"`
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	ReferralDate time.Time  `json:"referral_date"`
	External     bool       `json:"external"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	AgentName    *string    `json:"agent_name,omitempty"`
	AgentRole    *string    `json:"agent_role,omitempty"`
	CustomerName *string    `json:"customer_name,omitempty"`
	PhoneNumber  *string    `json:"phone_number,omitempty"`
	LeadStatus   *string    `json:"status,omitempty"`
}

type ReferralStatsResponse struct {
	AgentID           uuid.UUID  `json:"agent_id"`
	Total             int        `json:"total"`
	Internal          int        `json:"internal"`
	External          int        `json:"external"`
	FirstReferralDate *time.Time `json:"first_referral_date"`
	LastReferralDate  *time.Time `json:"last_referral_date"`
}

type ExternalRuleResponse struct {
	LeadID                    uuid.UUID          `json:"lead_id"`
	MarkedExternalReferrals   []ReferralResponse `json:"marked_external_referrals"`
	RestoredInternalReferrals []ReferralResponse `json:"restored_internal_referrals"`
	Message                   string             `json:"message"`
}

type ReassignmentResponse struct {
	NewReferral             ReferralResponse   `json:"new_referral"`
	MarkedExternalReferrals []ReferralResponse `json:"marked_external_referrals"`
	Message                 string             `json:"message"`
}

type HandoffResponse struct {
	ID                uuid.UUID  `json:"id"`
	LeadID            uuid.UUID  `json:"lead_id"`
	ReferredByUserID  uuid.UUID  `json:"referred_by_user_id"`
	ReferredToAgentID uuid.UUID  `json:"referred_to_agent_id"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	ResolvedAt        *time.Time `json:"resolved_at"`
	CustomerName      *string    `json:"customer_name,omitempty"`
	PhoneNumber       *string    `json:"phone_number,omitempty"`
	LeadStatus        *string    `json:"lead_status,omitempty"`
	ReferredByName    *string    `json:"referred_by_name,omitempty"`
}

type LeadResponse struct {
	ID           uuid.UUID  `json:"id"`
	CustomerName string     `json:"customer_name"`
	PhoneNumber  *string    `json:"phone_number"`
	AgentID      *uuid.UUID `json:"agent_id"`
	Status       string     `json:"status"`
}

type ConfirmReferralResponse struct {
	Message     string               `json:"message"`
	Referral    HandoffResponse      `json:"referral"`
	Lead        *LeadResponse        `json:"lead,omitempty"`
	Attribution ReassignmentResponse `json:"attribution"`
}

type HandoffMessageResponse struct {
	Message  string          `json:"message"`
	Referral HandoffResponse `json:"referral"`
}

type PendingReferralsResponse struct {
	Items []HandoffResponse `json:"items"`
	Total int               `json:"total"`
}

type PendingCountResponse struct {
	Count int `json:"count"`
}
