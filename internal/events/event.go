// Package events lists the lead and referral events exchanged between the
// referrals, notification and scheduler modules, and aliases the platform
// bus so those modules need a single import.
package events

import (
	"finders_crm_backend/platform/events"
	"finders_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus returns the process-local bus used by the binaries.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// Reassignment sources.
const (
	ReassignedByHandoff = "handoff"
	ReassignedByAdmin   = "admin"
)

// LeadReferralRequested is published when an agent asks a peer to take over a lead.
type LeadReferralRequested struct {
	BaseEvent
	HandoffID         uuid.UUID `json:"handoffId"`
	LeadID            uuid.UUID `json:"leadId"`
	CustomerName      string    `json:"customerName"`
	ReferredByUserID  uuid.UUID `json:"referredByUserId"`
	ReferredToAgentID uuid.UUID `json:"referredToAgentId"`
}

func (e LeadReferralRequested) EventName() string { return "referrals.handoff.requested" }

// LeadReferralConfirmed is published after a handoff confirmation commits.
type LeadReferralConfirmed struct {
	BaseEvent
	HandoffID         uuid.UUID `json:"handoffId"`
	LeadID            uuid.UUID `json:"leadId"`
	CustomerName      string    `json:"customerName"`
	ReferredByUserID  uuid.UUID `json:"referredByUserId"`
	ReferredToAgentID uuid.UUID `json:"referredToAgentId"`
	ReferredToName    string    `json:"referredToName"`
}

func (e LeadReferralConfirmed) EventName() string { return "referrals.handoff.confirmed" }

// LeadReferralRejected is published after a handoff rejection commits.
type LeadReferralRejected struct {
	BaseEvent
	HandoffID         uuid.UUID `json:"handoffId"`
	LeadID            uuid.UUID `json:"leadId"`
	CustomerName      string    `json:"customerName"`
	ReferredByUserID  uuid.UUID `json:"referredByUserId"`
	ReferredToAgentID uuid.UUID `json:"referredToAgentId"`
	ReferredToName    string    `json:"referredToName"`
}

func (e LeadReferralRejected) EventName() string { return "referrals.handoff.rejected" }

// LeadReassigned is published whenever lead ownership changes.
type LeadReassigned struct {
	BaseEvent
	LeadID          uuid.UUID  `json:"leadId"`
	PreviousAgentID *uuid.UUID `json:"previousAgentId,omitempty"`
	NewAgentID      uuid.UUID  `json:"newAgentId"`
	AssignedByID    uuid.UUID  `json:"assignedById"`
	Source          string     `json:"source"`
	MarkedExternal  int        `json:"markedExternal"`
}

func (e LeadReassigned) EventName() string { return "leads.reassigned" }

// ReferralCreated is published when a ledger entry is added outside a reassignment.
type ReferralCreated struct {
	BaseEvent
	ReferralID uuid.UUID  `json:"referralId"`
	LeadID     uuid.UUID  `json:"leadId"`
	AgentID    *uuid.UUID `json:"agentId,omitempty"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
}

func (e ReferralCreated) EventName() string { return "referrals.ledger.created" }
