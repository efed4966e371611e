package repository

import (
	"time"

	"github.com/google/uuid"
)

// Referral is one ledger entry attributing a lead to a referrer.
type Referral struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	AgentID      *uuid.UUID
	Name         string
	Type         string
	ReferralDate time.Time
	External     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReferralWithAgent carries the current agent display info next to an entry.
// Name on the entry stays authoritative for history.
type ReferralWithAgent struct {
	Referral
	AgentName *string
	AgentRole *string
}

// ReferralWithLead carries the lead summary next to an entry.
type ReferralWithLead struct {
	Referral
	CustomerName string
	PhoneNumber  *string
	LeadStatus   string
}

// ReferralStats aggregates an agent's ledger.
type ReferralStats struct {
	AgentID           uuid.UUID
	Total             int
	Internal          int
	External          int
	FirstReferralDate *time.Time
	LastReferralDate  *time.Time
}

type CreateReferralParams struct {
	LeadID       uuid.UUID
	AgentID      *uuid.UUID
	Name         string
	Type         string
	ReferralDate time.Time
}

// LockedLead is the lead row held for the duration of a rule-engine transaction.
type LockedLead struct {
	ID      uuid.UUID
	AgentID *uuid.UUID
}

// Handoff is a peer-to-peer lead transfer request.
type Handoff struct {
	ID                uuid.UUID
	LeadID            uuid.UUID
	ReferredByUserID  uuid.UUID
	ReferredToAgentID uuid.UUID
	Status            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ResolvedAt        *time.Time
}

// HandoffWithLead is a pending request as shown to its recipient.
type HandoffWithLead struct {
	Handoff
	CustomerName   string
	PhoneNumber    *string
	LeadStatus     string
	ReferredByName *string
}

type CreateHandoffParams struct {
	LeadID            uuid.UUID
	ReferredByUserID  uuid.UUID
	ReferredToAgentID uuid.UUID
}
