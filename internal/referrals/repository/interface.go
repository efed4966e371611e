package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LedgerReader provides read-only access to the referral ledger.
type LedgerReader interface {
	GetReferralByID(ctx context.Context, id uuid.UUID) (Referral, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]ReferralWithAgent, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID) ([]ReferralWithLead, error)
	StatsByAgent(ctx context.Context, agentID uuid.UUID) (ReferralStats, error)
}

// LedgerWriter mutates ledger entries.
type LedgerWriter interface {
	CreateReferral(ctx context.Context, params CreateReferralParams) (Referral, error)
	SetExternal(ctx context.Context, id uuid.UUID, external bool) (Referral, error)
	DeleteReferral(ctx context.Context, id uuid.UUID) (Referral, error)
}

// AttributionStore is what the rule engine needs inside its transaction.
type AttributionStore interface {
	// LockLead takes a row lock on the lead until the transaction ends.
	LockLead(ctx context.Context, leadID uuid.UUID) (LockedLead, error)
	// ListLeadReferrals returns every entry of a lead, newest first.
	ListLeadReferrals(ctx context.Context, leadID uuid.UUID) ([]Referral, error)
	// ListInternalLeadReferrals returns entries with external=false, newest first.
	ListInternalLeadReferrals(ctx context.Context, leadID uuid.UUID) ([]Referral, error)
	AssignLeadAgent(ctx context.Context, leadID, agentID uuid.UUID) error
}

// HandoffStore persists handoff requests.
type HandoffStore interface {
	CreateHandoff(ctx context.Context, params CreateHandoffParams) (Handoff, error)
	GetHandoff(ctx context.Context, id uuid.UUID) (Handoff, error)
	// GetHandoffForUpdate loads and row-locks a request.
	GetHandoffForUpdate(ctx context.Context, id uuid.UUID) (Handoff, error)
	ResolveHandoff(ctx context.Context, id uuid.UUID, status string, at time.Time) (Handoff, error)
	// RejectPendingHandoffs closes every pending request on a lead as rejected.
	RejectPendingHandoffs(ctx context.Context, leadID uuid.UUID, at time.Time) ([]Handoff, error)
	HasPendingHandoff(ctx context.Context, leadID uuid.UUID) (bool, error)
	ListPendingHandoffs(ctx context.Context, agentID uuid.UUID) ([]HandoffWithLead, error)
	CountPendingHandoffs(ctx context.Context, agentID uuid.UUID) (int, error)
}

// Store is the full set of operations available in or out of a transaction.
type Store interface {
	LedgerReader
	LedgerWriter
	AttributionStore
	HandoffStore
}

// Repository is a Store that can also open transactions.
type Repository interface {
	Store
	// WithinTx runs fn in one transaction. fn's error rolls everything back.
	WithinTx(ctx context.Context, fn func(Store) error) error
}
