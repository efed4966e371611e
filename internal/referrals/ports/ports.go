// Package ports defines consumer-driven interfaces for the collaborators the
// referrals domain reads from. Other modules satisfy them through adapters.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// Lead is the lead summary the handoff workflow needs.
type Lead struct {
	ID           uuid.UUID
	CustomerName string
	PhoneNumber  *string
	AgentID      *uuid.UUID
	Status       string
	// StatusCanBeReferred is nil when the status has no explicit flag.
	StatusCanBeReferred *bool
}

// User is the directory view of a user used for name snapshots.
type User struct {
	ID    uuid.UUID
	Name  string
	Email string
	Role  string
}

// LeadReader loads leads. Returns apperr NotFound when the lead is absent.
type LeadReader interface {
	GetLeadByID(ctx context.Context, id uuid.UUID) (Lead, error)
}

// UserDirectory resolves users. Returns apperr NotFound when the user is absent.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
}
