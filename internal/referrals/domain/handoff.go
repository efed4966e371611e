package domain

import (
	"fmt"
	"slices"

	"finders_crm_backend/platform/apperr"
)

// HandoffStatus is the state of a lead handoff request.
type HandoffStatus string

const (
	HandoffPending   HandoffStatus = "pending"
	HandoffConfirmed HandoffStatus = "confirmed"
	HandoffRejected  HandoffStatus = "rejected"
)

// ParseHandoffStatus validates a stored status value.
func ParseHandoffStatus(s string) (HandoffStatus, error) {
	switch HandoffStatus(s) {
	case HandoffPending, HandoffConfirmed, HandoffRejected:
		return HandoffStatus(s), nil
	default:
		return "", fmt.Errorf("unknown handoff status %q", s)
	}
}

// IsTerminal reports whether no further transition is possible.
func (s HandoffStatus) IsTerminal() bool {
	return s == HandoffConfirmed || s == HandoffRejected
}

// Transition validates moving from s to next. Only pending requests resolve,
// and only to confirmed or rejected.
func (s HandoffStatus) Transition(next HandoffStatus) (HandoffStatus, error) {
	if s.IsTerminal() {
		return s, apperr.Conflict(fmt.Sprintf("Referral has already been %s.", s))
	}
	if s != HandoffPending {
		return s, apperr.Internal(fmt.Sprintf("unknown handoff status %q", s))
	}
	if next != HandoffConfirmed && next != HandoffRejected {
		return s, apperr.BadRequest(fmt.Sprintf("cannot move a pending referral to %q", next))
	}
	return next, nil
}

const (
	RoleAgent      = "agent"
	RoleTeamLeader = "team_leader"
	RoleAdmin      = "admin"
)

// Actions named in role-gate rejections.
const (
	ActionRefer       = "refer leads"
	ActionConfirm     = "confirm referrals"
	ActionReject      = "reject referrals"
	ActionViewPending = "view pending referrals"
)

var handoffRoles = []string{RoleAgent, RoleTeamLeader}

// CanHandleReferrals reports whether any of roles may take part in handoffs.
func CanHandleReferrals(roles []string) bool {
	for _, r := range roles {
		if slices.Contains(handoffRoles, r) {
			return true
		}
	}
	return false
}

// RoleGateMessage is the rejection for callers without a handoff role.
func RoleGateMessage(action string) string {
	return fmt.Sprintf("Access denied. Only agents and team leaders can %s.", action)
}
