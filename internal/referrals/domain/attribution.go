// Package domain holds the attribution window and handoff rules for lead
// referrals. Nothing in here touches storage.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExternalAfter is how far behind the anchor an entry may fall before it
// stops being commission-eligible.
const ExternalAfter = 30 * 24 * time.Hour

const externalAfterDays = float64(ExternalAfter) / float64(24*time.Hour)

const (
	TypeEmployee = "employee"
	TypeCustom   = "custom"
)

const (
	MsgNoReferrals      = "No referrals to process"
	MsgAllConsistent    = "All referrals are already consistent"
	MsgFirstReferral    = "First referral for this lead"
	MsgAllStillInternal = "All previous referrals remain internal (within 1 month)"
)

// LedgerEntry is the slice of a referral the rule engine reasons about.
type LedgerEntry struct {
	ID           uuid.UUID
	ReferralDate time.Time
	External     bool
}

// DaysBetween returns the fractional number of days from earlier to later.
func DaysBetween(later, earlier time.Time) float64 {
	return float64(later.Sub(earlier)) / float64(24*time.Hour)
}

// IsAgedOut reports whether an entry dated at falls at least 30 days behind ref.
func IsAgedOut(ref, at time.Time) bool {
	return DaysBetween(ref, at) >= externalAfterDays
}

// IsValidReferralType reports whether t is a known ledger entry type.
func IsValidReferralType(t string) bool {
	return t == TypeEmployee || t == TypeCustom
}

// ExternalRulePlan lists the flag flips a full recomputation requires.
type ExternalRulePlan struct {
	MarkExternal    []uuid.UUID
	RestoreInternal []uuid.UUID
}

// Changed reports whether the plan touches any entry.
func (p ExternalRulePlan) Changed() bool {
	return len(p.MarkExternal) > 0 || len(p.RestoreInternal) > 0
}

// PlanExternalRule classifies every entry against the anchor, entries[0].
// entries must be ordered newest first. The anchor's own flag is never
// reclassified.
func PlanExternalRule(entries []LedgerEntry) ExternalRulePlan {
	var plan ExternalRulePlan
	if len(entries) < 2 {
		return plan
	}

	anchor := entries[0]
	for _, e := range entries[1:] {
		aged := IsAgedOut(anchor.ReferralDate, e.ReferralDate)
		switch {
		case aged && !e.External:
			plan.MarkExternal = append(plan.MarkExternal, e.ID)
		case !aged && e.External:
			plan.RestoreInternal = append(plan.RestoreInternal, e.ID)
		}
	}
	return plan
}

// PlanReassignment returns the internal entries that have aged out relative
// to now. The new anchor does not exist yet, so wall-clock time is the reference.
func PlanReassignment(now time.Time, internal []LedgerEntry) []uuid.UUID {
	var out []uuid.UUID
	for _, e := range internal {
		if e.External {
			continue
		}
		if IsAgedOut(now, e.ReferralDate) {
			out = append(out, e.ID)
		}
	}
	return out
}

// ExternalRuleMessage summarises a full recomputation.
func ExternalRuleMessage(marked, restored int) string {
	if marked == 0 && restored == 0 {
		return MsgAllConsistent
	}
	return fmt.Sprintf("Marked %d referral(s) as external, restored %d referral(s) to internal", marked, restored)
}

// ReassignmentMessage summarises a reassignment given how many internal
// entries were loaded and how many of them aged out.
func ReassignmentMessage(loaded, marked int) string {
	switch {
	case loaded == 0:
		return MsgFirstReferral
	case marked == 0:
		return MsgAllStillInternal
	default:
		return fmt.Sprintf("Marked %d referral(s) as external (over 1 month old)", marked)
	}
}
