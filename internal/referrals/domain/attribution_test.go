package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return refNow.Add(-time.Duration(n) * 24 * time.Hour)
}

func entry(at time.Time, external bool) LedgerEntry {
	return LedgerEntry{ID: uuid.New(), ReferralDate: at, External: external}
}

func TestIsAgedOutWindowEdges(t *testing.T) {
	assert.False(t, IsAgedOut(refNow, daysAgo(29)), "29 days stays internal")
	assert.True(t, IsAgedOut(refNow, daysAgo(30)), "exactly 30 days is external")
	assert.False(t, IsAgedOut(refNow, daysAgo(30).Add(time.Second)), "just under 30 days stays internal")
	assert.True(t, IsAgedOut(refNow, daysAgo(31)))
}

func TestPlanExternalRuleLeavesAnchorAlone(t *testing.T) {
	anchor := entry(refNow, true)
	plan := PlanExternalRule([]LedgerEntry{anchor})

	assert.False(t, plan.Changed())
}

func TestPlanExternalRuleClassifiesAgainstAnchor(t *testing.T) {
	anchor := entry(refNow, false)
	within := entry(daysAgo(29), false)
	edge := entry(daysAgo(30), false)
	wronglyExternal := entry(daysAgo(10), true)
	alreadyExternal := entry(daysAgo(90), true)

	plan := PlanExternalRule([]LedgerEntry{anchor, wronglyExternal, within, edge, alreadyExternal})

	assert.Equal(t, []uuid.UUID{edge.ID}, plan.MarkExternal)
	assert.Equal(t, []uuid.UUID{wronglyExternal.ID}, plan.RestoreInternal)
}

func TestPlanExternalRuleIsIdempotentOnceApplied(t *testing.T) {
	entries := []LedgerEntry{
		entry(refNow, false),
		entry(daysAgo(45), false),
		entry(daysAgo(5), true),
	}

	first := PlanExternalRule(entries)
	require.True(t, first.Changed())

	applied := make([]LedgerEntry, len(entries))
	copy(applied, entries)
	for i := range applied {
		for _, id := range first.MarkExternal {
			if applied[i].ID == id {
				applied[i].External = true
			}
		}
		for _, id := range first.RestoreInternal {
			if applied[i].ID == id {
				applied[i].External = false
			}
		}
	}

	assert.False(t, PlanExternalRule(applied).Changed())
}

func TestPlanReassignmentUsesWallClock(t *testing.T) {
	alice := entry(daysAgo(40), false)
	bob := entry(daysAgo(20), false)

	aged := PlanReassignment(refNow, []LedgerEntry{bob, alice})

	assert.Equal(t, []uuid.UUID{alice.ID}, aged)
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "All referrals are already consistent", ExternalRuleMessage(0, 0))
	assert.Equal(t, "Marked 2 referral(s) as external, restored 1 referral(s) to internal", ExternalRuleMessage(2, 1))

	assert.Equal(t, "First referral for this lead", ReassignmentMessage(0, 0))
	assert.Equal(t, "All previous referrals remain internal (within 1 month)", ReassignmentMessage(2, 0))
	assert.Equal(t, "Marked 1 referral(s) as external (over 1 month old)", ReassignmentMessage(2, 1))
}
