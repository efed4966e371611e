package service

import (
	"errors"
	"testing"

	"finders_crm_backend/internal/referrals/domain"
	"finders_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyExternalRuleWithoutReferrals(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.ApplyExternalRuleToLeadReferrals(f.ctx, f.lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "No referrals to process", result.Message)
	assert.Empty(t, result.MarkedExternal)
}

func TestApplyExternalRuleUnknownLead(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ApplyExternalRuleToLeadReferrals(f.ctx, uuid.New())
	assertKind(t, err, apperr.KindNotFound, domain.MsgLeadNotFound)
}

func TestApplyExternalRuleReclassifiesAgainstAnchor(t *testing.T) {
	f := newFixture(t)
	anchor := f.seed(f.carol, 0, false)
	within := f.seed(f.bob, 29, false)
	edge := f.seed(f.bob, 30, false)
	stale := f.seed(f.alice, 45, false)
	wronglyExternal := f.seed(f.alice, 10, true)

	result, err := f.svc.ApplyExternalRuleToLeadReferrals(f.ctx, f.lead.ID)
	require.NoError(t, err)

	assert.Equal(t, "Marked 2 referral(s) as external, restored 1 referral(s) to internal", result.Message)
	assert.False(t, f.entry(anchor.ID).External, "anchor stays internal")
	assert.False(t, f.entry(within.ID).External, "29 days stays internal")
	assert.True(t, f.entry(edge.ID).External, "30 days becomes external")
	assert.True(t, f.entry(stale.ID).External)
	assert.False(t, f.entry(wronglyExternal.ID).External, "entry inside the window is restored")
}

func TestApplyExternalRuleIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seed(f.carol, 0, false)
	f.seed(f.bob, 35, false)
	f.seed(f.alice, 70, false)

	first, err := f.svc.ApplyExternalRuleToLeadReferrals(f.ctx, f.lead.ID)
	require.NoError(t, err)
	require.Len(t, first.MarkedExternal, 2)

	second, err := f.svc.ApplyExternalRuleToLeadReferrals(f.ctx, f.lead.ID)
	require.NoError(t, err)
	assert.Empty(t, second.MarkedExternal)
	assert.Empty(t, second.RestoredInternal)
	assert.Equal(t, "All referrals are already consistent", second.Message)
}

func TestApplyExternalRuleAfterOutOfOrderImport(t *testing.T) {
	f := newFixture(t)
	old := f.seed(f.alice, 60, false)
	f.seed(f.bob, 5, false)

	_, err := f.svc.ApplyExternalRuleToLeadReferrals(f.ctx, f.lead.ID)
	require.NoError(t, err)

	ledger := f.ledger()
	require.Len(t, ledger, 2)
	assert.False(t, ledger[0].External, "newest entry must stay internal")
	assert.True(t, f.entry(old.ID).External)
}

func TestReassignmentAliceFortyDaysAgo(t *testing.T) {
	f := newFixture(t)
	alice := f.seed(f.alice, 40, false)
	aliceID := f.alice.ID

	result, err := f.svc.ProcessLeadReassignment(f.ctx, f.lead.ID, f.bob.ID, &aliceID)
	require.NoError(t, err)

	assert.True(t, f.entry(alice.ID).External)
	assert.Contains(t, result.Message, "Marked 1 referral(s) as external")
	require.Len(t, result.MarkedExternal, 1)
	assert.Equal(t, alice.ID, result.MarkedExternal[0].ID)

	assert.Equal(t, f.bob.ID, *result.NewReferral.AgentID)
	assert.Equal(t, "Bob", result.NewReferral.Name)
	assert.Equal(t, domain.TypeEmployee, result.NewReferral.Type)
	assert.False(t, result.NewReferral.External)
	assert.True(t, f.now.Equal(result.NewReferral.ReferralDate))
}

func TestReassignmentAliceTwentyDaysAgo(t *testing.T) {
	f := newFixture(t)
	alice := f.seed(f.alice, 20, false)
	aliceID := f.alice.ID

	result, err := f.svc.ProcessLeadReassignment(f.ctx, f.lead.ID, f.bob.ID, &aliceID)
	require.NoError(t, err)

	assert.False(t, f.entry(alice.ID).External)
	assert.Empty(t, result.MarkedExternal)
	assert.Equal(t, "All previous referrals remain internal (within 1 month)", result.Message)
}

func TestReassignmentFirstReferral(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.ProcessLeadReassignment(f.ctx, f.lead.ID, f.bob.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "First referral for this lead", result.Message)
	assert.Len(t, f.ledger(), 1)
}

func TestReassignmentChainAliceBobCarol(t *testing.T) {
	f := newFixture(t)
	alice := f.seed(f.alice, 80, false)
	bob := f.seed(f.bob, 40, false)
	before := len(f.ledger())
	bobID := f.bob.ID

	result, err := f.svc.ProcessLeadReassignment(f.ctx, f.lead.ID, f.carol.ID, &bobID)
	require.NoError(t, err)

	ledger := f.ledger()
	require.Len(t, ledger, before+1, "reassignment appends exactly one entry")
	assert.Equal(t, result.NewReferral.ID, ledger[0].ID, "new entry is the anchor")
	assert.False(t, ledger[0].External)
	assert.True(t, f.entry(alice.ID).External)
	assert.True(t, f.entry(bob.ID).External)
	assert.Equal(t, "Marked 2 referral(s) as external (over 1 month old)", result.Message)
}

func TestReassignmentUnknownAgentTouchesNothing(t *testing.T) {
	f := newFixture(t)
	alice := f.seed(f.alice, 40, false)

	_, err := f.svc.ProcessLeadReassignment(f.ctx, f.lead.ID, uuid.New(), nil)
	assertKind(t, err, apperr.KindNotFound, domain.MsgAgentNotFound)
	assert.False(t, f.entry(alice.ID).External)
	assert.Len(t, f.ledger(), 1)
}

func TestReassignmentRollsBackOnStorageFailure(t *testing.T) {
	f := newFixture(t)
	alice := f.seed(f.alice, 40, false)
	f.store.FailOn("CreateReferral", apperr.Wrap(apperr.KindInternal, "create referral failed", errors.New("disk full")))

	_, err := f.svc.ProcessLeadReassignment(f.ctx, f.lead.ID, f.bob.ID, nil)
	assertKind(t, err, apperr.KindInternal, "")

	assert.False(t, f.entry(alice.ID).External, "flag flip rolled back")
	assert.Len(t, f.ledger(), 1)
}

func TestReassignLeadChangesOwnerAndPublishes(t *testing.T) {
	f := newFixture(t)
	alice := f.seed(f.alice, 31, false)
	admin := Actor{UserID: uuid.New(), Roles: []string{domain.RoleAdmin}}

	result, err := f.svc.ReassignLead(f.ctx, f.lead.ID, f.bob.ID, admin)
	require.NoError(t, err)
	assert.Len(t, result.MarkedExternal, 1)
	assert.True(t, f.entry(alice.ID).External)

	lead, err := f.store.GetLeadByID(f.ctx, f.lead.ID)
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, *lead.AgentID)
	assert.Equal(t, []string{"leads.reassigned"}, f.bus.names())
}

func TestReassignLeadRollbackKeepsOwner(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn("CreateReferral", apperr.Internal("create referral failed"))
	admin := Actor{UserID: uuid.New(), Roles: []string{domain.RoleAdmin}}

	_, err := f.svc.ReassignLead(f.ctx, f.lead.ID, f.bob.ID, admin)
	require.Error(t, err)

	lead, err := f.store.GetLeadByID(f.ctx, f.lead.ID)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, *lead.AgentID)
	assert.Empty(t, f.bus.names(), "nothing published when the transaction fails")
}
