package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"finders_crm_backend/internal/referrals/domain"
	"finders_crm_backend/internal/referrals/ports"
	"finders_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLead(t *testing.T, m *Memory) ports.Lead {
	t.Helper()
	lead := ports.Lead{ID: uuid.New(), CustomerName: "Rami Haddad", Status: "Active"}
	m.PutLead(lead)
	return lead
}

func TestMemoryOrdersNewestFirstWithInsertionTiebreak(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	lead := seedLead(t, m)
	day := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	older, err := m.CreateReferral(ctx, CreateReferralParams{LeadID: lead.ID, Name: "A", Type: domain.TypeCustom, ReferralDate: day.AddDate(0, 0, -3)})
	require.NoError(t, err)
	first, err := m.CreateReferral(ctx, CreateReferralParams{LeadID: lead.ID, Name: "B", Type: domain.TypeCustom, ReferralDate: day})
	require.NoError(t, err)
	second, err := m.CreateReferral(ctx, CreateReferralParams{LeadID: lead.ID, Name: "C", Type: domain.TypeCustom, ReferralDate: day})
	require.NoError(t, err)

	got, err := m.ListLeadReferrals(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []uuid.UUID{second.ID, first.ID, older.ID}, []uuid.UUID{got[0].ID, got[1].ID, got[2].ID})
}

func TestMemoryWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	lead := seedLead(t, m)
	ref, err := m.CreateReferral(ctx, CreateReferralParams{LeadID: lead.ID, Name: "A", Type: domain.TypeCustom, ReferralDate: time.Now()})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = m.WithinTx(ctx, func(s Store) error {
		if _, err := s.SetExternal(ctx, ref.ID, true); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	after, err := m.GetReferralByID(ctx, ref.ID)
	require.NoError(t, err)
	assert.False(t, after.External)
}

func TestMemoryOnePendingHandoffPerLead(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	lead := seedLead(t, m)
	params := CreateHandoffParams{LeadID: lead.ID, ReferredByUserID: uuid.New(), ReferredToAgentID: uuid.New()}

	h, err := m.CreateHandoff(ctx, params)
	require.NoError(t, err)

	_, err = m.CreateHandoff(ctx, params)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = m.ResolveHandoff(ctx, h.ID, string(domain.HandoffRejected), time.Now())
	require.NoError(t, err)

	_, err = m.CreateHandoff(ctx, params)
	assert.NoError(t, err)
}

func TestMemoryStatsByAgent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	lead := seedLead(t, m)
	agent := uuid.New()
	early := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	late := early.AddDate(0, 2, 0)

	a, err := m.CreateReferral(ctx, CreateReferralParams{LeadID: lead.ID, AgentID: &agent, Name: "Nour", Type: domain.TypeEmployee, ReferralDate: early})
	require.NoError(t, err)
	_, err = m.CreateReferral(ctx, CreateReferralParams{LeadID: lead.ID, AgentID: &agent, Name: "Nour", Type: domain.TypeEmployee, ReferralDate: late})
	require.NoError(t, err)
	_, err = m.SetExternal(ctx, a.ID, true)
	require.NoError(t, err)

	stats, err := m.StatsByAgent(ctx, agent)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Internal)
	assert.Equal(t, 1, stats.External)
	require.NotNil(t, stats.FirstReferralDate)
	assert.True(t, early.Equal(*stats.FirstReferralDate))
	assert.True(t, late.Equal(*stats.LastReferralDate))
}

func TestMemoryRejectPendingHandoffs(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	lead := seedLead(t, m)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	h, err := m.CreateHandoff(ctx, CreateHandoffParams{LeadID: lead.ID, ReferredByUserID: uuid.New(), ReferredToAgentID: uuid.New()})
	require.NoError(t, err)

	closed, err := m.RejectPendingHandoffs(ctx, lead.ID, at)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, h.ID, closed[0].ID)
	assert.Equal(t, string(domain.HandoffRejected), closed[0].Status)
	require.NotNil(t, closed[0].ResolvedAt)
	assert.Equal(t, at, *closed[0].ResolvedAt)

	pending, err := m.HasPendingHandoff(ctx, lead.ID)
	require.NoError(t, err)
	assert.False(t, pending)

	closed, err = m.RejectPendingHandoffs(ctx, lead.ID, at)
	require.NoError(t, err)
	assert.Empty(t, closed)
}

func TestMemoryRollbackKeepsWritesMadeOutsideTx(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	lead := seedLead(t, m)

	started := make(chan struct{})
	written := make(chan Referral, 1)
	boom := errors.New("boom")

	err := m.WithinTx(ctx, func(s Store) error {
		go func() {
			close(started)
			ref, err := m.CreateReferral(ctx, CreateReferralParams{LeadID: lead.ID, Name: "Outside", Type: domain.TypeCustom, ReferralDate: time.Now()})
			if err == nil {
				written <- ref
			}
			close(written)
		}()
		<-started
		time.Sleep(10 * time.Millisecond)
		if _, err := s.CreateReferral(ctx, CreateReferralParams{LeadID: lead.ID, Name: "Inside", Type: domain.TypeCustom, ReferralDate: time.Now()}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	ref, ok := <-written
	require.True(t, ok, "outside write failed")

	got, err := m.ListLeadReferrals(ctx, lead.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ref.ID, got[0].ID)
	assert.Equal(t, "Outside", got[0].Name)
}
