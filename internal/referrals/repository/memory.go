package repository

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"finders_crm_backend/internal/referrals/domain"
	"finders_crm_backend/internal/referrals/ports"
	"finders_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for tests and local tooling)
// =============================================================================

// Memory is an in-process Repository. Transactions are serialised and roll
// back by restoring a snapshot. Writes made outside a transaction wait for
// the open one to finish, so a rollback never discards them. It also serves
// leads and users through the ports interfaces so a service can run against
// it end to end.
type Memory struct {
	txMu sync.Mutex
	*memState
}

// memState holds the data. Its methods only take mu; WithinTx hands it to
// the transaction body directly.
type memState struct {
	mu sync.Mutex

	users     map[uuid.UUID]ports.User
	leads     map[uuid.UUID]ports.Lead
	referrals map[uuid.UUID]memReferral
	handoffs  map[uuid.UUID]Handoff
	seq       int64

	faults map[string]error
	now    func() time.Time
}

type memReferral struct {
	Referral
	seq int64
}

type memSnapshot struct {
	leads     map[uuid.UUID]ports.Lead
	referrals map[uuid.UUID]memReferral
	handoffs  map[uuid.UUID]Handoff
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{memState: &memState{
		users:     make(map[uuid.UUID]ports.User),
		leads:     make(map[uuid.UUID]ports.Lead),
		referrals: make(map[uuid.UUID]memReferral),
		handoffs:  make(map[uuid.UUID]Handoff),
		faults:    make(map[string]error),
		now:       time.Now,
	}}
}

var (
	_ Repository          = (*Memory)(nil)
	_ Store               = (*memState)(nil)
	_ ports.LeadReader    = (*Memory)(nil)
	_ ports.UserDirectory = (*Memory)(nil)
)

// SetClock overrides the timestamp source for created_at/updated_at.
func (m *memState) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// FailOn makes the next call to the named method return err.
func (m *memState) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[method] = err
}

func (m *memState) faultLocked(method string) error {
	err, ok := m.faults[method]
	if !ok {
		return nil
	}
	delete(m.faults, method)
	return err
}

// PutUser seeds a user.
func (m *Memory) PutUser(u ports.User) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// PutLead seeds or replaces a lead.
func (m *Memory) PutLead(l ports.Lead) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[l.ID] = l
}

// GetLeadByID implements ports.LeadReader.
func (m *memState) GetLeadByID(_ context.Context, id uuid.UUID) (ports.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[id]
	if !ok {
		return ports.Lead{}, apperr.NotFound(domain.MsgLeadNotFound)
	}
	return lead, nil
}

// GetUserByID implements ports.UserDirectory.
func (m *memState) GetUserByID(_ context.Context, id uuid.UUID) (ports.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ports.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

// WithinTx runs fn against the store and restores the pre-call state if fn fails.
func (m *Memory) WithinTx(_ context.Context, fn func(Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(m.memState); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// ---- writes outside a transaction ----

func (m *Memory) CreateReferral(ctx context.Context, p CreateReferralParams) (Referral, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.memState.CreateReferral(ctx, p)
}

func (m *Memory) SetExternal(ctx context.Context, id uuid.UUID, external bool) (Referral, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.memState.SetExternal(ctx, id, external)
}

func (m *Memory) DeleteReferral(ctx context.Context, id uuid.UUID) (Referral, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.memState.DeleteReferral(ctx, id)
}

func (m *Memory) AssignLeadAgent(ctx context.Context, leadID, agentID uuid.UUID) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.memState.AssignLeadAgent(ctx, leadID, agentID)
}

func (m *Memory) CreateHandoff(ctx context.Context, p CreateHandoffParams) (Handoff, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.memState.CreateHandoff(ctx, p)
}

func (m *Memory) ResolveHandoff(ctx context.Context, id uuid.UUID, status string, at time.Time) (Handoff, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.memState.ResolveHandoff(ctx, id, status, at)
}

func (m *Memory) RejectPendingHandoffs(ctx context.Context, leadID uuid.UUID, at time.Time) ([]Handoff, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return m.memState.RejectPendingHandoffs(ctx, leadID, at)
}

func (m *memState) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memSnapshot{
		leads:     maps.Clone(m.leads),
		referrals: maps.Clone(m.referrals),
		handoffs:  maps.Clone(m.handoffs),
	}
}

func (m *memState) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads = s.leads
	m.referrals = s.referrals
	m.handoffs = s.handoffs
}

// sortedLocked returns matching entries newest first, ties broken by insertion order.
func (m *memState) sortedLocked(match func(Referral) bool) []memReferral {
	out := make([]memReferral, 0)
	for _, r := range m.referrals {
		if match(r.Referral) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReferralDate.Equal(out[j].ReferralDate) {
			return out[i].ReferralDate.After(out[j].ReferralDate)
		}
		return out[i].seq > out[j].seq
	})
	return out
}

// ---- ledger ----

func (m *memState) CreateReferral(_ context.Context, p CreateReferralParams) (Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faultLocked("CreateReferral"); err != nil {
		return Referral{}, err
	}
	if _, ok := m.leads[p.LeadID]; !ok {
		return Referral{}, apperr.Validation("lead or agent does not exist").WithOp(opCreateReferral)
	}

	now := m.now()
	m.seq++
	ref := Referral{
		ID:           uuid.New(),
		LeadID:       p.LeadID,
		AgentID:      p.AgentID,
		Name:         p.Name,
		Type:         p.Type,
		ReferralDate: p.ReferralDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.referrals[ref.ID] = memReferral{Referral: ref, seq: m.seq}
	return ref, nil
}

func (m *memState) GetReferralByID(_ context.Context, id uuid.UUID) (Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.referrals[id]
	if !ok {
		return Referral{}, apperr.NotFound(domain.MsgReferralNotFound).WithOp(opGetReferral)
	}
	return r.Referral, nil
}

func (m *memState) ListByLead(_ context.Context, leadID uuid.UUID) ([]ReferralWithAgent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]ReferralWithAgent, 0)
	for _, r := range m.sortedLocked(func(r Referral) bool { return r.LeadID == leadID }) {
		item := ReferralWithAgent{Referral: r.Referral}
		if r.AgentID != nil {
			if u, ok := m.users[*r.AgentID]; ok {
				item.AgentName, item.AgentRole = &u.Name, &u.Role
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (m *memState) ListByAgent(_ context.Context, agentID uuid.UUID) ([]ReferralWithLead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]ReferralWithLead, 0)
	for _, r := range m.sortedLocked(func(r Referral) bool { return r.AgentID != nil && *r.AgentID == agentID }) {
		lead, ok := m.leads[r.LeadID]
		if !ok {
			continue
		}
		items = append(items, ReferralWithLead{
			Referral:     r.Referral,
			CustomerName: lead.CustomerName,
			PhoneNumber:  lead.PhoneNumber,
			LeadStatus:   lead.Status,
		})
	}
	return items, nil
}

func (m *memState) StatsByAgent(_ context.Context, agentID uuid.UUID) (ReferralStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := ReferralStats{AgentID: agentID}
	for _, r := range m.referrals {
		if r.AgentID == nil || *r.AgentID != agentID {
			continue
		}
		stats.Total++
		if r.External {
			stats.External++
		} else {
			stats.Internal++
		}
		date := r.ReferralDate
		if stats.FirstReferralDate == nil || date.Before(*stats.FirstReferralDate) {
			stats.FirstReferralDate = &date
		}
		if stats.LastReferralDate == nil || date.After(*stats.LastReferralDate) {
			stats.LastReferralDate = &date
		}
	}
	return stats, nil
}

func (m *memState) SetExternal(_ context.Context, id uuid.UUID, external bool) (Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faultLocked("SetExternal"); err != nil {
		return Referral{}, err
	}
	r, ok := m.referrals[id]
	if !ok {
		return Referral{}, apperr.NotFound(domain.MsgReferralNotFound).WithOp(opSetExternal)
	}
	r.External = external
	r.UpdatedAt = m.now()
	m.referrals[id] = r
	return r.Referral, nil
}

func (m *memState) DeleteReferral(_ context.Context, id uuid.UUID) (Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.referrals[id]
	if !ok {
		return Referral{}, apperr.NotFound(domain.MsgReferralNotFound).WithOp(opDeleteReferral)
	}
	delete(m.referrals, id)
	return r.Referral, nil
}

// ---- attribution ----

func (m *memState) LockLead(_ context.Context, leadID uuid.UUID) (LockedLead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[leadID]
	if !ok {
		return LockedLead{}, apperr.NotFound(domain.MsgLeadNotFound).WithOp(opLockLead)
	}
	return LockedLead{ID: lead.ID, AgentID: lead.AgentID}, nil
}

func (m *memState) ListLeadReferrals(_ context.Context, leadID uuid.UUID) ([]Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return unwrap(m.sortedLocked(func(r Referral) bool { return r.LeadID == leadID })), nil
}

func (m *memState) ListInternalLeadReferrals(_ context.Context, leadID uuid.UUID) ([]Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return unwrap(m.sortedLocked(func(r Referral) bool { return r.LeadID == leadID && !r.External })), nil
}

func (m *memState) AssignLeadAgent(_ context.Context, leadID, agentID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faultLocked("AssignLeadAgent"); err != nil {
		return err
	}
	lead, ok := m.leads[leadID]
	if !ok {
		return apperr.NotFound(domain.MsgLeadNotFound).WithOp(opAssignLeadAgent)
	}
	id := agentID
	lead.AgentID = &id
	m.leads[leadID] = lead
	return nil
}

func unwrap(in []memReferral) []Referral {
	out := make([]Referral, len(in))
	for i, r := range in {
		out[i] = r.Referral
	}
	return out
}

// ---- handoffs ----

func (m *memState) CreateHandoff(_ context.Context, p CreateHandoffParams) (Handoff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.handoffs {
		if h.LeadID == p.LeadID && h.Status == string(domain.HandoffPending) {
			return Handoff{}, apperr.Conflict(domain.MsgPendingHandoffExists).WithOp(opCreateHandoff)
		}
	}

	now := m.now()
	h := Handoff{
		ID:                uuid.New(),
		LeadID:            p.LeadID,
		ReferredByUserID:  p.ReferredByUserID,
		ReferredToAgentID: p.ReferredToAgentID,
		Status:            string(domain.HandoffPending),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	m.handoffs[h.ID] = h
	return h, nil
}

func (m *memState) GetHandoff(_ context.Context, id uuid.UUID) (Handoff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handoffs[id]
	if !ok {
		return Handoff{}, apperr.NotFound(domain.MsgReferralNotFound).WithOp(opGetHandoff)
	}
	return h, nil
}

func (m *memState) GetHandoffForUpdate(ctx context.Context, id uuid.UUID) (Handoff, error) {
	return m.GetHandoff(ctx, id)
}

func (m *memState) ResolveHandoff(_ context.Context, id uuid.UUID, status string, at time.Time) (Handoff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handoffs[id]
	if !ok || h.Status != string(domain.HandoffPending) {
		return Handoff{}, apperr.Conflict("Referral is no longer pending.").WithOp(opResolveHandoff)
	}
	resolved := at
	h.Status = status
	h.ResolvedAt = &resolved
	h.UpdatedAt = at
	m.handoffs[id] = h
	return h, nil
}

func (m *memState) RejectPendingHandoffs(_ context.Context, leadID uuid.UUID, at time.Time) ([]Handoff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faultLocked("RejectPendingHandoffs"); err != nil {
		return nil, err
	}
	closed := make([]Handoff, 0)
	for id, h := range m.handoffs {
		if h.LeadID != leadID || h.Status != string(domain.HandoffPending) {
			continue
		}
		resolved := at
		h.Status = string(domain.HandoffRejected)
		h.ResolvedAt = &resolved
		h.UpdatedAt = at
		m.handoffs[id] = h
		closed = append(closed, h)
	}
	return closed, nil
}

func (m *memState) HasPendingHandoff(_ context.Context, leadID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.handoffs {
		if h.LeadID == leadID && h.Status == string(domain.HandoffPending) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memState) ListPendingHandoffs(_ context.Context, agentID uuid.UUID) ([]HandoffWithLead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]HandoffWithLead, 0)
	for _, h := range m.handoffs {
		if h.ReferredToAgentID != agentID || h.Status != string(domain.HandoffPending) {
			continue
		}
		lead, ok := m.leads[h.LeadID]
		if !ok {
			continue
		}
		item := HandoffWithLead{
			Handoff:      h,
			CustomerName: lead.CustomerName,
			PhoneNumber:  lead.PhoneNumber,
			LeadStatus:   lead.Status,
		}
		if u, ok := m.users[h.ReferredByUserID]; ok {
			item.ReferredByName = &u.Name
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (m *memState) CountPendingHandoffs(ctx context.Context, agentID uuid.UUID) (int, error) {
	items, err := m.ListPendingHandoffs(ctx, agentID)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
