package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"finders_crm_backend/internal/events"
	"finders_crm_backend/internal/referrals/domain"
	"finders_crm_backend/internal/referrals/ports"
	"finders_crm_backend/internal/referrals/repository"
	"finders_crm_backend/platform/apperr"
	"finders_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.EventName()
	}
	return out
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *repository.Memory
	bus   *recordingBus
	svc   *Service
	now   time.Time
	alice ports.User
	bob   ports.User
	carol ports.User
	lead  ports.Lead
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store := repository.NewMemory()
	store.SetClock(clock)
	bus := &recordingBus{}
	svc := New(store, store, store, bus, logger.Discard())
	svc.SetClock(clock)

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: store,
		bus:   bus,
		svc:   svc,
		now:   now,
		alice: ports.User{ID: uuid.New(), Name: "Alice", Email: "alice@finders.example", Role: domain.RoleAgent},
		bob:   ports.User{ID: uuid.New(), Name: "Bob", Email: "bob@finders.example", Role: domain.RoleAgent},
		carol: ports.User{ID: uuid.New(), Name: "Carol", Email: "carol@finders.example", Role: domain.RoleTeamLeader},
	}
	for _, u := range []ports.User{f.alice, f.bob, f.carol} {
		store.PutUser(u)
	}

	aliceID := f.alice.ID
	f.lead = ports.Lead{ID: uuid.New(), CustomerName: "Karim Saade", AgentID: &aliceID, Status: "Active"}
	store.PutLead(f.lead)
	return f
}

func (f *fixture) daysAgo(n int) time.Time {
	return f.now.Add(-time.Duration(n) * 24 * time.Hour)
}

func (f *fixture) seed(agent ports.User, daysAgo int, external bool) repository.Referral {
	f.t.Helper()
	id := agent.ID
	ref, err := f.store.CreateReferral(f.ctx, repository.CreateReferralParams{
		LeadID:       f.lead.ID,
		AgentID:      &id,
		Name:         agent.Name,
		Type:         domain.TypeEmployee,
		ReferralDate: f.daysAgo(daysAgo),
	})
	require.NoError(f.t, err)
	if external {
		ref, err = f.store.SetExternal(f.ctx, ref.ID, true)
		require.NoError(f.t, err)
	}
	return ref
}

func (f *fixture) ledger() []repository.Referral {
	f.t.Helper()
	refs, err := f.store.ListLeadReferrals(f.ctx, f.lead.ID)
	require.NoError(f.t, err)
	return refs
}

func (f *fixture) entry(id uuid.UUID) repository.Referral {
	f.t.Helper()
	ref, err := f.store.GetReferralByID(f.ctx, id)
	require.NoError(f.t, err)
	return ref
}

func actorFor(u ports.User) Actor {
	return Actor{UserID: u.ID, Roles: []string{u.Role}}
}

func assertKind(t *testing.T, err error, kind apperr.Kind, message string) {
	t.Helper()
	require.Error(t, err)
	domainErr, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %T: %v", err, err)
	assert.Equal(t, kind, domainErr.Kind)
	if message != "" {
		assert.Equal(t, message, domainErr.Message)
	}
}
