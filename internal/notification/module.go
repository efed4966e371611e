// Package notification turns referral domain events into in-app
// notifications. Domain modules publish events and never know who listens.
package notification

import (
	"context"
	"fmt"

	"finders_crm_backend/internal/events"
	apphttp "finders_crm_backend/internal/http"
	notifhandler "finders_crm_backend/internal/notification/handler"
	"finders_crm_backend/internal/notification/inapp"
	"finders_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Notification types stored with each in-app message.
const (
	TypeReferralRequested = "referral_requested"
	TypeReferralConfirmed = "referral_confirmed"
	TypeReferralRejected  = "referral_rejected"
	TypeLeadReassigned    = "lead_reassigned"
	TypeReferralCredited  = "referral_credited"

	resourceLead = "lead"
)

// Module handles all notification-related event subscriptions.
type Module struct {
	inApp   *inapp.Service
	handler *notifhandler.HTTPHandler
	log     *logger.Logger
}

func New(store inapp.Store, log *logger.Logger) *Module {
	if log == nil {
		log = logger.Discard()
	}
	svc := inapp.NewService(store, log)
	return &Module{
		inApp:   svc,
		handler: notifhandler.NewHTTPHandler(svc),
		log:     log,
	}
}

func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes exposes the caller's notification inbox.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

// RegisterHandlers subscribes the module to every event it turns into a message.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadReferralRequested{}.EventName(), m)
	bus.Subscribe(events.LeadReferralConfirmed{}.EventName(), m)
	bus.Subscribe(events.LeadReferralRejected{}.EventName(), m)
	bus.Subscribe(events.LeadReassigned{}.EventName(), m)
	bus.Subscribe(events.ReferralCreated{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadReferralRequested:
		return m.handleReferralRequested(ctx, e)
	case events.LeadReferralConfirmed:
		return m.handleReferralConfirmed(ctx, e)
	case events.LeadReferralRejected:
		return m.handleReferralRejected(ctx, e)
	case events.LeadReassigned:
		return m.handleLeadReassigned(ctx, e)
	case events.ReferralCreated:
		return m.handleReferralCreated(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleReferralRequested(ctx context.Context, e events.LeadReferralRequested) error {
	return m.send(ctx, e.ReferredToAgentID, e.LeadID, TypeReferralRequested,
		"New lead referral",
		fmt.Sprintf("Lead %s has been referred to you. Confirm or reject it from your pending referrals.", e.CustomerName),
		e)
}

func (m *Module) handleReferralConfirmed(ctx context.Context, e events.LeadReferralConfirmed) error {
	return m.send(ctx, e.ReferredByUserID, e.LeadID, TypeReferralConfirmed,
		"Referral confirmed",
		fmt.Sprintf("%s accepted your referral of lead %s.", displayName(e.ReferredToName), e.CustomerName),
		e)
}

func (m *Module) handleReferralRejected(ctx context.Context, e events.LeadReferralRejected) error {
	return m.send(ctx, e.ReferredByUserID, e.LeadID, TypeReferralRejected,
		"Referral rejected",
		fmt.Sprintf("%s declined your referral of lead %s.", displayName(e.ReferredToName), e.CustomerName),
		e)
}

// Handoff reassignments are already covered by the confirmation message.
func (m *Module) handleLeadReassigned(ctx context.Context, e events.LeadReassigned) error {
	if e.Source != events.ReassignedByAdmin {
		return nil
	}
	return m.send(ctx, e.NewAgentID, e.LeadID, TypeLeadReassigned,
		"Lead assigned to you",
		"An administrator has assigned a lead to you.",
		e)
}

// Entries credited to an external name have nobody to tell.
func (m *Module) handleReferralCreated(ctx context.Context, e events.ReferralCreated) error {
	if e.AgentID == nil {
		return nil
	}
	return m.send(ctx, *e.AgentID, e.LeadID, TypeReferralCredited,
		"Referral credited",
		"A referral has been recorded in your name.",
		e)
}

func (m *Module) send(ctx context.Context, userID, leadID uuid.UUID, kind, title, content string, payload any) error {
	resourceID := leadID
	if err := m.inApp.Send(ctx, inapp.SendParams{
		UserID:       userID,
		Type:         kind,
		Title:        title,
		Content:      content,
		ResourceID:   &resourceID,
		ResourceType: resourceLead,
		Payload:      payload,
	}); err != nil {
		return fmt.Errorf("send %s notification: %w", kind, err)
	}
	m.log.Info("in-app notification sent", "type", kind, "userId", userID, "leadId", leadID)
	return nil
}

func displayName(name string) string {
	if name == "" {
		return "The agent"
	}
	return name
}

var _ apphttp.Module = (*Module)(nil)
