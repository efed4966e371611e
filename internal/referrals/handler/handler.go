package handler

import (
	"errors"
	"io"
	"net/http"

	"finders_crm_backend/internal/referrals/service"
	"finders_crm_backend/internal/referrals/transport"
	"finders_crm_backend/platform/httpkit"
	"finders_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"

	msgReferred  = "Lead referred successfully"
	msgConfirmed = "Referral confirmed successfully"
	msgRejected  = "Referral rejected"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the agent-facing routes on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads/:id/refer", h.ReferLead)
	rg.GET("/leads/:id/referrals", h.ListByLead)
	rg.GET("/referrals/pending", h.ListPending)
	rg.GET("/referrals/pending/count", h.CountPending)
	rg.POST("/referrals/:id/confirm", h.Confirm)
	rg.POST("/referrals/:id/reject", h.Reject)
	rg.GET("/agents/:id/referrals", h.ListByAgent)
	rg.GET("/agents/:id/referrals/stats", h.Stats)
}

// RegisterAdminRoutes mounts the ledger maintenance routes on the admin group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/referrals", h.Create)
	rg.PATCH("/referrals/:id/external", h.MarkExternal)
	rg.DELETE("/referrals/:id", h.Delete)
	rg.POST("/leads/:id/referrals/apply-external-rule", h.ApplyExternalRule)
	rg.POST("/leads/:id/reassign", h.Reassign)
}

func actorFrom(id httpkit.Identity) service.Actor {
	return service.Actor{UserID: id.UserID(), Roles: id.Roles()}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) bindAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func (h *Handler) ReferLead(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	// An empty body is allowed so ownership is still checked before the
	// missing-target error.
	var req transport.ReferLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	target := uuid.Nil
	if req.ReferredToAgentID != nil {
		target = *req.ReferredToAgentID
	}

	handoff, err := h.svc.ReferLeadToAgent(c.Request.Context(), leadID, target, actorFrom(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.HandoffMessageResponse{Message: msgReferred, Referral: toHandoffResponse(handoff)})
}

func (h *Handler) Confirm(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.ConfirmReferral(c.Request.Context(), id, actorFrom(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ConfirmReferralResponse{
		Message:     msgConfirmed,
		Referral:    toHandoffResponse(result.Referral),
		Lead:        toLeadResponse(result.Lead),
		Attribution: toReassignmentResponse(result.Attribution),
	})
}

func (h *Handler) Reject(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	handoff, err := h.svc.RejectReferral(c.Request.Context(), id, actorFrom(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.HandoffMessageResponse{Message: msgRejected, Referral: toHandoffResponse(handoff)})
}

func (h *Handler) ListPending(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	items, err := h.svc.GetPendingReferralsForUser(c.Request.Context(), actorFrom(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.PendingReferralsResponse{Items: toPendingResponses(items), Total: len(items)})
}

func (h *Handler) CountPending(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	count, err := h.svc.GetPendingReferralsCount(c.Request.Context(), actorFrom(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.PendingCountResponse{Count: count})
}

func (h *Handler) ListByLead(c *gin.Context) {
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	items, err := h.svc.GetReferralsByLeadID(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toReferralWithAgentResponses(items))
}

func (h *Handler) ListByAgent(c *gin.Context) {
	agentID, ok := parseID(c)
	if !ok {
		return
	}

	items, err := h.svc.GetReferralsByAgentID(c.Request.Context(), agentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toReferralWithLeadResponses(items))
}

func (h *Handler) Stats(c *gin.Context) {
	agentID, ok := parseID(c)
	if !ok {
		return
	}

	stats, err := h.svc.GetReferralStats(c.Request.Context(), agentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toStatsResponse(stats))
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateReferralRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	ref, err := h.svc.CreateReferral(c.Request.Context(), service.CreateReferralInput{
		LeadID:       req.LeadID,
		AgentID:      req.AgentID,
		Name:         req.Name,
		Type:         req.Type,
		ReferralDate: req.ReferralDate,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, toReferralResponse(ref))
}

func (h *Handler) MarkExternal(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ref, err := h.svc.MarkAsExternal(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toReferralResponse(ref))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ref, err := h.svc.DeleteReferral(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toReferralResponse(ref))
}

func (h *Handler) ApplyExternalRule(c *gin.Context) {
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.ApplyExternalRuleToLeadReferrals(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toExternalRuleResponse(result))
}

func (h *Handler) Reassign(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.ReassignLeadRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	result, err := h.svc.ReassignLead(c.Request.Context(), leadID, req.AgentID, actorFrom(identity))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toReassignmentResponse(result))
}
