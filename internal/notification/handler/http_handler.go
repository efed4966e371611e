// Package handler serves the caller's in-app notification inbox.
package handler

import (
	"net/http"
	"strconv"

	"finders_crm_backend/internal/notification/inapp"
	"finders_crm_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

type listResponse struct {
	Items []inapp.Notification `json:"items"`
	Total int                  `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

type unreadResponse struct {
	Count int `json:"count"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type HTTPHandler struct {
	svc *inapp.Service
}

func NewHTTPHandler(svc *inapp.Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/unread", h.CountUnread)
	rg.PATCH("/read-all", h.MarkAllRead)
	rg.PATCH("/:id/read", h.MarkRead)
}

// List returns one page of the caller's notifications, newest first.
func (h *HTTPHandler) List(c *gin.Context) {
	caller := httpkit.MustGetIdentity(c)
	if caller == nil {
		return
	}

	page, limit := paging(c)
	items, total, err := h.svc.List(c.Request.Context(), caller.UserID(), page, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	if items == nil {
		items = []inapp.Notification{}
	}

	httpkit.OK(c, listResponse{Items: items, Total: total, Page: page, Limit: limit})
}

func (h *HTTPHandler) CountUnread(c *gin.Context) {
	caller := httpkit.MustGetIdentity(c)
	if caller == nil {
		return
	}

	count, err := h.svc.CountUnread(c.Request.Context(), caller.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, unreadResponse{Count: count})
}

func (h *HTTPHandler) MarkRead(c *gin.Context) {
	caller := httpkit.MustGetIdentity(c)
	if caller == nil {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if httpkit.HandleError(c, h.svc.MarkRead(c.Request.Context(), caller.UserID(), id)) {
		return
	}
	httpkit.OK(c, statusResponse{Status: "ok"})
}

func (h *HTTPHandler) MarkAllRead(c *gin.Context) {
	caller := httpkit.MustGetIdentity(c)
	if caller == nil {
		return
	}

	if httpkit.HandleError(c, h.svc.MarkAllRead(c.Request.Context(), caller.UserID())) {
		return
	}
	httpkit.OK(c, statusResponse{Status: "ok"})
}

func paging(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	return page, min(limit, maxPageSize)
}
