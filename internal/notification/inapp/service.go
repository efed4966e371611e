package inapp

import (
	"context"
	"encoding/json"
	"strings"

	"finders_crm_backend/platform/apperr"
	"finders_crm_backend/platform/logger"

	"github.com/google/uuid"
)

const maxListPageSize = 100

// Service validates and records inbox entries on top of a Store.
type Service struct {
	store Store
	log   *logger.Logger
}

func NewService(store Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{store: store, log: log}
}

// SendParams describes one notification for one recipient.
type SendParams struct {
	UserID       uuid.UUID
	Type         string
	Title        string
	Content      string
	ResourceID   *uuid.UUID
	ResourceType string
	// Payload is marshalled to JSON; nil stores an empty object.
	Payload any
}

func (s *Service) Send(ctx context.Context, p SendParams) error {
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Content) == "" {
		return apperr.Validation("title and content are required")
	}

	params := CreateParams{
		UserID:     p.UserID,
		Type:       p.Type,
		Title:      p.Title,
		Content:    p.Content,
		ResourceID: p.ResourceID,
	}
	if p.ResourceType != "" {
		params.ResourceType = &p.ResourceType
	}
	if p.Payload != nil {
		raw, err := json.Marshal(p.Payload)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "encode notification payload failed", err)
		}
		params.Payload = raw
	}

	if _, err := s.store.Create(ctx, params); err != nil {
		s.log.WithContext(ctx).Error("in-app notification not stored",
			"error", err, "userId", p.UserID, "type", p.Type)
		return err
	}
	return nil
}

// List pages through userID's inbox. page is 1-based.
func (s *Service) List(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]Notification, int, error) {
	page = max(page, 1)
	if pageSize < 1 {
		pageSize = 20
	}
	pageSize = min(pageSize, maxListPageSize)
	return s.store.List(ctx, userID, pageSize, (page-1)*pageSize)
}

func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.store.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.store.MarkAllRead(ctx, userID)
}
