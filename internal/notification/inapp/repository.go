// Package inapp stores and serves the per-user notification inbox.
package inapp

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"finders_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	opCreate      = "notification.inapp.repository.create"
	opList        = "notification.inapp.repository.list"
	opCountUnread = "notification.inapp.repository.count_unread"
	opMarkRead    = "notification.inapp.repository.mark_read"
	opMarkAllRead = "notification.inapp.repository.mark_all_read"

	pgForeignKeyViolation = "23503"

	msgUserRequired = "userId is required"
	msgNotFound     = "notification not found"
)

type Notification struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"userId"`
	Type         string          `json:"type"`
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	ResourceID   *uuid.UUID      `json:"resourceId,omitempty"`
	ResourceType *string         `json:"resourceType,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	IsRead       bool            `json:"isRead"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type CreateParams struct {
	UserID       uuid.UUID
	Type         string
	Title        string
	Content      string
	ResourceID   *uuid.UUID
	ResourceType *string
	Payload      json.RawMessage
}

// Store persists in-app notifications.
type Store interface {
	Create(ctx context.Context, p CreateParams) (Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository is the Postgres Store.
type Repository struct {
	db DBTX
}

func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

const (
	columns = `id, user_id, type, title, content, resource_id, resource_type, payload, is_read, created_at`

	insertSQL = `INSERT INTO in_app_notifications (user_id, type, title, content, resource_id, resource_type, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + columns

	countSQL = `SELECT COUNT(*) FROM in_app_notifications WHERE user_id = $1`

	listSQL = `SELECT ` + columns + `
FROM in_app_notifications
WHERE user_id = $1
ORDER BY created_at DESC, id
LIMIT $2 OFFSET $3`

	countUnreadSQL = countSQL + ` AND NOT is_read`

	markReadSQL = `UPDATE in_app_notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`

	markAllReadSQL = `UPDATE in_app_notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`
)

func storageError(op, what string, err error) error {
	return apperr.Wrap(apperr.KindInternal, what+" failed", err).WithOp(op)
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (Notification, error) {
	if p.UserID == uuid.Nil {
		return Notification{}, apperr.Validation(msgUserRequired).WithOp(opCreate)
	}

	payload := p.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	rows, err := r.db.Query(ctx, insertSQL, p.UserID, p.Type, p.Title, p.Content, p.ResourceID, p.ResourceType, payload)
	if err != nil {
		return Notification{}, storageError(opCreate, "insert notification", err)
	}
	n, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[Notification])
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return Notification{}, apperr.Validation("unknown userId").WithOp(opCreate)
		}
		return Notification{}, storageError(opCreate, "insert notification", err)
	}
	return n, nil
}

func (r *Repository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, int, error) {
	if userID == uuid.Nil {
		return nil, 0, apperr.Validation(msgUserRequired).WithOp(opList)
	}

	var total int
	if err := r.db.QueryRow(ctx, countSQL, userID).Scan(&total); err != nil {
		return nil, 0, storageError(opList, "count notifications", err)
	}

	rows, err := r.db.Query(ctx, listSQL, userID, limit, offset)
	if err != nil {
		return nil, 0, storageError(opList, "list notifications", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Notification])
	if err != nil {
		return nil, 0, storageError(opList, "scan notifications", err)
	}
	return items, total, nil
}

func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, apperr.Validation(msgUserRequired).WithOp(opCountUnread)
	}

	var count int
	if err := r.db.QueryRow(ctx, countUnreadSQL, userID).Scan(&count); err != nil {
		return 0, storageError(opCountUnread, "count unread notifications", err)
	}
	return count, nil
}

func (r *Repository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if userID == uuid.Nil || notificationID == uuid.Nil {
		return apperr.Validation("userId and notificationId are required").WithOp(opMarkRead)
	}

	tag, err := r.db.Exec(ctx, markReadSQL, notificationID, userID)
	if err != nil {
		return storageError(opMarkRead, "mark notification read", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(msgNotFound).WithOp(opMarkRead)
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return apperr.Validation(msgUserRequired).WithOp(opMarkAllRead)
	}

	if _, err := r.db.Exec(ctx, markAllReadSQL, userID); err != nil {
		return storageError(opMarkAllRead, "mark all notifications read", err)
	}
	return nil
}
