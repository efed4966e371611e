// Package repository reads leads together with their status metadata.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db DBTX
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Lead is a lead row joined with the referability flag of its status.
// StatusCanBeReferred is nil when the status has no catalogue entry or the
// flag is unset.
type Lead struct {
	ID                  uuid.UUID
	CustomerName        string
	PhoneNumber         *string
	AgentID             *uuid.UUID
	Status              string
	StatusCanBeReferred *bool
}

const (
	leadSelect = `
    SELECT l.id, l.customer_name, l.phone_number, l.agent_id, l.status, ls.can_be_referred
    FROM leads l
    LEFT JOIN lead_statuses ls ON lower(ls.name) = lower(l.status)
  `

	getByIDSQL = leadSelect + `WHERE l.id = $1`

	getByPhoneSQL = leadSelect + `
    WHERE l.phone_number = $1
    ORDER BY l.created_at DESC
    LIMIT 1
  `
)

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.CustomerName, &l.PhoneNumber, &l.AgentID, &l.Status, &l.StatusCanBeReferred)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.db.QueryRow(ctx, getByIDSQL, id))
}

// GetByPhone returns the most recent lead with the given E.164 number.
func (r *Repository) GetByPhone(ctx context.Context, phone string) (Lead, error) {
	return scanLead(r.db.QueryRow(ctx, getByPhoneSQL, phone))
}
