package repository

import (
	"context"
	"errors"
	"time"

	"finders_crm_backend/internal/referrals/domain"
	"finders_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	opCreateHandoff  = "referrals.repository.create_handoff"
	opGetHandoff     = "referrals.repository.get_handoff"
	opResolveHandoff = "referrals.repository.resolve_handoff"
	opRejectPending  = "referrals.repository.reject_pending"
	opHasPending     = "referrals.repository.has_pending"
	opListPending    = "referrals.repository.list_pending"
	opCountPending   = "referrals.repository.count_pending"
)

const handoffColumns = `id, lead_id, referred_by_user_id, referred_to_agent_id, status, created_at, updated_at, resolved_at`

const (
	insertHandoffSQL = `
		INSERT INTO lead_handoffs (lead_id, referred_by_user_id, referred_to_agent_id, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING ` + handoffColumns

	getHandoffSQL          = `SELECT ` + handoffColumns + ` FROM lead_handoffs WHERE id = $1`
	getHandoffForUpdateSQL = getHandoffSQL + ` FOR UPDATE`

	resolveHandoffSQL = `
		UPDATE lead_handoffs
		SET status = $2, resolved_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + handoffColumns

	rejectPendingHandoffsSQL = `
		UPDATE lead_handoffs
		SET status = 'rejected', resolved_at = $2, updated_at = $2
		WHERE lead_id = $1 AND status = 'pending'
		RETURNING ` + handoffColumns

	hasPendingHandoffSQL = `
		SELECT EXISTS (
			SELECT 1 FROM lead_handoffs WHERE lead_id = $1 AND status = 'pending'
		)`

	listPendingHandoffsSQL = `
		SELECT h.id, h.lead_id, h.referred_by_user_id, h.referred_to_agent_id, h.status,
		       h.created_at, h.updated_at, h.resolved_at,
		       l.customer_name, l.phone_number, l.status, u.name
		FROM lead_handoffs h
		JOIN leads l ON l.id = h.lead_id
		LEFT JOIN users u ON u.id = h.referred_by_user_id
		WHERE h.referred_to_agent_id = $1 AND h.status = 'pending'
		ORDER BY h.created_at DESC`

	countPendingHandoffsSQL = `
		SELECT COUNT(*) FROM lead_handoffs
		WHERE referred_to_agent_id = $1 AND status = 'pending'`
)

func scanHandoff(row scanner, extra ...any) (Handoff, error) {
	var h Handoff
	dest := []any{&h.ID, &h.LeadID, &h.ReferredByUserID, &h.ReferredToAgentID, &h.Status, &h.CreatedAt, &h.UpdatedAt, &h.ResolvedAt}
	err := row.Scan(append(dest, extra...)...)
	return h, err
}

func (q *queries) CreateHandoff(ctx context.Context, p CreateHandoffParams) (Handoff, error) {
	h, err := scanHandoff(q.db.QueryRow(ctx, insertHandoffSQL, p.LeadID, p.ReferredByUserID, p.ReferredToAgentID))
	if err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return Handoff{}, apperr.Conflict(domain.MsgPendingHandoffExists).WithOp(opCreateHandoff)
		}
		return Handoff{}, internalErr(opCreateHandoff, "create handoff failed", err)
	}
	return h, nil
}

func (q *queries) GetHandoff(ctx context.Context, id uuid.UUID) (Handoff, error) {
	return q.getHandoff(ctx, getHandoffSQL, id)
}

func (q *queries) GetHandoffForUpdate(ctx context.Context, id uuid.UUID) (Handoff, error) {
	return q.getHandoff(ctx, getHandoffForUpdateSQL, id)
}

func (q *queries) getHandoff(ctx context.Context, sql string, id uuid.UUID) (Handoff, error) {
	h, err := scanHandoff(q.db.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Handoff{}, apperr.NotFound(domain.MsgReferralNotFound).WithOp(opGetHandoff)
	}
	if err != nil {
		return Handoff{}, internalErr(opGetHandoff, "get handoff failed", err)
	}
	return h, nil
}

func (q *queries) ResolveHandoff(ctx context.Context, id uuid.UUID, status string, at time.Time) (Handoff, error) {
	h, err := scanHandoff(q.db.QueryRow(ctx, resolveHandoffSQL, id, status, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return Handoff{}, apperr.Conflict("Referral is no longer pending.").WithOp(opResolveHandoff)
	}
	if err != nil {
		return Handoff{}, internalErr(opResolveHandoff, "resolve handoff failed", err)
	}
	return h, nil
}

func (q *queries) RejectPendingHandoffs(ctx context.Context, leadID uuid.UUID, at time.Time) ([]Handoff, error) {
	rows, err := q.db.Query(ctx, rejectPendingHandoffsSQL, leadID, at)
	if err != nil {
		return nil, internalErr(opRejectPending, "reject pending handoffs failed", err)
	}
	defer rows.Close()

	closed := make([]Handoff, 0)
	for rows.Next() {
		h, err := scanHandoff(rows)
		if err != nil {
			return nil, internalErr(opRejectPending, "scan handoff failed", err)
		}
		closed = append(closed, h)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr(opRejectPending, "iterate handoffs failed", err)
	}
	return closed, nil
}

func (q *queries) HasPendingHandoff(ctx context.Context, leadID uuid.UUID) (bool, error) {
	var exists bool
	if err := q.db.QueryRow(ctx, hasPendingHandoffSQL, leadID).Scan(&exists); err != nil {
		return false, internalErr(opHasPending, "check pending handoff failed", err)
	}
	return exists, nil
}

func (q *queries) ListPendingHandoffs(ctx context.Context, agentID uuid.UUID) ([]HandoffWithLead, error) {
	rows, err := q.db.Query(ctx, listPendingHandoffsSQL, agentID)
	if err != nil {
		return nil, internalErr(opListPending, "list pending handoffs failed", err)
	}
	defer rows.Close()

	items := make([]HandoffWithLead, 0)
	for rows.Next() {
		var item HandoffWithLead
		item.Handoff, err = scanHandoff(rows, &item.CustomerName, &item.PhoneNumber, &item.LeadStatus, &item.ReferredByName)
		if err != nil {
			return nil, internalErr(opListPending, "scan handoff failed", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr(opListPending, "iterate handoffs failed", err)
	}
	return items, nil
}

func (q *queries) CountPendingHandoffs(ctx context.Context, agentID uuid.UUID) (int, error) {
	var count int
	if err := q.db.QueryRow(ctx, countPendingHandoffsSQL, agentID).Scan(&count); err != nil {
		return 0, internalErr(opCountPending, "count pending handoffs failed", err)
	}
	return count, nil
}
