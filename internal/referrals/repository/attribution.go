package repository

import (
	"context"
	"errors"

	"finders_crm_backend/internal/referrals/domain"
	"finders_crm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	opLockLead        = "referrals.repository.lock_lead"
	opListLeadEntries = "referrals.repository.list_lead_entries"
	opListInternal    = "referrals.repository.list_internal"
	opAssignLeadAgent = "referrals.repository.assign_lead_agent"
)

const (
	lockLeadSQL = `SELECT id, agent_id FROM leads WHERE id = $1 FOR UPDATE`

	listLeadReferralsSQL = `
		SELECT ` + referralColumns + `
		FROM referrals
		WHERE lead_id = $1
		ORDER BY referral_date DESC, created_at DESC`

	listInternalLeadReferralsSQL = `
		SELECT ` + referralColumns + `
		FROM referrals
		WHERE lead_id = $1 AND external = false
		ORDER BY referral_date DESC, created_at DESC`

	assignLeadAgentSQL = `UPDATE leads SET agent_id = $2, updated_at = now() WHERE id = $1`
)

func (q *queries) LockLead(ctx context.Context, leadID uuid.UUID) (LockedLead, error) {
	var lead LockedLead
	err := q.db.QueryRow(ctx, lockLeadSQL, leadID).Scan(&lead.ID, &lead.AgentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return LockedLead{}, apperr.NotFound(domain.MsgLeadNotFound).WithOp(opLockLead)
	}
	if err != nil {
		return LockedLead{}, internalErr(opLockLead, "lock lead failed", err)
	}
	return lead, nil
}

func (q *queries) ListLeadReferrals(ctx context.Context, leadID uuid.UUID) ([]Referral, error) {
	return q.listReferrals(ctx, opListLeadEntries, listLeadReferralsSQL, leadID)
}

func (q *queries) ListInternalLeadReferrals(ctx context.Context, leadID uuid.UUID) ([]Referral, error) {
	return q.listReferrals(ctx, opListInternal, listInternalLeadReferralsSQL, leadID)
}

func (q *queries) listReferrals(ctx context.Context, op, sql string, leadID uuid.UUID) ([]Referral, error) {
	rows, err := q.db.Query(ctx, sql, leadID)
	if err != nil {
		return nil, internalErr(op, "load lead referrals failed", err)
	}
	defer rows.Close()

	items := make([]Referral, 0)
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, internalErr(op, "scan referral failed", err)
		}
		items = append(items, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr(op, "iterate referrals failed", err)
	}
	return items, nil
}

func (q *queries) AssignLeadAgent(ctx context.Context, leadID, agentID uuid.UUID) error {
	tag, err := q.db.Exec(ctx, assignLeadAgentSQL, leadID, agentID)
	if err != nil {
		return internalErr(opAssignLeadAgent, "assign lead agent failed", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(domain.MsgLeadNotFound).WithOp(opAssignLeadAgent)
	}
	return nil
}
