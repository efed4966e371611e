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
	opCreateReferral = "referrals.repository.create"
	opGetReferral    = "referrals.repository.get"
	opListByLead     = "referrals.repository.list_by_lead"
	opListByAgent    = "referrals.repository.list_by_agent"
	opStatsByAgent   = "referrals.repository.stats_by_agent"
	opSetExternal    = "referrals.repository.set_external"
	opDeleteReferral = "referrals.repository.delete"
)

const referralColumns = `id, lead_id, agent_id, name, type, referral_date, external, created_at, updated_at`

const (
	insertReferralSQL = `
		INSERT INTO referrals (lead_id, agent_id, name, type, referral_date, external)
		VALUES ($1, $2, $3, $4, $5, false)
		RETURNING ` + referralColumns

	getReferralSQL = `SELECT ` + referralColumns + ` FROM referrals WHERE id = $1`

	listByLeadSQL = `
		SELECT r.id, r.lead_id, r.agent_id, r.name, r.type, r.referral_date, r.external,
		       r.created_at, r.updated_at, u.name, u.role
		FROM referrals r
		LEFT JOIN users u ON u.id = r.agent_id
		WHERE r.lead_id = $1
		ORDER BY r.referral_date DESC, r.created_at DESC`

	listByAgentSQL = `
		SELECT r.id, r.lead_id, r.agent_id, r.name, r.type, r.referral_date, r.external,
		       r.created_at, r.updated_at, l.customer_name, l.phone_number, l.status
		FROM referrals r
		JOIN leads l ON l.id = r.lead_id
		WHERE r.agent_id = $1
		ORDER BY r.referral_date DESC, r.created_at DESC`

	statsByAgentSQL = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE external = false),
		       COUNT(*) FILTER (WHERE external = true),
		       MIN(referral_date),
		       MAX(referral_date)
		FROM referrals
		WHERE agent_id = $1`

	setExternalSQL = `
		UPDATE referrals SET external = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + referralColumns

	deleteReferralSQL = `DELETE FROM referrals WHERE id = $1 RETURNING ` + referralColumns
)

func scanReferral(row scanner, extra ...any) (Referral, error) {
	var r Referral
	dest := []any{&r.ID, &r.LeadID, &r.AgentID, &r.Name, &r.Type, &r.ReferralDate, &r.External, &r.CreatedAt, &r.UpdatedAt}
	err := row.Scan(append(dest, extra...)...)
	return r, err
}

func (q *queries) CreateReferral(ctx context.Context, p CreateReferralParams) (Referral, error) {
	ref, err := scanReferral(q.db.QueryRow(ctx, insertReferralSQL, p.LeadID, p.AgentID, p.Name, p.Type, p.ReferralDate))
	if err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return Referral{}, apperr.Validation("lead or agent does not exist").WithOp(opCreateReferral)
		}
		return Referral{}, internalErr(opCreateReferral, "create referral failed", err)
	}
	return ref, nil
}

func (q *queries) GetReferralByID(ctx context.Context, id uuid.UUID) (Referral, error) {
	ref, err := scanReferral(q.db.QueryRow(ctx, getReferralSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Referral{}, apperr.NotFound(domain.MsgReferralNotFound).WithOp(opGetReferral)
	}
	if err != nil {
		return Referral{}, internalErr(opGetReferral, "get referral failed", err)
	}
	return ref, nil
}

func (q *queries) ListByLead(ctx context.Context, leadID uuid.UUID) ([]ReferralWithAgent, error) {
	rows, err := q.db.Query(ctx, listByLeadSQL, leadID)
	if err != nil {
		return nil, internalErr(opListByLead, "list referrals by lead failed", err)
	}
	defer rows.Close()

	items := make([]ReferralWithAgent, 0)
	for rows.Next() {
		var item ReferralWithAgent
		item.Referral, err = scanReferral(rows, &item.AgentName, &item.AgentRole)
		if err != nil {
			return nil, internalErr(opListByLead, "scan referral failed", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr(opListByLead, "iterate referrals failed", err)
	}
	return items, nil
}

func (q *queries) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]ReferralWithLead, error) {
	rows, err := q.db.Query(ctx, listByAgentSQL, agentID)
	if err != nil {
		return nil, internalErr(opListByAgent, "list referrals by agent failed", err)
	}
	defer rows.Close()

	items := make([]ReferralWithLead, 0)
	for rows.Next() {
		var item ReferralWithLead
		item.Referral, err = scanReferral(rows, &item.CustomerName, &item.PhoneNumber, &item.LeadStatus)
		if err != nil {
			return nil, internalErr(opListByAgent, "scan referral failed", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, internalErr(opListByAgent, "iterate referrals failed", err)
	}
	return items, nil
}

func (q *queries) StatsByAgent(ctx context.Context, agentID uuid.UUID) (ReferralStats, error) {
	stats := ReferralStats{AgentID: agentID}
	err := q.db.QueryRow(ctx, statsByAgentSQL, agentID).Scan(
		&stats.Total, &stats.Internal, &stats.External, &stats.FirstReferralDate, &stats.LastReferralDate,
	)
	if err != nil {
		return ReferralStats{}, internalErr(opStatsByAgent, "referral stats failed", err)
	}
	return stats, nil
}

func (q *queries) SetExternal(ctx context.Context, id uuid.UUID, external bool) (Referral, error) {
	ref, err := scanReferral(q.db.QueryRow(ctx, setExternalSQL, id, external))
	if errors.Is(err, pgx.ErrNoRows) {
		return Referral{}, apperr.NotFound(domain.MsgReferralNotFound).WithOp(opSetExternal)
	}
	if err != nil {
		return Referral{}, internalErr(opSetExternal, "update referral flag failed", err)
	}
	return ref, nil
}

func (q *queries) DeleteReferral(ctx context.Context, id uuid.UUID) (Referral, error) {
	ref, err := scanReferral(q.db.QueryRow(ctx, deleteReferralSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Referral{}, apperr.NotFound(domain.MsgReferralNotFound).WithOp(opDeleteReferral)
	}
	if err != nil {
		return Referral{}, internalErr(opDeleteReferral, "delete referral failed", err)
	}
	return ref, nil
}
