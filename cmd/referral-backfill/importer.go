package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	identityrepo "finders_crm_backend/internal/identity/repository"
	leadsrepo "finders_crm_backend/internal/leads/repository"
	"finders_crm_backend/internal/referrals/repository"
	"finders_crm_backend/internal/referrals/service"
	"finders_crm_backend/internal/scheduler"
	"finders_crm_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type leadFinder interface {
	GetByPhone(ctx context.Context, phone string) (leadsrepo.Lead, error)
}

type agentFinder interface {
	GetUserByEmail(ctx context.Context, email string) (identityrepo.User, error)
	FindUserByName(ctx context.Context, name string) (identityrepo.User, error)
}

type referralWriter interface {
	CreateReferral(ctx context.Context, in service.CreateReferralInput) (repository.Referral, error)
	ApplyExternalRuleToLeadReferrals(ctx context.Context, leadID uuid.UUID) (service.ExternalRuleResult, error)
}

type importer struct {
	leads       leadFinder
	agents      agentFinder
	referrals   referralWriter
	queue       scheduler.ExternalRuleScheduler
	concurrency int
	dryRun      bool
	log         *logger.Logger
}

type summary struct {
	Rows           int
	Created        int
	Skipped        int
	LeadsTouched   int
	Enqueued       int
	AlreadyQueued  int
	MarkedExternal int64
}

// run appends one ledger entry per row, then re-applies the external rule
// once per touched lead, inline or through the queue.
func (im *importer) run(ctx context.Context, rows []importRow) (summary, error) {
	sum := summary{Rows: len(rows)}

	seen := make(map[uuid.UUID]struct{})
	var touched []uuid.UUID

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		leadID, agentID, err := im.resolve(ctx, row)
		if err != nil {
			sum.Skipped++
			im.log.Warn("row skipped", "line", row.Line, "phone", row.Phone, "agent", row.Agent, "error", err)
			continue
		}

		if !im.dryRun {
			date := row.ReferralDate
			if _, err := im.referrals.CreateReferral(ctx, service.CreateReferralInput{
				LeadID:       leadID,
				AgentID:      &agentID,
				Type:         row.Type,
				ReferralDate: &date,
			}); err != nil {
				sum.Skipped++
				im.log.Warn("row skipped", "line", row.Line, "error", err)
				continue
			}
		}
		sum.Created++

		if _, ok := seen[leadID]; !ok {
			seen[leadID] = struct{}{}
			touched = append(touched, leadID)
		}
	}
	sum.LeadsTouched = len(touched)

	if im.dryRun || len(touched) == 0 {
		return sum, nil
	}

	if im.queue != nil {
		for _, leadID := range touched {
			err := im.queue.EnqueueApplyExternalRule(ctx, leadID)
			if errors.Is(err, scheduler.ErrAlreadyQueued) {
				sum.AlreadyQueued++
				im.log.Info("external rule re-run already queued", "leadId", leadID)
				continue
			}
			if err != nil {
				return sum, fmt.Errorf("enqueue external rule for lead %s: %w", leadID, err)
			}
			sum.Enqueued++
		}
		return sum, nil
	}

	marked, err := im.applyInline(ctx, touched)
	sum.MarkedExternal = marked
	return sum, err
}

func (im *importer) applyInline(ctx context.Context, leadIDs []uuid.UUID) (int64, error) {
	var marked atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(im.concurrency, 1))
	for _, leadID := range leadIDs {
		g.Go(func() error {
			result, err := im.referrals.ApplyExternalRuleToLeadReferrals(gctx, leadID)
			if err != nil {
				return fmt.Errorf("apply external rule for lead %s: %w", leadID, err)
			}
			marked.Add(int64(len(result.MarkedExternal)))
			im.log.Info("external rule applied", "leadId", leadID, "message", result.Message)
			return nil
		})
	}

	err := g.Wait()
	return marked.Load(), err
}

func (im *importer) resolve(ctx context.Context, row importRow) (uuid.UUID, uuid.UUID, error) {
	lead, err := im.leads.GetByPhone(ctx, row.Phone)
	if errors.Is(err, leadsrepo.ErrNotFound) {
		return uuid.Nil, uuid.Nil, fmt.Errorf("no lead with phone %s", row.Phone)
	}
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	var agent identityrepo.User
	if row.agentIsEmail() {
		agent, err = im.agents.GetUserByEmail(ctx, row.Agent)
	} else {
		agent, err = im.agents.FindUserByName(ctx, row.Agent)
	}
	switch {
	case errors.Is(err, identityrepo.ErrNotFound):
		return uuid.Nil, uuid.Nil, fmt.Errorf("no agent matches %q", row.Agent)
	case errors.Is(err, identityrepo.ErrAmbiguous):
		return uuid.Nil, uuid.Nil, fmt.Errorf("agent name %q matches several users", row.Agent)
	case err != nil:
		return uuid.Nil, uuid.Nil, err
	}

	return lead.ID, agent.ID, nil
}
