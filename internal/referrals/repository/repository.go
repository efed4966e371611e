// Package repository persists the referral ledger and handoff requests.
package repository

import (
	"context"
	"errors"

	"finders_crm_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opWithinTx = "referrals.repository.within_tx"

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type queries struct {
	db DBTX
}

// Repo is the Postgres-backed Repository.
type Repo struct {
	pool *pgxpool.Pool
	*queries
}

// New creates a Repo on pool.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool, queries: &queries{db: pool}}
}

// WithinTx runs fn on a transaction-scoped Store. The deferred rollback is a
// no-op once Commit succeeds.
func (r *Repo) WithinTx(ctx context.Context, fn func(Store) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "begin transaction failed", err).WithOp(opWithinTx)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.KindInternal, "commit transaction failed", err).WithOp(opWithinTx)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func internalErr(op, message string, err error) error {
	return apperr.Wrap(apperr.KindInternal, message, err).WithOp(op)
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

var _ Repository = (*Repo)(nil)
