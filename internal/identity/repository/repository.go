// Package repository reads CRM users for the other bounded contexts.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrAmbiguous = errors.New("ambiguous match")
)

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

type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Role      string
	CreatedAt time.Time
}

const (
	userColumns = `id, name, email, role, created_at`

	getUserSQL = `
    SELECT ` + userColumns + `
    FROM users
    WHERE id = $1
  `

	getUserByEmailSQL = `
    SELECT ` + userColumns + `
    FROM users
    WHERE lower(email) = lower($1)
  `

	findUsersByNameSQL = `
    SELECT ` + userColumns + `
    FROM users
    WHERE lower(name) = lower($1)
    ORDER BY created_at
    LIMIT 2
  `
)

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt)
	return u, err
}

func (r *Repository) GetUser(ctx context.Context, userID uuid.UUID) (User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, getUserSQL, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, getUserByEmailSQL, strings.TrimSpace(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

// FindUserByName matches a display name case-insensitively. A name shared by
// more than one user returns ErrAmbiguous.
func (r *Repository) FindUserByName(ctx context.Context, name string) (User, error) {
	rows, err := r.db.Query(ctx, findUsersByNameSQL, strings.TrimSpace(name))
	if err != nil {
		return User{}, err
	}
	defer rows.Close()

	var matches []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return User{}, err
		}
		matches = append(matches, u)
	}
	if err := rows.Err(); err != nil {
		return User{}, err
	}

	switch len(matches) {
	case 0:
		return User{}, ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return User{}, ErrAmbiguous
	}
}
