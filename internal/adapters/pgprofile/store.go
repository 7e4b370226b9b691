package pgprofile

// Package pgprofile persists profile records in PostgreSQL.

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/campushq/portal-api/internal/data/pgxutil"
	domainsession "github.com/campushq/portal-api/internal/domain/session"
	apperrors "github.com/campushq/portal-api/internal/errors"
	"github.com/campushq/portal-api/internal/ports"
)

// Store provides database operations for profiles.
type Store struct {
	DB  *sql.DB
	now func() time.Time
}

// NewStore creates a new Store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db, now: time.Now}
}

// NewStoreWithClock creates a Store with a custom clock (useful for tests).
func NewStoreWithClock(db *sql.DB, now func() time.Time) *Store {
	return &Store{DB: db, now: now}
}

const profileColumns = `id, email, display_name, role, avatar_url, created_at, updated_at`

// Get retrieves the profile keyed by principal id.
func (s *Store) Get(ctx context.Context, id string) (*domainsession.Profile, error) {
	if id == "" {
		return nil, apperrors.ValidationField("id", "principal id is required")
	}

	var out domainsession.Profile
	if err := pgxutil.WithPgxConn(ctx, s.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[domainsession.Profile])
		return err
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ProfileNotFound(id)
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// Put idempotently replaces the full profile record. The creation
// timestamp of an existing row is preserved; the update timestamp always
// advances.
func (s *Store) Put(ctx context.Context, p domainsession.Profile) error {
	if p.ID == "" {
		return apperrors.ValidationField("id", "principal id is required")
	}
	if !p.Role.Assignable() {
		return apperrors.ValidationField("role", "role is not assignable")
	}

	now := s.now().UTC()
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	if err := pgxutil.WithPgxConn(ctx, s.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO profiles (id, email, display_name, role, avatar_url, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				email = EXCLUDED.email,
				display_name = EXCLUDED.display_name,
				role = EXCLUDED.role,
				avatar_url = EXCLUDED.avatar_url,
				updated_at = EXCLUDED.updated_at
		`, p.ID, p.Email, p.DisplayName, p.Role, p.AvatarURL, createdAt, now)
		return err
	}); err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

var _ ports.ProfileStore = (*Store)(nil)
