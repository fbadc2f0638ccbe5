package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/idx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const timeFormat = time.RFC3339

type Store struct {
	db  *sql.DB
	q   *queries
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Each connection to ":memory:" is its own database.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	return &Store{
		db:  db,
		q:   &queries{db: db},
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Users() store.Users { return &usersRepo{q: s.q} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		return serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			serr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapOptionalString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return mapStringNull(*s)
}

func toRow(u domain.User) userRow {
	row := userRow{
		ID:             u.ID,
		Email:          u.Email,
		PasswordDigest: u.PasswordDigest,
		TwoFASecret:    mapOptionalString(u.TwoFASecret),
		Version:        u.Version,
		CreatedAt:      formatTime(u.CreatedAt),
		UpdatedAt:      formatTime(u.UpdatedAt),
	}
	if u.PendingReset != nil {
		row.ResetToken = mapStringNull(u.PendingReset.Token)
		row.ResetTokenCreatedAt = mapStringNull(formatTime(u.PendingReset.CreatedAt))
	}
	return row
}

func mapUser(row userRow) (domain.User, error) {
	id, err := idx.Parse(row.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("sqlite: bad id %q: %w", row.ID, err)
	}

	u := domain.User{
		ID:             id.String(),
		Email:          row.Email,
		PasswordDigest: row.PasswordDigest,
		Version:        row.Version,
	}

	if u.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return domain.User{}, fmt.Errorf("sqlite: bad created_at for user %s: %w", row.ID, err)
	}
	if u.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return domain.User{}, fmt.Errorf("sqlite: bad updated_at for user %s: %w", row.ID, err)
	}

	if row.ResetToken.Valid && row.ResetTokenCreatedAt.Valid {
		issued, err := parseTime(row.ResetTokenCreatedAt.String)
		if err != nil {
			return domain.User{}, fmt.Errorf("sqlite: bad reset_token_created_at for user %s: %w", row.ID, err)
		}
		u.SetResetToken(row.ResetToken.String, issued)
	}

	if row.TwoFASecret.Valid {
		u.SetSecretMFA(row.TwoFASecret.String)
	}
	return u, nil
}
