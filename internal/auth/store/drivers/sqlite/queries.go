package sqlite

import (
	"context"
	"database/sql"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

// userRow mirrors the users table; timestamps are RFC3339 text.
type userRow struct {
	ID                  string
	Email               string
	PasswordDigest      string
	ResetToken          sql.NullString
	ResetTokenCreatedAt sql.NullString
	TwoFASecret         sql.NullString
	Version             int64
	CreatedAt           string
	UpdatedAt           string
}

const getUserByEmail = `
SELECT id, email, password_digest, reset_token, reset_token_created_at,
       two_fa_secret, version, created_at, updated_at
FROM users
WHERE email = ?
`

func (q *queries) GetUserByEmail(ctx context.Context, email string) (userRow, error) {
	var r userRow
	err := q.db.QueryRowContext(ctx, getUserByEmail, email).Scan(
		&r.ID,
		&r.Email,
		&r.PasswordDigest,
		&r.ResetToken,
		&r.ResetTokenCreatedAt,
		&r.TwoFASecret,
		&r.Version,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

const createUser = `
INSERT INTO users (
    id, email, password_digest, reset_token, reset_token_created_at,
    two_fa_secret, version, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
`

func (q *queries) CreateUser(ctx context.Context, r userRow) error {
	_, err := q.db.ExecContext(ctx, createUser,
		r.ID,
		r.Email,
		r.PasswordDigest,
		r.ResetToken,
		r.ResetTokenCreatedAt,
		r.TwoFASecret,
		r.CreatedAt,
		r.UpdatedAt,
	)
	return err
}

const updateUser = `
UPDATE users
SET password_digest = ?,
    reset_token = ?,
    reset_token_created_at = ?,
    two_fa_secret = ?,
    version = version + 1,
    updated_at = ?
WHERE email = ? AND version = ?
`

// UpdateUser reports the number of rows written; zero means the email is
// unknown or the version moved on.
func (q *queries) UpdateUser(ctx context.Context, r userRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateUser,
		r.PasswordDigest,
		r.ResetToken,
		r.ResetTokenCreatedAt,
		r.TwoFASecret,
		r.UpdatedAt,
		r.Email,
		r.Version,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const clearExpiredResets = `
UPDATE users
SET reset_token = NULL,
    reset_token_created_at = NULL,
    version = version + 1,
    updated_at = ?
WHERE reset_token_created_at IS NOT NULL AND reset_token_created_at < ?
`

func (q *queries) ClearExpiredResets(ctx context.Context, now, cutoff string) (int64, error) {
	res, err := q.db.ExecContext(ctx, clearExpiredResets, now, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
