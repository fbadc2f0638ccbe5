package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

type usersRepo struct {
	pool *pgxpool.Pool
}

const userColumns = `id, email, password_digest, reset_token, reset_token_created_at,
       two_fa_secret, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u          domain.User
		resetToken *string
		resetAt    *time.Time
		secret     *string
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordDigest,
		&resetToken,
		&resetAt,
		&secret,
		&u.Version,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	if resetToken != nil && resetAt != nil {
		u.SetResetToken(*resetToken, *resetAt)
	}
	if secret != nil {
		u.SetSecretMFA(*secret)
	}
	return u, nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	const query = `
		INSERT INTO users (id, email, password_digest, reset_token, reset_token_created_at,
		                   two_fa_secret, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)
	`
	token, issued := pendingResetColumns(u)
	_, err := r.pool.Exec(ctx, query,
		u.ID,
		u.Email,
		u.PasswordDigest,
		token,
		issued,
		secretColumn(u),
		u.CreatedAt,
		u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) (domain.User, error) {
	const query = `
		UPDATE users
		SET password_digest = $1,
		    reset_token = $2,
		    reset_token_created_at = $3,
		    two_fa_secret = $4,
		    version = version + 1,
		    updated_at = now()
		WHERE email = $5 AND version = $6
		RETURNING ` + userColumns

	token, issued := pendingResetColumns(u)
	updated, err := scanUser(r.pool.QueryRow(ctx, query,
		u.PasswordDigest,
		token,
		issued,
		secretColumn(u),
		u.Email,
		u.Version,
	))
	if errors.Is(err, store.ErrNotFound) {
		// Nothing matched: tell a missing user apart from a stale version.
		if _, getErr := r.GetUserByEmail(ctx, u.Email); getErr != nil {
			return domain.User{}, getErr
		}
		return domain.User{}, store.ErrConflict
	}
	return updated, err
}

func (r *usersRepo) ClearExpiredResets(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
		UPDATE users
		SET reset_token = NULL,
		    reset_token_created_at = NULL,
		    version = version + 1,
		    updated_at = now()
		WHERE reset_token_created_at < $1
	`
	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
