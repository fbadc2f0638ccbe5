package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
)

type usersRepo struct {
	q *queries
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row, err := r.q.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	if err := r.q.CreateUser(ctx, toRow(u)); err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) (domain.User, error) {
	row := toRow(u)
	row.UpdatedAt = formatTime(time.Now())

	n, err := r.q.UpdateUser(ctx, row)
	if err != nil {
		return domain.User{}, err
	}
	if n == 0 {
		// Tell a missing user apart from a stale version.
		if _, err := r.q.GetUserByEmail(ctx, u.Email); err != nil {
			return domain.User{}, mapNotFound(err)
		}
		return domain.User{}, store.ErrConflict
	}

	return r.GetUserByEmail(ctx, u.Email)
}

func (r *usersRepo) ClearExpiredResets(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.q.ClearExpiredResets(ctx, formatTime(time.Now()), formatTime(cutoff))
}
