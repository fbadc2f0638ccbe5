// Package memory is a process-local Store. It backs the "memory" driver and
// serves as the injected test double for the services.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
)

type Store struct {
	mu    sync.Mutex
	users map[string]domain.User // keyed by email
}

func NewStore() *Store {
	return &Store{users: make(map[string]domain.User)}
}

func (s *Store) Users() store.Users             { return &usersRepo{s: s} }
func (s *Store) ApplyMigrations() error         { return nil }
func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

type usersRepo struct {
	s *Store
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[email]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return clone(u), nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.Email]; ok {
		return store.ErrAlreadyExists
	}
	u.Version = 1
	r.s.users[u.Email] = clone(u)
	return nil
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.users[u.Email]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	if cur.Version != u.Version {
		return domain.User{}, store.ErrConflict
	}

	cur.PasswordDigest = u.PasswordDigest
	cur.PendingReset = u.PendingReset
	cur.TwoFASecret = u.TwoFASecret
	cur.Version++
	cur.UpdatedAt = time.Now().UTC()

	cur = clone(cur)
	r.s.users[u.Email] = cur
	return clone(cur), nil
}

func (r *usersRepo) ClearExpiredResets(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for email, u := range r.s.users {
		if u.PendingReset == nil || !u.PendingReset.CreatedAt.Before(cutoff) {
			continue
		}
		u.PendingReset = nil
		u.Version++
		u.UpdatedAt = time.Now().UTC()
		r.s.users[email] = u
		n++
	}
	return n, nil
}

// clone detaches the pointer fields so callers never share state with the map.
func clone(u domain.User) domain.User {
	if u.PendingReset != nil {
		pr := *u.PendingReset
		u.PendingReset = &pr
	}
	if u.TwoFASecret != nil {
		secret := *u.TwoFASecret
		u.TwoFASecret = &secret
	}
	return u
}
