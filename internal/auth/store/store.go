package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrConflict      = errors.New("store: version conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres, mongo, memory) implement this; the services only ever see it.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backend is still reachable.
	Ping(ctx context.Context) error
}

// Users is the persistence port of the auth core. Every call is a single
// read or write; there are no multi-call transactions.
type Users interface {
	// GetUserByEmail returns ErrNotFound for unknown addresses.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user. Returns ErrAlreadyExists when the email
	// is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser overwrites the mutable fields of u (password digest, pending
	// reset, 2FA secret) if the stored version still equals u.Version, and
	// returns the stored copy with the bumped version. A stale u yields
	// ErrConflict, an unknown one ErrNotFound.
	UpdateUser(ctx context.Context, u domain.User) (domain.User, error)

	// ClearExpiredResets drops pending resets issued before cutoff and
	// reports how many were cleared.
	ClearExpiredResets(ctx context.Context, cutoff time.Time) (int64, error)
}
