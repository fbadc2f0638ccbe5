// Package storetest is a conformance suite every store driver runs against
// its own backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/idx"
	"github.com/stretchr/testify/require"
)

// NewUser returns an unsaved user with a unique email under domain.test.
func NewUser(t *testing.T) domain.User {
	t.Helper()
	id := idx.New().String()
	now := time.Now().UTC().Truncate(time.Second)
	return domain.NewUser(id, "u-"+id+"@domain.test", "$argon2id$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", now)
}

// Run exercises the Users contract. newStore must return an empty, migrated
// store; it is called once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	ctx := context.Background()

	t.Run("get unknown user", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Users().GetUserByEmail(ctx, "nobody@x.test")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("create and get", func(t *testing.T) {
		s := newStore(t)
		u := NewUser(t)
		require.NoError(t, s.Users().CreateUser(ctx, u))

		got, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.Equal(t, u.Email, got.Email)
		require.Equal(t, u.PasswordDigest, got.PasswordDigest)
		require.Nil(t, got.PendingReset)
		require.False(t, got.IsMFAEnabled())
		require.Equal(t, int64(1), got.Version)
	})

	t.Run("duplicate email", func(t *testing.T) {
		s := newStore(t)
		u := NewUser(t)
		require.NoError(t, s.Users().CreateUser(ctx, u))

		dup := NewUser(t)
		dup.Email = u.Email
		require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("update round trips every mutable field", func(t *testing.T) {
		s := newStore(t)
		u := NewUser(t)
		require.NoError(t, s.Users().CreateUser(ctx, u))

		got, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)

		issued := time.Date(2026, 5, 4, 12, 30, 15, 0, time.FixedZone("CEST", 2*60*60))
		got.PasswordDigest = "new-digest"
		got.SetResetToken("reset-token", issued)
		got.SetSecretMFA("JBSWY3DPEHPK3PXP")

		updated, err := s.Users().UpdateUser(ctx, got)
		require.NoError(t, err)
		require.Equal(t, got.Version+1, updated.Version)

		reloaded, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, "new-digest", reloaded.PasswordDigest)
		require.NotNil(t, reloaded.PendingReset)
		require.Equal(t, "reset-token", reloaded.PendingReset.Token)
		require.True(t, issued.Equal(reloaded.PendingReset.CreatedAt), "timestamp must survive with its offset")
		require.Equal(t, "JBSWY3DPEHPK3PXP", reloaded.SecretMFA())
		require.Equal(t, updated.Version, reloaded.Version)
	})

	t.Run("clearing reset and secret is durable", func(t *testing.T) {
		s := newStore(t)
		u := NewUser(t)
		u.SetSecretMFA("JBSWY3DPEHPK3PXP")
		u.SetResetToken("tok", time.Now().UTC())
		require.NoError(t, s.Users().CreateUser(ctx, u))

		got, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		got.SetSecretMFA("")
		got.ClearResetToken()
		_, err = s.Users().UpdateUser(ctx, got)
		require.NoError(t, err)

		reloaded, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.False(t, reloaded.IsMFAEnabled())
		require.Nil(t, reloaded.TwoFASecret)
		require.Nil(t, reloaded.PendingReset)
	})

	t.Run("stale snapshot conflicts", func(t *testing.T) {
		s := newStore(t)
		u := NewUser(t)
		require.NoError(t, s.Users().CreateUser(ctx, u))

		a, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		b := a

		a.PasswordDigest = "first"
		_, err = s.Users().UpdateUser(ctx, a)
		require.NoError(t, err)

		b.PasswordDigest = "second"
		_, err = s.Users().UpdateUser(ctx, b)
		require.ErrorIs(t, err, store.ErrConflict)

		reloaded, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, "first", reloaded.PasswordDigest)
	})

	t.Run("update unknown user", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Users().UpdateUser(ctx, NewUser(t))
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("clear expired resets", func(t *testing.T) {
		s := newStore(t)
		now := time.Now().UTC().Truncate(time.Second)

		old := NewUser(t)
		old.SetResetToken("old", now.Add(-time.Hour))
		fresh := NewUser(t)
		fresh.SetResetToken("fresh", now.Add(-time.Minute))
		none := NewUser(t)
		for _, u := range []domain.User{old, fresh, none} {
			require.NoError(t, s.Users().CreateUser(ctx, u))
		}

		n, err := s.Users().ClearExpiredResets(ctx, now.Add(-16*time.Minute))
		require.NoError(t, err)
		require.Equal(t, int64(1), n)

		got, err := s.Users().GetUserByEmail(ctx, old.Email)
		require.NoError(t, err)
		require.Nil(t, got.PendingReset)
		require.Equal(t, int64(2), got.Version, "sweeping must invalidate older snapshots")

		got, err = s.Users().GetUserByEmail(ctx, fresh.Email)
		require.NoError(t, err)
		require.NotNil(t, got.PendingReset)
	})
}
