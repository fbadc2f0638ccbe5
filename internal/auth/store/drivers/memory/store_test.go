package memory

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/internal/auth/store/storetest"
	"github.com/stretchr/testify/require"
)

func TestUsersContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return NewStore() })
}

func TestReturnedUsersAreDetached(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := storetest.NewUser(t)
	u.SetSecretMFA("JBSWY3DPEHPK3PXP")
	require.NoError(t, s.Users().CreateUser(ctx, u))

	got, err := s.Users().GetUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	*got.TwoFASecret = "MUTATED"

	again, err := s.Users().GetUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.Equal(t, "JBSWY3DPEHPK3PXP", again.SecretMFA())
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStore().Users().GetUserByEmail(ctx, "a@b.test")
	require.ErrorIs(t, err, context.Canceled)
}
