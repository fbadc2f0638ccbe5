package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHousekeepingSweep(t *testing.T) {
	ctx := context.Background()
	svc, clock, _ := newResetService(t)
	hasher := svc.Hasher
	seedUser(t, svc.Store, hasher, "c@d.test", "Secret123")

	require.NoError(t, svc.GenerateResetToken(ctx, "a@b.test"))
	clock.Advance(10 * time.Minute)
	require.NoError(t, svc.GenerateResetToken(ctx, "c@d.test"))

	hk := NewHousekeepingService(svc.Store, slog.New(slog.NewTextHandler(io.Discard, nil)), clock, time.Hour, DefaultResetTokenTTL)

	// a@b.test is 10 minutes old, still valid.
	require.Zero(t, hk.Sweep(ctx))

	// a@b.test is 17 minutes old and already rejected by CheckToken.
	clock.Advance(7 * time.Minute)
	require.Equal(t, int64(1), hk.Sweep(ctx))

	u, err := svc.Store.Users().GetUserByEmail(ctx, "a@b.test")
	require.NoError(t, err)
	require.Nil(t, u.PendingReset)

	u, err = svc.Store.Users().GetUserByEmail(ctx, "c@d.test")
	require.NoError(t, err)
	require.NotNil(t, u.PendingReset)
}

func TestHousekeepingStartStop(t *testing.T) {
	ctx := context.Background()
	svc, clock, _ := newResetService(t)
	require.NoError(t, svc.GenerateResetToken(ctx, "a@b.test"))

	hk := NewHousekeepingService(svc.Store, slog.New(slog.NewTextHandler(io.Discard, nil)), clock, time.Minute, 0)
	hk.Start()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Hour)

	require.Eventually(t, func() bool {
		u, err := svc.Store.Users().GetUserByEmail(ctx, "a@b.test")
		return err == nil && u.PendingReset == nil
	}, 2*time.Second, 10*time.Millisecond)

	hk.Stop()
}
