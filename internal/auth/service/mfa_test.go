package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/pkg/otpx"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func newMFAService(t *testing.T) (*MFAService, domain.User) {
	t.Helper()
	st := newMemoryStore()
	hasher := &countingHasher{}
	u := seedUser(t, st, hasher, "a@b.test", "Secret123")
	return &MFAService{Store: st, Hasher: hasher, Codes: &fakeCodes{}, Issuer: "authcore"}, u
}

func TestBeginEnrollment(t *testing.T) {
	ctx := context.Background()
	svc, u := newMFAService(t)

	enrollment, err := svc.BeginEnrollment(ctx, u)
	require.NoError(t, err)
	require.Equal(t, fakeSecret, enrollment.Secret)
	require.Equal(t, "a@b.test", enrollment.Account)
	require.Equal(t, "authcore", enrollment.Issuer)
	require.Contains(t, enrollment.URL, fakeSecret)

	stored, err := svc.Store.Users().GetUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.False(t, stored.IsMFAEnabled(), "enrollment must not persist before confirmation")
}

func TestEnableTOTP(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed enable persists", func(t *testing.T) {
		svc, u := newMFAService(t)
		require.NoError(t, svc.EnableTOTP(ctx, &u, fakeSecret, "Secret123", validCode))
		require.True(t, u.IsMFAEnabled())
		require.Equal(t, fakeSecret, u.SecretMFA())

		stored, err := svc.Store.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, fakeSecret, stored.SecretMFA())
		require.Equal(t, stored.Version, u.Version)
	})

	t.Run("already enabled is a no-op", func(t *testing.T) {
		svc, u := newMFAService(t)
		require.NoError(t, svc.EnableTOTP(ctx, &u, fakeSecret, "Secret123", validCode))
		version := u.Version

		err := svc.EnableTOTP(ctx, &u, otherSecret, "Secret123", validCode)
		require.ErrorIs(t, err, domain.ErrMFAAlreadyEnabled)
		require.Equal(t, fakeSecret, u.SecretMFA())

		stored, err := svc.Store.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, fakeSecret, stored.SecretMFA())
		require.Equal(t, version, stored.Version)

		_, err = svc.BeginEnrollment(ctx, u)
		require.ErrorIs(t, err, domain.ErrMFAAlreadyEnabled)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, u := newMFAService(t)
		err := svc.EnableTOTP(ctx, &u, fakeSecret, "wrong", validCode)
		require.ErrorIs(t, err, domain.ErrIncorrectPassword)
		require.False(t, u.IsMFAEnabled())
	})

	t.Run("wrong code", func(t *testing.T) {
		svc, u := newMFAService(t)
		err := svc.EnableTOTP(ctx, &u, fakeSecret, "Secret123", "000000")
		require.ErrorIs(t, err, domain.ErrInvalidCode)
		require.False(t, u.IsMFAEnabled())
	})

	t.Run("store failure rolls back", func(t *testing.T) {
		svc, u := newMFAService(t)
		inner := svc.Store
		svc.Store = &flakyStore{Store: inner, failUpdate: true}

		err := svc.EnableTOTP(ctx, &u, fakeSecret, "Secret123", validCode)
		require.ErrorIs(t, err, domain.ErrMFAUpdate)
		require.False(t, u.IsMFAEnabled())

		stored, err := inner.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.False(t, stored.IsMFAEnabled())
	})

	t.Run("stale session copy is reloaded", func(t *testing.T) {
		svc, u := newMFAService(t)
		stale := u
		require.NoError(t, svc.EnableTOTP(ctx, &u, fakeSecret, "Secret123", validCode))
		require.NoError(t, svc.DisableTOTP(ctx, &u, "Secret123", validCode))

		require.NoError(t, svc.EnableTOTP(ctx, &stale, otherSecret, "Secret123", validCode))
		require.Equal(t, otherSecret, stale.SecretMFA())

		stored, err := svc.Store.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, otherSecret, stored.SecretMFA())
		require.Equal(t, stored.Version, stale.Version)
	})

	t.Run("reload failure", func(t *testing.T) {
		svc, u := newMFAService(t)
		svc.Store = &flakyStore{Store: svc.Store, failGet: true}

		require.ErrorIs(t, svc.EnableTOTP(ctx, &u, fakeSecret, "Secret123", validCode), domain.ErrMFAUpdate)
		require.False(t, u.IsMFAEnabled())
	})
}

func TestTOTPAfterHousekeepingSweep(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	st := newMemoryStore()
	hasher := &countingHasher{}
	seedUser(t, st, hasher, "a@b.test", "Secret123")

	resets := &ResetService{Store: st, Hasher: hasher, Clock: clock}
	require.NoError(t, resets.GenerateResetToken(ctx, "a@b.test"))

	login := &LoginService{Store: st, Hasher: hasher}
	u, err := login.Login(ctx, "a@b.test", "Secret123")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	hk := NewHousekeepingService(st, nil, clock, time.Hour, DefaultResetTokenTTL)
	require.EqualValues(t, 1, hk.Sweep(ctx))

	svc := &MFAService{Store: st, Hasher: hasher, Codes: &fakeCodes{}, Issuer: "authcore"}
	require.NoError(t, svc.EnableTOTP(ctx, &u, fakeSecret, "Secret123", validCode))
	require.True(t, u.IsMFAEnabled())

	require.NoError(t, svc.DisableTOTP(ctx, &u, "Secret123", validCode))
	require.False(t, u.IsMFAEnabled())

	stored, err := st.Users().GetUserByEmail(ctx, "a@b.test")
	require.NoError(t, err)
	require.Nil(t, stored.TwoFASecret)
	require.Nil(t, stored.PendingReset)
}

func TestDisableTOTP(t *testing.T) {
	ctx := context.Background()

	enabled := func(t *testing.T) (*MFAService, domain.User) {
		svc, u := newMFAService(t)
		require.NoError(t, svc.EnableTOTP(ctx, &u, fakeSecret, "Secret123", validCode))
		return svc, u
	}

	t.Run("confirmed disable is durable", func(t *testing.T) {
		svc, u := enabled(t)
		require.NoError(t, svc.DisableTOTP(ctx, &u, "Secret123", validCode))
		require.False(t, u.IsMFAEnabled())

		stored, err := svc.Store.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.False(t, stored.IsMFAEnabled())
		require.Nil(t, stored.TwoFASecret)
	})

	t.Run("already disabled", func(t *testing.T) {
		svc, u := newMFAService(t)
		require.ErrorIs(t, svc.DisableTOTP(ctx, &u, "Secret123", validCode), domain.ErrMFANotEnabled)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, u := enabled(t)
		require.ErrorIs(t, svc.DisableTOTP(ctx, &u, "wrong", validCode), domain.ErrIncorrectPassword)
		require.True(t, u.IsMFAEnabled())
	})

	t.Run("wrong code", func(t *testing.T) {
		svc, u := enabled(t)
		require.ErrorIs(t, svc.DisableTOTP(ctx, &u, "Secret123", "999999"), domain.ErrInvalidCode)
		require.True(t, u.IsMFAEnabled())
	})

	t.Run("store failure restores secret", func(t *testing.T) {
		svc, u := enabled(t)
		svc.Store = &flakyStore{Store: svc.Store, failUpdate: true}

		require.ErrorIs(t, svc.DisableTOTP(ctx, &u, "Secret123", validCode), domain.ErrMFAUpdate)
		require.True(t, u.IsMFAEnabled())
		require.Equal(t, fakeSecret, u.SecretMFA())
	})
}

func TestVerifyCode_EmptySecret(t *testing.T) {
	svc, _ := newMFAService(t)
	require.ErrorIs(t, svc.VerifyCode("", validCode), domain.ErrInvalidCode)
	require.NoError(t, svc.VerifyCode(fakeSecret, " "+validCode+" "))
}

func TestEnableTOTP_RealCodes(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	codes := otpx.NewTOTP(clock)

	svc, u := newMFAService(t)
	svc.Codes = codes

	enrollment, err := svc.BeginEnrollment(ctx, u)
	require.NoError(t, err)

	code, err := codes.Code(enrollment.Secret)
	require.NoError(t, err)
	require.NoError(t, svc.EnableTOTP(ctx, &u, enrollment.Secret, "Secret123", code))
	require.True(t, u.IsMFAEnabled())
}
