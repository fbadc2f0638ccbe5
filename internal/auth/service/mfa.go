package service

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

// MFAService toggles TOTP two-factor authentication. Both transitions need
// the current password and a valid code before anything is written.
type MFAService struct {
	Store  store.Store
	Hasher PasswordHasher
	Codes  OneTimeCodes
	Issuer string // issuer label shown by authenticator apps
}

// VerifyPassword re-confirms the identity of an already logged in user.
func (s *MFAService) VerifyPassword(u domain.User, password string) error {
	if !s.Hasher.Verify(password, u.PasswordDigest) {
		return domain.ErrIncorrectPassword
	}
	return nil
}

// VerifyCode checks a one-time code against secret.
func (s *MFAService) VerifyCode(secret, code string) error {
	if secret == "" || !s.Codes.CheckCode(secret, strings.TrimSpace(code)) {
		return domain.ErrInvalidCode
	}
	return nil
}

// BeginEnrollment generates a secret and its provisioning URL. Nothing is
// stored until EnableTOTP confirms a code for the secret.
func (s *MFAService) BeginEnrollment(ctx context.Context, u domain.User) (domain.MFAEnrollment, error) {
	if u.IsMFAEnabled() {
		return domain.MFAEnrollment{}, domain.ErrMFAAlreadyEnabled
	}

	logger := slogx.FromContext(ctx)

	secret, err := s.Codes.GenerateSecret()
	if err != nil {
		logger.Error("generate totp secret", "error", err)
		return domain.MFAEnrollment{}, domain.ErrMFAUpdate
	}

	url, err := s.Codes.ProvisioningURL(secret, u.Email, s.Issuer)
	if err != nil {
		logger.Error("build provisioning url", "error", err)
		return domain.MFAEnrollment{}, domain.ErrMFAUpdate
	}

	return domain.MFAEnrollment{
		Secret:  secret,
		URL:     url,
		Issuer:  s.Issuer,
		Account: u.Email,
	}, nil
}

// refresh replaces u with the stored record so a session copy held since
// login does not fail the version check.
func (s *MFAService) refresh(ctx context.Context, u *domain.User) error {
	current, err := s.Store.Users().GetUserByEmail(ctx, u.Email)
	if err != nil {
		slogx.FromContext(ctx).Warn("reload user", "user_id", u.ID, "error", err)
		return domain.ErrMFAUpdate
	}
	*u = current
	return nil
}

// EnableTOTP stores secret on u once password and code are confirmed. u is
// reloaded from the store first. On a store failure u is left with 2FA
// disabled.
func (s *MFAService) EnableTOTP(ctx context.Context, u *domain.User, secret, password, code string) error {
	if err := s.refresh(ctx, u); err != nil {
		return err
	}
	if u.IsMFAEnabled() {
		return domain.ErrMFAAlreadyEnabled
	}
	if err := s.VerifyPassword(*u, password); err != nil {
		return err
	}
	if err := s.VerifyCode(secret, code); err != nil {
		return err
	}

	u.SetSecretMFA(secret)
	updated, err := s.Store.Users().UpdateUser(ctx, *u)
	if err != nil {
		slogx.FromContext(ctx).Warn("persist totp enable", "user_id", u.ID, "error", err)
		u.SetSecretMFA("")
		return domain.ErrMFAUpdate
	}

	*u = updated
	slogx.FromContext(ctx).Info("2fa enabled", "user_id", u.ID)
	return nil
}

// DisableTOTP removes the secret from u once password and a code for the
// current secret are confirmed. On a store failure the secret is restored.
func (s *MFAService) DisableTOTP(ctx context.Context, u *domain.User, password, code string) error {
	if err := s.refresh(ctx, u); err != nil {
		return err
	}
	if !u.IsMFAEnabled() {
		return domain.ErrMFANotEnabled
	}
	if err := s.VerifyPassword(*u, password); err != nil {
		return err
	}

	secret := u.SecretMFA()
	if err := s.VerifyCode(secret, code); err != nil {
		return err
	}

	u.SetSecretMFA("")
	updated, err := s.Store.Users().UpdateUser(ctx, *u)
	if err != nil {
		slogx.FromContext(ctx).Warn("persist totp disable", "user_id", u.ID, "error", err)
		u.SetSecretMFA(secret)
		return domain.ErrMFAUpdate
	}

	*u = updated
	slogx.FromContext(ctx).Info("2fa disabled", "user_id", u.ID)
	return nil
}
