package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
	"github.com/jonboulle/clockwork"
)

// DefaultResetTokenTTL is how long an issued reset token stays valid.
const DefaultResetTokenTTL = 15 * time.Minute

// ResetService runs the password reset flow: issue, deliver, check, change.
// Each step reloads the user; nothing is kept between calls.
type ResetService struct {
	Store     store.Store
	Hasher    PasswordHasher
	Deliverer Deliverer
	Clock     clockwork.Clock

	// TTL is compared in whole minutes. Zero means DefaultResetTokenTTL.
	TTL time.Duration

	// ConsumeOnChange clears the pending reset once the password has been
	// changed, so the token cannot be replayed.
	ConsumeOnChange bool

	// NewToken draws a reset token. Nil means cryptox.GenerateToken with
	// cryptox.ResetTokenSize.
	NewToken func() (string, error)
}

// GenerateResetToken issues a new token for email. A token is generated
// even for unknown addresses; unknown users and store failures both yield
// domain.ErrReset.
func (s *ResetService) GenerateResetToken(ctx context.Context, email string) error {
	logger := slogx.FromContext(ctx)

	token, err := s.newToken()
	if err != nil {
		logger.Error("generate reset token", "error", err)
		return domain.ErrReset
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		logger.Debug("reset requested for unavailable user", "error", err)
		return domain.ErrReset
	}

	u.SetResetToken(token, s.now())
	if _, err := s.Store.Users().UpdateUser(ctx, u); err != nil {
		logger.Warn("persist reset token", "user_id", u.ID, "error", err)
		return domain.ErrReset
	}

	logger.Info("reset token issued", "user_id", u.ID)
	return nil
}

// SendResetToken delivers the pending token for email. Failures are logged
// and never reported back.
func (s *ResetService) SendResetToken(ctx context.Context, email string) {
	logger := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		logger.Error("user unavailable after reset issuance", "error", err)
		return
	}
	if u.PendingReset == nil {
		logger.Error("no pending reset to deliver", "user_id", u.ID)
		return
	}
	if s.Deliverer == nil {
		logger.Warn("no reset delivery channel configured", "user_id", u.ID)
		return
	}

	if err := s.Deliverer.Deliver(ctx, u.Email, u.PendingReset.Token); err != nil {
		logger.Error("deliver reset token", "user_id", u.ID, "error", err)
	}
}

// CheckToken validates token against the pending reset for email. A
// successful check leaves the reset pending so it can be re-checked before
// the password is changed.
func (s *ResetService) CheckToken(ctx context.Context, email, token string) error {
	logger := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		logger.Debug("reset check for unavailable user", "error", err)
		return domain.ErrReset
	}

	pending := u.PendingReset
	if pending == nil {
		logger.Warn("reset check without pending token", "user_id", u.ID)
		return domain.ErrReset
	}

	if s.expired(pending.CreatedAt) {
		return domain.ErrExpiredToken
	}
	if subtle.ConstantTimeCompare([]byte(pending.Token), []byte(token)) != 1 {
		return domain.ErrTokenMismatch
	}
	return nil
}

// ChangePassword replaces the password digest of email.
func (s *ResetService) ChangePassword(ctx context.Context, email, newPassword string) error {
	logger := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		logger.Error("user unavailable for password change", "error", err)
		return domain.ErrReset
	}

	digest, err := s.Hasher.Hash(newPassword)
	if err != nil {
		logger.Error("hash password", "error", err)
		return domain.ErrReset
	}

	u.PasswordDigest = digest
	if s.ConsumeOnChange {
		u.ClearResetToken()
	}

	if _, err := s.Store.Users().UpdateUser(ctx, u); err != nil {
		logger.Warn("persist password change", "user_id", u.ID, "error", err)
		return domain.ErrReset
	}

	logger.Info("password changed", "user_id", u.ID)
	return nil
}

// expired truncates the token age to whole minutes before comparing, so a
// token is still valid during the last started minute of its window.
func (s *ResetService) expired(createdAt time.Time) bool {
	elapsed := int64(s.now().Sub(createdAt) / time.Minute)
	return elapsed > int64(s.ttl()/time.Minute)
}

func (s *ResetService) newToken() (string, error) {
	if s.NewToken == nil {
		return cryptox.GenerateToken(cryptox.ResetTokenSize)
	}
	return s.NewToken()
}

func (s *ResetService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultResetTokenTTL
	}
	return s.TTL
}

func (s *ResetService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
