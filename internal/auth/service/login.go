package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

type LoginService struct {
	Store  store.Store
	Hasher PasswordHasher
}

// Login authenticates email and password. Unknown accounts and wrong
// passwords both yield domain.ErrLogin.
func (s *LoginService) Login(ctx context.Context, email, password string) (domain.User, error) {
	logger := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		// Burn a hash so a missing account costs as much as a bad password.
		_, _ = s.Hasher.Hash(password)
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("login lookup failed", "error", err)
		}
		return domain.User{}, domain.ErrLogin
	}

	if !s.Hasher.Verify(password, u.PasswordDigest) {
		logger.Debug("login rejected", "user_id", u.ID)
		return domain.User{}, domain.ErrLogin
	}

	logger.Debug("login accepted", "user_id", u.ID)
	return u, nil
}
