package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/idx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type registration struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"min=8,max=64"`
}

// NormalizeEmail trims and lower-cases an address so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if err := validate.Var(NormalizeEmail(email), "required,email,max=254"); err != nil {
		return domain.ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the 8..64 character policy.
func ValidatePassword(password string) error {
	if err := validate.Var(password, "min=8,max=64"); err != nil {
		return domain.ErrInvalidPassword
	}
	return nil
}

type RegistrationService struct {
	Store  store.Store
	Hasher PasswordHasher
	Clock  clockwork.Clock
}

// Register creates a user with a fresh ULID and an argon2id digest.
func (s *RegistrationService) Register(ctx context.Context, email, password string) (domain.User, error) {
	logger := slogx.FromContext(ctx)

	req := registration{Email: NormalizeEmail(email), Password: password}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Password" {
			return domain.User{}, domain.ErrInvalidPassword
		}
		return domain.User{}, domain.ErrInvalidEmail
	}

	digest, err := s.Hasher.Hash(req.Password)
	if err != nil {
		logger.Error("hash password", "error", err)
		return domain.User{}, domain.ErrRegistration
	}

	now := s.now()
	u := domain.NewUser(idx.NewAt(now).String(), req.Email, digest, now)
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, domain.ErrEmailUsed
		}
		logger.Error("create user", "error", err)
		return domain.User{}, domain.ErrRegistration
	}

	logger.Info("user registered", "user_id", u.ID)
	u.Version = 1
	return u, nil
}

func (s *RegistrationService) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
