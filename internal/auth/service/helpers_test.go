package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/internal/auth/store/drivers/memory"
	"github.com/stretchr/testify/require"
)

// countingHasher is a fast stand-in for argon2 that records calls.
type countingHasher struct {
	hashes   atomic.Int64
	verifies atomic.Int64
}

func (h *countingHasher) Hash(password string) (string, error) {
	n := h.hashes.Add(1)
	return fmt.Sprintf("fake$%s$%d", password, n), nil
}

func (h *countingHasher) Verify(password, digest string) bool {
	h.verifies.Add(1)
	return strings.HasPrefix(digest, "fake$"+password+"$")
}

const (
	validCode   = "123456"
	fakeSecret  = "JBSWY3DPEHPK3PXP"
	otherSecret = "KRSXG5CTMVRXEZLU"
)

type fakeCodes struct {
	secret string
}

func (c *fakeCodes) GenerateSecret() (string, error) {
	if c.secret == "" {
		return fakeSecret, nil
	}
	return c.secret, nil
}

func (c *fakeCodes) ProvisioningURL(secret, account, issuer string) (string, error) {
	return fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s", issuer, account, secret, issuer), nil
}

func (c *fakeCodes) CheckCode(secret, code string) bool {
	return secret != "" && code == validCode
}

var errStoreDown = errors.New("store down")

// flakyStore wraps a store and fails selected calls.
type flakyStore struct {
	store.Store
	failGet    bool
	failUpdate bool
}

func (s *flakyStore) Users() store.Users { return &flakyUsers{Users: s.Store.Users(), s: s} }

type flakyUsers struct {
	store.Users
	s *flakyStore
}

func (u *flakyUsers) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	if u.s.failGet {
		return domain.User{}, errStoreDown
	}
	return u.Users.GetUserByEmail(ctx, email)
}

func (u *flakyUsers) UpdateUser(ctx context.Context, usr domain.User) (domain.User, error) {
	if u.s.failUpdate {
		return domain.User{}, errStoreDown
	}
	return u.Users.UpdateUser(ctx, usr)
}

type delivery struct {
	email string
	token string
}

type recordingDeliverer struct {
	mu   sync.Mutex
	sent []delivery
	err  error
}

func (d *recordingDeliverer) Deliver(_ context.Context, email, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, delivery{email: email, token: token})
	return d.err
}

// seedUser stores a user whose password is password under the fake hasher.
func seedUser(t *testing.T, st store.Store, h PasswordHasher, email, password string) domain.User {
	t.Helper()
	reg := &RegistrationService{Store: st, Hasher: h}
	u, err := reg.Register(context.Background(), email, password)
	require.NoError(t, err)
	return u
}

func newMemoryStore() *memory.Store { return memory.NewStore() }
