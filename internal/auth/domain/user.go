package domain

import "time"

// User is the aggregate the auth core reads and writes through the store.
// It is always handled by value: each operation loads a fresh copy.
type User struct {
	ID             string
	Email          string // unique, stable for the user's lifetime
	PasswordDigest string // argon2id PHC string, never the plaintext

	// PendingReset is set between reset-token issuance and consumption.
	PendingReset *PendingReset

	// TwoFASecret is the base32 TOTP secret. Its presence is the only record
	// of 2FA being enabled.
	TwoFASecret *string

	// Version is bumped by every successful store update and guards against
	// lost updates from stale snapshots.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PendingReset pairs a reset token with its issue time so that neither can
// exist without the other.
type PendingReset struct {
	Token     string
	CreatedAt time.Time
}

func NewUser(id, email, passwordDigest string, now time.Time) User {
	return User{
		ID:             id,
		Email:          email,
		PasswordDigest: passwordDigest,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (u User) IsMFAEnabled() bool {
	return u.TwoFASecret != nil && *u.TwoFASecret != ""
}

// SecretMFA returns the TOTP secret, or "" when 2FA is disabled.
func (u User) SecretMFA() string {
	if !u.IsMFAEnabled() {
		return ""
	}
	return *u.TwoFASecret
}

// SetSecretMFA enables 2FA with secret, or disables it when secret is empty.
func (u *User) SetSecretMFA(secret string) {
	if secret == "" {
		u.TwoFASecret = nil
		return
	}
	u.TwoFASecret = &secret
}

func (u *User) SetResetToken(token string, now time.Time) {
	u.PendingReset = &PendingReset{Token: token, CreatedAt: now}
}

func (u *User) ClearResetToken() {
	u.PendingReset = nil
}
