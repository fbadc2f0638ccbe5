package service

import "context"

// PasswordHasher hashes and verifies passwords. Hash must be randomised
// (salted) and Verify must compare in constant time.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

// OneTimeCodes generates TOTP secrets and checks codes against them.
type OneTimeCodes interface {
	GenerateSecret() (string, error)
	ProvisioningURL(secret, account, issuer string) (string, error)
	CheckCode(secret, code string) bool
}

// Deliverer hands a reset token to the user out of band.
type Deliverer interface {
	Deliver(ctx context.Context, email, token string) error
}
