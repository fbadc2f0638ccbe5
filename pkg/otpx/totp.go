// Package otpx implements time-based one-time codes (RFC 6238) on top of
// github.com/pquerna/otp, with the parameters authenticator apps expect:
// 6 digits, SHA1, 30 second period.
package otpx

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	secretSize = 20 // 160-bit shared secret, the RFC 4226 recommendation
	period     = 30
	skew       = 1

	// The label of a throwaway key is never shown; ProvisioningURL sets the
	// real one.
	generateIssuer  = "authcore"
	generateAccount = "enrollment"
)

// TOTP generates shared secrets, provisioning URLs and checks codes.
type TOTP struct {
	Clock clockwork.Clock
}

func NewTOTP(clock clockwork.Clock) *TOTP {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TOTP{Clock: clock}
}

// GenerateSecret returns a fresh base32 (unpadded) shared secret.
func (t *TOTP) GenerateSecret() (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      generateIssuer,
		AccountName: generateAccount,
		Period:      period,
		SecretSize:  secretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}
	return key.Secret(), nil
}

// ProvisioningURL builds the otpauth:// URL an authenticator app scans.
func (t *TOTP) ProvisioningURL(secret, account, issuer string) (string, error) {
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.ToUpper(secret))
	if err != nil {
		return "", fmt.Errorf("invalid TOTP secret: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      period,
		Secret:      raw,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build provisioning URL: %w", err)
	}
	return key.URL(), nil
}

// CheckCode reports whether code is valid for secret at the current time,
// allowing one period of clock drift either way.
func (t *TOTP) CheckCode(secret, code string) bool {
	valid, err := totp.ValidateCustom(strings.TrimSpace(code), secret, t.Clock.Now().UTC(), validateOpts())
	return err == nil && valid
}

// Code returns the code for secret at the current time.
func (t *TOTP) Code(secret string) (string, error) {
	return totp.GenerateCodeCustom(secret, t.Clock.Now().UTC(), validateOpts())
}

func validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    period,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}
