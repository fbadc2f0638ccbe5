package cryptox

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
)

// ResetTokenSize gives password reset tokens 128 bits of entropy
// (26 base32 characters).
const ResetTokenSize = 16

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateToken returns size random bytes as unpadded upper-case base32. The
// alphabet has no look-alike symbols, so a token can be typed in from a mail.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return tokenEncoding.EncodeToString(buf), nil
}
