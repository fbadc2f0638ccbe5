package domain

// MFAEnrollment is handed to the user while enabling 2FA. Nothing is stored
// until a code generated from Secret has been confirmed.
type MFAEnrollment struct {
	Secret  string // Base32 encoded secret for TOTP
	URL     string // otpauth:// URL for QR code generation
	Issuer  string // Issuer name (e.g., service name)
	Account string // Account name (the user's email)
}
