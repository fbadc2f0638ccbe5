package domain

// AuthError is the flat error taxonomy shown to users. Error returns the
// human readable message; Code is stable for programmatic matching. The set
// is deliberately small so that failures never reveal whether an account
// exists or what went wrong inside the store.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string { return e.Message }

var (
	ErrLogin = &AuthError{
		Code:    "login_error",
		Message: "Your login details are incorrect.",
	}
	ErrRegistration = &AuthError{
		Code:    "registration_error",
		Message: "Something went wrong during registration.",
	}
	ErrReset = &AuthError{
		Code:    "reset_error",
		Message: "Something went wrong during password reset.",
	}
	ErrInvalidEmail = &AuthError{
		Code:    "invalid_email",
		Message: "The e-mail address you entered is invalid.",
	}
	ErrInvalidPassword = &AuthError{
		Code:    "invalid_password",
		Message: "Your password must be between 8 and 64 characters long.",
	}
	ErrEmailUsed = &AuthError{
		Code:    "email_used",
		Message: "This e-mail address is already used for another account.",
	}
	ErrExpiredToken = &AuthError{
		Code:    "expired_token",
		Message: "Reset token is expired.",
	}
	ErrTokenMismatch = &AuthError{
		Code:    "token_mismatch",
		Message: "You've entered an invalid token.",
	}

	ErrMFAAlreadyEnabled = &AuthError{
		Code:    "mfa_already_enabled",
		Message: "Two-factor authentication already enabled.",
	}
	ErrMFANotEnabled = &AuthError{
		Code:    "mfa_not_enabled",
		Message: "Two-factor authentication is already disabled.",
	}
	ErrIncorrectPassword = &AuthError{
		Code:    "incorrect_password",
		Message: "Incorrect password.",
	}
	ErrInvalidCode = &AuthError{
		Code:    "invalid_code",
		Message: "Incorrect authentication code.",
	}
	ErrMFAUpdate = &AuthError{
		Code:    "mfa_update_failed",
		Message: "Two-factor authentication failed.",
	}
)
