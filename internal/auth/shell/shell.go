// Package shell is the interactive front end of the auth core: it collects
// input, loops on recoverable errors and calls the services.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/otpx"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

type Shell struct {
	In  Prompter
	Out io.Writer

	Store    store.Store
	Login    *service.LoginService
	Register *service.RegistrationService
	Reset    *service.ResetService
	MFA      *service.MFAService

	// QRDir, when set, receives a PNG of the provisioning QR code on 2FA
	// enrollment.
	QRDir string
}

type loginCmd int

const (
	cmdLogin loginCmd = iota + 1
	cmdRegister
	cmdReset
	cmdQuit
)

type profileCmd int

const (
	cmdEnable2FA profileCmd = iota + 1
	cmdDisable2FA
	cmdLogout
)

// Run drives the login screen until the user quits or closes the input.
func (s *Shell) Run(ctx context.Context) error {
	err := s.loginScreen(ctx)
	if errors.Is(err, ErrAborted) {
		fmt.Fprintln(s.Out)
		return nil
	}
	return err
}

func (s *Shell) loginScreen(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.title("Welcome")
		s.println("1. Login")
		s.println("2. Register")
		s.println("3. Reset password")
		s.println("4. Quit")

		cmd, err := s.askLoginCmd()
		if err != nil {
			return err
		}

		switch cmd {
		case cmdLogin:
			u, err := s.loginProcess(slogx.WithOperation(ctx, "login"))
			if err != nil {
				return err
			}
			if err := s.profileScreen(ctx, &u); err != nil {
				return err
			}
		case cmdRegister:
			if err := s.registrationProcess(slogx.WithOperation(ctx, "register")); err != nil {
				return err
			}
		case cmdReset:
			if err := s.resetPasswordProcess(slogx.WithOperation(ctx, "reset_password")); err != nil {
				return err
			}
		case cmdQuit:
			s.println(dimStyle.Render("Bye."))
			return nil
		}
	}
}

func (s *Shell) profileScreen(ctx context.Context, u *domain.User) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if current, err := s.Store.Users().GetUserByEmail(ctx, u.Email); err == nil {
			*u = current
		}

		s.title("Profile of " + u.Email)
		if u.IsMFAEnabled() {
			s.println(dimStyle.Render("Two-factor authentication: enabled"))
		} else {
			s.println(dimStyle.Render("Two-factor authentication: disabled"))
		}
		s.println("1. Enable 2FA")
		s.println("2. Disable 2FA")
		s.println("3. Logout")

		cmd, err := s.askProfileCmd()
		if err != nil {
			return err
		}

		switch cmd {
		case cmdEnable2FA:
			if err := s.enable2FAProcess(slogx.WithOperation(ctx, "enable_2fa"), u); err != nil {
				return err
			}
		case cmdDisable2FA:
			if err := s.disable2FAProcess(slogx.WithOperation(ctx, "disable_2fa"), u); err != nil {
				return err
			}
		case cmdLogout:
			return nil
		}
	}
}

func (s *Shell) loginProcess(ctx context.Context) (domain.User, error) {
	s.title("Login")
	for {
		email, err := s.askEmail()
		if err != nil {
			return domain.User{}, err
		}
		password, err := s.In.Password("Password : ")
		if err != nil {
			return domain.User{}, err
		}

		u, err := s.Login.Login(ctx, email, password)
		if err != nil {
			s.fail(err)
			continue
		}

		if u.IsMFAEnabled() {
			if err := s.confirmCode(u.SecretMFA()); err != nil {
				return domain.User{}, err
			}
		}
		return u, nil
	}
}

func (s *Shell) registrationProcess(ctx context.Context) error {
	s.title("Registration")
	for {
		email, err := s.askEmail()
		if err != nil {
			return err
		}
		password, err := s.askNewPassword()
		if err != nil {
			return err
		}

		if _, err := s.Register.Register(ctx, email, password); err != nil {
			s.fail(err)
			continue
		}

		s.ok("Account created, you can now log in.")
		return nil
	}
}

func (s *Shell) resetPasswordProcess(ctx context.Context) error {
	s.title("Password reset")
	email, err := s.askEmail()
	if err != nil {
		return err
	}

	s.println("In case a user with that data exists in our database, you'll receive the token to reset your password.")

	// Stay silent on failure so the screen does not reveal whether the
	// account exists.
	if err := s.Reset.GenerateResetToken(ctx, email); err != nil {
		return nil
	}
	s.Reset.SendResetToken(ctx, email)

	for {
		token, err := s.In.Prompt("Reset token : ")
		if err != nil {
			return err
		}

		err = s.Reset.CheckToken(ctx, email, token)
		if err == nil {
			break
		}
		s.fail(err)
		if errors.Is(err, domain.ErrTokenMismatch) {
			continue
		}
		return nil
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, service.NormalizeEmail(email))
	if err != nil {
		slogx.FromContext(ctx).Error("user unavailable after token check", "error", err)
		s.fail(domain.ErrReset)
		return nil
	}

	if u.IsMFAEnabled() {
		s.println("Confirm your identity:")
		if err := s.confirmCode(u.SecretMFA()); err != nil {
			return err
		}
	}

	password, err := s.askNewPassword()
	if err != nil {
		return err
	}
	if err := s.Reset.ChangePassword(ctx, email, password); err != nil {
		s.fail(err)
		return nil
	}

	s.ok("Your password has been changed.")
	return nil
}

func (s *Shell) enable2FAProcess(ctx context.Context, u *domain.User) error {
	s.title("Enabling two-factor authentication")
	if u.IsMFAEnabled() {
		s.fail(domain.ErrMFAAlreadyEnabled)
		return nil
	}

	s.println("Confirm your identity:")
	password, err := s.confirmPassword(*u)
	if err != nil {
		return err
	}

	enrollment, err := s.MFA.BeginEnrollment(ctx, *u)
	if err != nil {
		s.fail(err)
		return nil
	}

	s.println("Scan the following QR code with your favorite authentication app:")
	s.println(enrollment.URL)
	if s.QRDir != "" {
		path := filepath.Join(s.QRDir, u.ID+".png")
		if err := otpx.WriteQRCode(enrollment.URL, path, 256); err != nil {
			slogx.FromContext(ctx).Warn("write qr code", "error", err)
		} else {
			s.println(dimStyle.Render("QR code written to " + path))
		}
	}

	s.println("Confirm 2FA setup:")
	code, err := s.askValidCode(enrollment.Secret)
	if err != nil {
		return err
	}

	if err := s.MFA.EnableTOTP(ctx, u, enrollment.Secret, password, code); err != nil {
		s.fail(err)
		return nil
	}

	s.ok("Two-factor authentication enabled.")
	return nil
}

func (s *Shell) disable2FAProcess(ctx context.Context, u *domain.User) error {
	s.title("Disabling two-factor authentication")
	if !u.IsMFAEnabled() {
		s.fail(domain.ErrMFANotEnabled)
		return nil
	}

	s.println("Confirm your identity:")
	password, err := s.confirmPassword(*u)
	if err != nil {
		return err
	}
	code, err := s.askValidCode(u.SecretMFA())
	if err != nil {
		return err
	}

	if err := s.MFA.DisableTOTP(ctx, u, password, code); err != nil {
		s.fail(err)
		return nil
	}

	s.ok("Two-factor authentication disabled.")
	return nil
}

// confirmPassword loops until the user enters their current password.
func (s *Shell) confirmPassword(u domain.User) (string, error) {
	for {
		password, err := s.In.Password("Password : ")
		if err != nil {
			return "", err
		}
		if err := s.MFA.VerifyPassword(u, password); err != nil {
			s.fail(err)
			continue
		}
		return password, nil
	}
}

func (s *Shell) confirmCode(secret string) error {
	_, err := s.askValidCode(secret)
	return err
}

// askValidCode loops until a code valid for secret is entered.
func (s *Shell) askValidCode(secret string) (string, error) {
	for {
		s.println("Open the two-factor authentication app on your device to view your authentication code and verify your identity.")
		code, err := s.In.Prompt("Authentication code: ")
		if err != nil {
			return "", err
		}
		if err := s.MFA.VerifyCode(secret, code); err != nil {
			s.fail(err)
			continue
		}
		return code, nil
	}
}

func (s *Shell) askEmail() (string, error) {
	for {
		email, err := s.In.Prompt("Email : ")
		if err != nil {
			return "", err
		}
		if err := service.ValidateEmail(email); err != nil {
			s.warn("Invalid mail address, please try again")
			continue
		}
		return email, nil
	}
}

func (s *Shell) askNewPassword() (string, error) {
	for {
		password, err := s.In.Password("Password : ")
		if err != nil {
			return "", err
		}
		if err := service.ValidatePassword(password); err != nil {
			s.warn("Password length must be between 8 and 64, please try again")
			continue
		}
		return password, nil
	}
}

func (s *Shell) askLoginCmd() (loginCmd, error) {
	for {
		input, err := s.In.Prompt("What do you want to do? ")
		if err != nil {
			return 0, err
		}
		switch strings.ToLower(input) {
		case "1", "login":
			return cmdLogin, nil
		case "2", "register":
			return cmdRegister, nil
		case "3", "reset":
			return cmdReset, nil
		case "4", "quit", "exit":
			return cmdQuit, nil
		}
		s.warn("Unknown command")
	}
}

func (s *Shell) askProfileCmd() (profileCmd, error) {
	for {
		input, err := s.In.Prompt("What do you want to do? ")
		if err != nil {
			return 0, err
		}
		switch strings.ToLower(input) {
		case "1", "enable":
			return cmdEnable2FA, nil
		case "2", "disable":
			return cmdDisable2FA, nil
		case "3", "logout":
			return cmdLogout, nil
		}
		s.warn("Unknown command")
	}
}

func (s *Shell) title(text string) {
	fmt.Fprintln(s.Out)
	fmt.Fprintln(s.Out, titleStyle.Render(text))
}

func (s *Shell) println(text string) { fmt.Fprintln(s.Out, text) }

func (s *Shell) ok(text string) { fmt.Fprintln(s.Out, successStyle.Render(text)) }

func (s *Shell) fail(err error) { s.warn(err.Error()) }

func (s *Shell) warn(text string) { fmt.Fprintln(s.Out, errorStyle.Render(text)) }
