package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"tubemindai/internal/otp"
	"tubemindai/pkg/auth"
	"tubemindai/pkg/domain"

	mailer "tubemindai/internal/mail"
)

const minPasswordLength = 6

// AuthResult is a successful login or signup verification.
type AuthResult struct {
	Token string
	User  domain.User
}

// Register creates an unverified account and emails a signup code.
// Re-registering an email that never finished verification reissues the code
// instead of failing.
func (a *App) Register(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	existing, found, err := a.store.GetUserByEmail(email)
	if err != nil {
		return err
	}
	if found && existing.IsVerified {
		return ErrEmailAlreadyExists
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if found {
		// Unfinished signup: refresh the stored credentials and resend.
		if err := a.store.SetUserPassword(existing.ID, hash); err != nil {
			return err
		}
	} else {
		_, err = a.store.CreateUser(domain.User{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			IsActive:     true,
			IsVerified:   false,
		})
		if err != nil {
			return err
		}
	}
	if err := a.sendChallenge(email, domain.PurposeSignup); err != nil {
		return err
	}
	a.logger.Info("security_event", "event", "user_registered", "email", email)
	return nil
}

// Login authenticates a verified, active account.
func (a *App) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = normalizeEmail(email)
	user, found, err := a.store.GetUserByEmail(email)
	if err != nil {
		return AuthResult{}, err
	}
	if !found || !auth.CheckPassword(password, user.PasswordHash) {
		a.logger.Warn("security_event", "event", "login_failed", "email", email)
		return AuthResult{}, ErrInvalidCredentials
	}
	if !user.IsVerified {
		return AuthResult{}, ErrUserNotVerified
	}
	if !user.IsActive {
		a.logger.Warn("security_event", "event", "login_inactive_account", "user_id", user.ID)
		return AuthResult{}, ErrAccountInactive
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	a.logger.Info("security_event", "event", "login_success", "user_id", user.ID)
	return AuthResult{Token: token, User: user}, nil
}

// VerifySignupOTP completes registration and returns a live session.
func (a *App) VerifySignupOTP(ctx context.Context, email, code string) (AuthResult, error) {
	email = normalizeEmail(email)
	user, found, err := a.store.GetUserByEmail(email)
	if err != nil {
		return AuthResult{}, err
	}
	if !found {
		return AuthResult{}, ErrInvalidOTP
	}
	if err := a.verifyChallenge(email, domain.PurposeSignup, code); err != nil {
		return AuthResult{}, err
	}
	if err := a.store.SetUserVerified(user.ID, true); err != nil {
		return AuthResult{}, err
	}
	user.IsVerified = true
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	a.logger.Info("security_event", "event", "signup_verified", "user_id", user.ID)
	return AuthResult{Token: token, User: user}, nil
}

// ForgotPassword issues a reset code when the account exists. It never
// reveals whether the email is registered.
func (a *App) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	user, found, err := a.store.GetUserByEmail(email)
	if err != nil {
		return err
	}
	if !found || !user.IsVerified {
		return nil
	}
	if err := a.sendChallenge(email, domain.PurposeForgotPassword); err != nil {
		if errors.Is(err, otp.ErrSendRateLimited) {
			return err
		}
		a.logger.Error("forgot password challenge", "error", err)
		return nil
	}
	return nil
}

// VerifyResetOTP trades a valid forgot-password code for a single-use reset
// token.
func (a *App) VerifyResetOTP(ctx context.Context, email, code string) (string, error) {
	email = normalizeEmail(email)
	if err := a.verifyChallenge(email, domain.PurposeForgotPassword, code); err != nil {
		return "", err
	}
	return a.otp.NewResetToken(email)
}

// ResetPassword sets a new password using a reset token and revokes every
// outstanding session for the account.
func (a *App) ResetPassword(ctx context.Context, email, newPassword, confirmPassword, resetToken string) error {
	email = normalizeEmail(email)
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if err := a.otp.ConsumeResetToken(email, resetToken); err != nil {
		if errors.Is(err, otp.ErrResetToken) {
			return ErrResetTokenInvalid
		}
		return err
	}
	user, found, err := a.store.GetUserByEmail(email)
	if err != nil {
		return err
	}
	if !found {
		return ErrResetTokenInvalid
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := a.store.SetUserPassword(user.ID, hash); err != nil {
		return err
	}
	if err := a.sessions.RevokeUserSessions(user.ID, time.Now().UTC()); err != nil {
		return err
	}
	a.logger.Info("security_event", "event", "password_reset", "user_id", user.ID)
	return nil
}

// AuthenticateToken resolves a bearer token to an active user. Any failure
// is an authentication failure; callers respond 401 without detail.
func (a *App) AuthenticateToken(token string) (domain.User, bool, error) {
	userID, ok, err := a.sessions.UserIDFromToken(token)
	if err != nil || !ok {
		return domain.User{}, false, err
	}
	user, found, err := a.store.GetUserByID(userID)
	if err != nil || !found {
		return domain.User{}, false, err
	}
	if !user.IsActive || !user.IsVerified {
		return domain.User{}, false, nil
	}
	return user, true, nil
}

func (a *App) sendChallenge(email string, purpose domain.OTPPurpose) error {
	code, ttl, err := a.otp.CreateChallenge(email, purpose)
	if err != nil {
		return err
	}
	subject, body := mailer.OTPBody(code, ttl)
	if err := a.mailer.Send(email, subject, body); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

func (a *App) verifyChallenge(email string, purpose domain.OTPPurpose, code string) error {
	err := a.otp.VerifyChallenge(email, purpose, code)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, otp.ErrCodeExpired):
		return ErrExpiredOTP
	case errors.Is(err, otp.ErrCodeInvalid),
		errors.Is(err, otp.ErrCodeRequired),
		errors.Is(err, otp.ErrTooManyAttempts),
		errors.Is(err, otp.ErrNoChallenge):
		return ErrInvalidOTP
	default:
		return err
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	return nil
}
