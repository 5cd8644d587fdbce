package app

import "errors"

var (
	// auth
	ErrInvalidCredentials = errors.New("incorrect email address or password")
	ErrEmailAlreadyExists = errors.New("an account with this email already exists")
	ErrUserNotVerified    = errors.New("email not verified, complete otp verification first")
	ErrAccountInactive    = errors.New("account is deactivated")
	ErrInvalidOTP         = errors.New("invalid verification code")
	ErrExpiredOTP         = errors.New("verification code expired")
	ErrResetTokenInvalid  = errors.New("reset token is invalid or expired")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrValidation         = errors.New("invalid input")

	// resources
	ErrResourceNotFound   = errors.New("resource not found")
	ErrForbidden          = errors.New("you do not have access to this resource")
	ErrGenerationInFlight = errors.New("note generation already in progress")
	ErrGenerationFailed   = errors.New("note generation failed")
)
