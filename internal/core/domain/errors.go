package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrAccountInactive         = errors.New("account is inactive")
	ErrUnauthorized            = errors.New("not authenticated")
	ErrForbidden               = errors.New("admin access required")
	ErrTwoFactorRequired       = errors.New("2FA verification required")
	ErrInvalidOrExpiredInvite  = errors.New("invalid or expired invitation")
	ErrUserAlreadyExists       = errors.New("user already exists with this email")
	ErrUsernameTaken           = errors.New("username already taken")
	ErrNotFound                = errors.New("user not found")
	ErrTwoFactorAlreadyEnabled = errors.New("2FA already enabled")
	ErrTwoFactorNotInitialized = errors.New("2FA not initialized, generate a secret first")
	ErrTwoFactorNotEnabled     = errors.New("2FA not enabled for this user")
	ErrInvalidCode             = errors.New("invalid verification code")
	ErrValidation              = errors.New("validation failed")
	ErrStorage                 = errors.New("storage failure")
)

// ErrInvitationExpired is returned for a token that exists but is past its
// expiry. It matches ErrInvalidOrExpiredInvite so callers surface both cases
// the same way.
var ErrInvitationExpired = fmt.Errorf("%w: invitation has expired", ErrInvalidOrExpiredInvite)

// Kind is the stable, machine readable name of an error.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindAccountInactive    Kind = "account_inactive"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindTwoFactorRequired  Kind = "two_factor_required"
	KindInvalidInvitation  Kind = "invalid_or_expired_invitation"
	KindUserAlreadyExists  Kind = "user_already_exists"
	KindUsernameTaken      Kind = "username_taken"
	KindNotFound           Kind = "not_found"
	KindAlreadyEnabled     Kind = "already_enabled"
	KindNotInitialized     Kind = "not_initialized"
	KindNotEnabled         Kind = "not_enabled"
	KindInvalidCode        Kind = "invalid_code"
	KindValidation         Kind = "validation_error"
	KindStorage            Kind = "storage_error"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrAccountInactive, KindAccountInactive},
	{ErrUnauthorized, KindUnauthorized},
	{ErrForbidden, KindForbidden},
	{ErrTwoFactorRequired, KindTwoFactorRequired},
	{ErrInvalidOrExpiredInvite, KindInvalidInvitation},
	{ErrUserAlreadyExists, KindUserAlreadyExists},
	{ErrUsernameTaken, KindUsernameTaken},
	{ErrNotFound, KindNotFound},
	{ErrTwoFactorAlreadyEnabled, KindAlreadyEnabled},
	{ErrTwoFactorNotInitialized, KindNotInitialized},
	{ErrTwoFactorNotEnabled, KindNotEnabled},
	{ErrInvalidCode, KindInvalidCode},
	{ErrValidation, KindValidation},
	{ErrStorage, KindStorage},
}

// KindOf returns the Kind of the first known error in err's chain, or the
// empty Kind when err is not a domain error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return ""
}

// MessageOf returns the client-facing message of err: the text of the first
// known error in its chain, without any wrapping context.
func MessageOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.err.Error()
		}
	}
	return ""
}

// Invalid wraps a human readable validation message with ErrValidation.
func Invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// StorageErr wraps an unexpected backend failure with ErrStorage.
func StorageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
