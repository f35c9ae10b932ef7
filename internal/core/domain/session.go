package domain

import "time"

// SessionTTL is the default lifetime of a session, measured from login.
const SessionTTL = 7 * 24 * time.Hour

// EnrollmentTTL bounds the window after registration in which an account can
// set up 2FA without a session.
const EnrollmentTTL = 15 * time.Minute

// Session is the server-side authentication state referenced by the client cookie.
//
// TwoFactorVerified lives only here. It is never copied to the account and
// dies with the session.
type Session struct {
	ID                string    `json:"id"`
	AccountID         string    `json:"accountId"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	Role              Role      `json:"role"`
	TwoFactorEnabled  bool      `json:"twoFactorEnabled"`
	TwoFactorVerified bool      `json:"twoFactorVerified"`
	CreatedAt         time.Time `json:"createdAt"`
	ExpiresAt         time.Time `json:"expiresAt"`
}

// IsAuthenticated reports whether s is a live session bound to an account.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.AccountID != ""
}

// IsFullyVerified reports whether s is authenticated and, when the account
// requires it, has passed the second factor.
func (s *Session) IsFullyVerified() bool {
	return s.IsAuthenticated() && (!s.TwoFactorEnabled || s.TwoFactorVerified)
}

// RequiresTwoFactor reports whether s is 2FA-pending.
func (s *Session) RequiresTwoFactor() bool {
	return s.IsAuthenticated() && s.TwoFactorEnabled && !s.TwoFactorVerified
}

// RequireAuthenticated fails with ErrUnauthorized unless s is authenticated.
func RequireAuthenticated(s *Session) error {
	if !s.IsAuthenticated() {
		return ErrUnauthorized
	}
	return nil
}

// RequireFullyVerified fails with ErrUnauthorized for anonymous requests and
// with ErrTwoFactorRequired for 2FA-pending sessions.
func RequireFullyVerified(s *Session) error {
	if err := RequireAuthenticated(s); err != nil {
		return err
	}
	if !s.IsFullyVerified() {
		return ErrTwoFactorRequired
	}
	return nil
}

// RequireAdmin fails with ErrUnauthorized for anonymous requests and with
// ErrForbidden when the session does not hold the admin role.
func RequireAdmin(s *Session) error {
	if err := RequireAuthenticated(s); err != nil {
		return err
	}
	if s.Role != RoleAdmin {
		return ErrForbidden
	}
	return nil
}
