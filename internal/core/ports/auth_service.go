package ports

import (
	"context"

	"github.com/africtivistes/adisa/internal/core/domain"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Session *domain.Session
	// Token is the signed session reference handed to the client.
	Token string
}

// Requires2FA reports whether the caller must complete a TOTP check before
// the session is admitted to protected resources.
func (r *LoginResult) Requires2FA() bool {
	return r.Session.TwoFactorEnabled
}

// CredentialVerifier checks a username/password pair.
type CredentialVerifier interface {
	Authenticate(ctx context.Context, username, password string) (*domain.Identity, error)
}

// SessionManager opens, resolves, upgrades and closes sessions.
type SessionManager interface {
	Open(ctx context.Context, identity *domain.Identity) (*domain.Session, string, error)
	Resolve(ctx context.Context, token string) (*domain.Session, error)
	MarkTwoFactorVerified(ctx context.Context, session *domain.Session) error
	Close(ctx context.Context, session *domain.Session) error
	RevokeAccount(ctx context.Context, accountID string) error
}

// EnrollmentTokens mints and checks the short-lived grant returned by
// registration, which lets a new account set up 2FA before its first login.
type EnrollmentTokens interface {
	IssueEnrollmentToken(accountID string) (string, error)
	// VerifyEnrollmentToken returns domain.ErrUnauthorized for a missing,
	// expired or foreign grant.
	VerifyEnrollmentToken(token, accountID string) error
}

// AuthService covers login, logout and the current-user lookup.
type AuthService interface {
	CredentialVerifier
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Logout(ctx context.Context, session *domain.Session) error
	Resolve(ctx context.Context, token string) (*domain.Session, error)
	CurrentUser(ctx context.Context, session *domain.Session) (*domain.Account, error)
}
