package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/africtivistes/adisa/internal/core/domain"
	"github.com/africtivistes/adisa/internal/core/ports"
	"github.com/africtivistes/adisa/internal/pkg/metrics"
)

// MinBcryptCost is the lowest cost accepted for password hashes.
const MinBcryptCost = 10

// dummyHash is compared against when there is no stored hash to check.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("adisa-timing-equaliser"), MinBcryptCost)

// AuthService implements credential verification, login and logout.
type AuthService struct {
	accounts ports.AccountRepository
	sessions ports.SessionManager
	log      zerolog.Logger
}

func NewAuthService(accounts ports.AccountRepository, sessions ports.SessionManager, log zerolog.Logger) *AuthService {
	return &AuthService{accounts: accounts, sessions: sessions, log: log}
}

// Authenticate checks username and password. Unknown users, accounts without
// a password and wrong passwords all yield the same ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.Identity, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Burn the same time as a real comparison.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if account.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	// Checked after the password so inactivity is only disclosed to the owner.
	if !account.IsActive {
		return nil, domain.ErrAccountInactive
	}

	return domain.IdentityOf(account), nil
}

// Login verifies the credentials and opens a session for the account.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	identity, err := s.Authenticate(ctx, username, password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		if !errors.Is(err, domain.ErrStorage) {
			s.log.Info().Str("reason", string(domain.KindOf(err))).Msg("login rejected")
		}
		return nil, err
	}

	session, token, err := s.sessions.Open(ctx, identity)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	result := "success"
	if session.TwoFactorEnabled {
		result = "pending_2fa"
	}
	metrics.LoginsTotal.WithLabelValues(result).Inc()
	s.log.Info().Str("account_id", identity.ID).Bool("requires_2fa", session.TwoFactorEnabled).Msg("login accepted")

	return &ports.LoginResult{Session: session, Token: token}, nil
}

// Logout destroys the server-side session.
func (s *AuthService) Logout(ctx context.Context, session *domain.Session) error {
	if !session.IsAuthenticated() {
		return nil
	}
	if err := s.sessions.Close(ctx, session); err != nil {
		return err
	}
	s.log.Info().Str("account_id", session.AccountID).Msg("logout")
	return nil
}

// Resolve returns the session referenced by a signed client token.
func (s *AuthService) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	return s.sessions.Resolve(ctx, token)
}

// CurrentUser loads the account behind a fully verified session.
func (s *AuthService) CurrentUser(ctx context.Context, session *domain.Session) (*domain.Account, error) {
	if err := domain.RequireFullyVerified(session); err != nil {
		return nil, err
	}
	return s.accounts.FindByID(ctx, session.AccountID)
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAccountInactive):
		return "inactive"
	default:
		return "error"
	}
}

// hashPassword bcrypts password with cost, raised to MinBcryptCost when lower.
func hashPassword(password string, cost int) (string, error) {
	if cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
