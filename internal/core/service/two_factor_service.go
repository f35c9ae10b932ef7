package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/africtivistes/adisa/internal/core/domain"
	"github.com/africtivistes/adisa/internal/core/ports"
	"github.com/africtivistes/adisa/internal/pkg/metrics"
	"github.com/africtivistes/adisa/internal/pkg/totp"
)

// TwoFactorService enrolls accounts in TOTP and verifies codes at login.
type TwoFactorService struct {
	accounts ports.AccountRepository
	sessions ports.SessionManager
	replay   ports.ReplayGuard
	engine   *totp.Engine
	log      zerolog.Logger
	now      func() time.Time
}

// NewTwoFactorService returns a TwoFactorService. replay may be nil, in which
// case a code stays usable for its whole validity window.
func NewTwoFactorService(
	accounts ports.AccountRepository,
	sessions ports.SessionManager,
	replay ports.ReplayGuard,
	engine *totp.Engine,
	log zerolog.Logger,
) *TwoFactorService {
	return &TwoFactorService{
		accounts: accounts,
		sessions: sessions,
		replay:   replay,
		engine:   engine,
		log:      log,
		now:      time.Now,
	}
}

// Generate draws a new secret for accountID and stores it without enabling
// 2FA. It refuses to touch an account that already has 2FA enabled.
func (s *TwoFactorService) Generate(ctx context.Context, accountID string) (*ports.TwoFactorSetup, error) {
	if accountID == "" {
		return nil, domain.Invalid("user ID required")
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.TwoFactorEnabled {
		return nil, domain.ErrTwoFactorAlreadyEnabled
	}

	key, err := s.engine.NewKey(account.Label())
	if err != nil {
		return nil, err
	}
	qr, err := key.QRCodeDataURL()
	if err != nil {
		return nil, err
	}

	// The guarded write loses against a concurrent enable.
	if err := s.accounts.SetTwoFactorSecret(ctx, account.ID, key.Secret); err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", account.ID).Msg("2fa secret generated")

	return &ports.TwoFactorSetup{
		Secret:     key.Secret,
		OTPAuthURL: key.URL,
		QRCode:     qr,
	}, nil
}

// VerifyAndEnable checks code against the stored secret and, when it
// matches, enables 2FA on the account.
func (s *TwoFactorService) VerifyAndEnable(ctx context.Context, accountID, code string) error {
	if accountID == "" || code == "" {
		return domain.Invalid("user ID and token required")
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.TwoFactorSecret == "" {
		return domain.ErrTwoFactorNotInitialized
	}

	if err := s.check(ctx, "enable", account, code); err != nil {
		return err
	}

	if err := s.accounts.EnableTwoFactor(ctx, account.ID, account.TwoFactorSecret); err != nil {
		return err
	}

	s.log.Info().Str("account_id", account.ID).Msg("2fa enabled")
	return nil
}

// Authenticate completes the second factor for a logged-in session.
func (s *TwoFactorService) Authenticate(ctx context.Context, session *domain.Session, code string) (*domain.Account, error) {
	if err := domain.RequireAuthenticated(session); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, domain.Invalid("token required")
	}

	account, err := s.accounts.FindByID(ctx, session.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.TwoFactorEnabled || account.TwoFactorSecret == "" {
		return nil, domain.ErrTwoFactorNotEnabled
	}

	if err := s.check(ctx, "authenticate", account, code); err != nil {
		return nil, err
	}

	if err := s.sessions.MarkTwoFactorVerified(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", account.ID).Str("session_id", session.ID).Msg("2fa verified")
	return account, nil
}

// check validates code within ±1 step and burns the matched step in the
// replay guard.
func (s *TwoFactorService) check(ctx context.Context, operation string, account *domain.Account, code string) error {
	step, ok := s.engine.Validate(account.TwoFactorSecret, code, s.now())
	if !ok {
		metrics.TwoFactorChecksTotal.WithLabelValues(operation, "invalid").Inc()
		s.log.Warn().Str("account_id", account.ID).Str("operation", operation).Msg("invalid 2fa code")
		return domain.ErrInvalidCode
	}

	if s.replay != nil {
		fresh, err := s.replay.MarkUsed(ctx, account.ID, step)
		if err != nil {
			return err
		}
		if !fresh {
			metrics.TwoFactorChecksTotal.WithLabelValues(operation, "replayed").Inc()
			s.log.Warn().Str("account_id", account.ID).Str("operation", operation).Msg("2fa code replayed")
			return domain.ErrInvalidCode
		}
	}

	metrics.TwoFactorChecksTotal.WithLabelValues(operation, "accepted").Inc()
	return nil
}
