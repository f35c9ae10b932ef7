package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/africtivistes/adisa/internal/core/domain"
	"github.com/africtivistes/adisa/internal/core/ports"
	"github.com/africtivistes/adisa/internal/pkg/metrics"
)

// invitationTokenBytes is the entropy of an invitation token before hex encoding.
const invitationTokenBytes = 32

// InvitationService issues invitations and turns them into accounts.
type InvitationService struct {
	accounts    ports.AccountRepository
	invitations ports.InvitationRepository
	mailer      ports.Mailer
	baseURL     string
	bcryptCost  int
	log         zerolog.Logger
	now         func() time.Time
}

// NewInvitationService returns an InvitationService. baseURL is the public
// origin used in registration links; when empty the caller-supplied origin is used.
func NewInvitationService(
	accounts ports.AccountRepository,
	invitations ports.InvitationRepository,
	mailer ports.Mailer,
	baseURL string,
	bcryptCost int,
	log zerolog.Logger,
) *InvitationService {
	return &InvitationService{
		accounts:    accounts,
		invitations: invitations,
		mailer:      mailer,
		baseURL:     strings.TrimRight(baseURL, "/"),
		bcryptCost:  bcryptCost,
		log:         log,
		now:         time.Now,
	}
}

// Issue creates an invitation for input.Email and emails the registration link.
func (s *InvitationService) Issue(ctx context.Context, input ports.IssueInvitationInput) (*domain.Invitation, error) {
	email := normalizeEmail(input.Email)
	if !validEmail(email) {
		return nil, domain.Invalid("valid email address required")
	}

	// Checked before drawing a token.
	if _, err := s.accounts.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	token, err := generateInvitationToken()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	invitation, err := s.invitations.Create(ctx, &domain.Invitation{
		Email:     email,
		Token:     token,
		InvitedBy: input.IssuerID,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.InvitationTTL),
	})
	if err != nil {
		return nil, err
	}
	metrics.InvitationsIssuedTotal.Inc()

	if err := s.mailer.Send(ctx, invitationEmail(email, s.registerURL(input.BaseURL, token))); err != nil {
		// The invitation stays valid; the admin can read the failure in the logs.
		s.log.Error().Err(err).Str("invitation_id", invitation.ID).Msg("failed to queue invitation email")
	}

	s.log.Info().
		Str("invitation_id", invitation.ID).
		Str("invited_by", input.IssuerID).
		Time("expires_at", invitation.ExpiresAt).
		Msg("invitation issued")

	return invitation, nil
}

// Validate returns the invitation for token when it is unused and not expired.
func (s *InvitationService) Validate(ctx context.Context, token string) (*domain.Invitation, error) {
	if token == "" {
		return nil, domain.ErrInvalidOrExpiredInvite
	}

	invitation, err := s.invitations.FindUnusedByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invitation.Expired(s.now()) {
		return nil, domain.ErrInvitationExpired
	}
	return invitation, nil
}

// Register redeems input.Token and creates the account bound to the
// invitation's email. The redemption is re-checked and claimed atomically
// here, whatever Validate said earlier.
func (s *InvitationService) Register(ctx context.Context, input ports.RegisterInput) (*domain.Account, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	if input.Token == "" || input.Username == "" || input.Password == "" || input.FirstName == "" || input.LastName == "" {
		return nil, domain.Invalid("all fields are required")
	}

	if _, err := s.Validate(ctx, input.Token); err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registrationResult(err)).Inc()
		return nil, err
	}

	if _, err := s.accounts.FindByUsername(ctx, input.Username); err == nil {
		metrics.RegistrationsTotal.WithLabelValues("username_taken").Inc()
		return nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := hashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	invitation, err := s.invitations.Redeem(ctx, input.Token, now)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registrationResult(err)).Inc()
		return nil, err
	}

	account, err := s.accounts.Create(ctx, &domain.Account{
		Username:     input.Username,
		Email:        invitation.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         domain.RoleUser,
		IsActive:     true,
		InvitedBy:    invitation.InvitedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if relErr := s.invitations.Release(ctx, input.Token); relErr != nil {
			s.log.Error().Err(relErr).Str("invitation_id", invitation.ID).Msg("failed to release invitation")
		}
		metrics.RegistrationsTotal.WithLabelValues(registrationResult(err)).Inc()
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	s.log.Info().
		Str("account_id", account.ID).
		Str("invitation_id", invitation.ID).
		Msg("account registered")

	return account, nil
}

func (s *InvitationService) registerURL(fallback, token string) string {
	base := s.baseURL
	if base == "" {
		base = strings.TrimRight(fallback, "/")
	}
	return base + "/register?token=" + url.QueryEscape(token)
}

func generateInvitationToken() (string, error) {
	b := make([]byte, invitationTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate invitation token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func registrationResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidOrExpiredInvite):
		return "invalid_invitation"
	case errors.Is(err, domain.ErrUsernameTaken):
		return "username_taken"
	default:
		return "error"
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// emails checks addresses the same way the HTTP layer's "email" tag does.
var emails = validator.New()

func validEmail(email string) bool {
	return emails.Var(email, "required,email") == nil
}

func invitationEmail(to, link string) ports.Message {
	return ports.Message{
		To:      to,
		Subject: "Invitation à rejoindre ADISA",
		HTMLBody: fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #1890ff;">Vous êtes invité à rejoindre ADISA</h2>
  <p>Bonjour,</p>
  <p>Vous avez été invité par un administrateur à rejoindre la plateforme ADISA - AfricTivistes Digital Safety Audit.</p>
  <p>Cliquez sur le lien ci-dessous pour créer votre compte :</p>
  <p style="text-align: center; margin: 30px 0;"><a href="%s">Créer mon compte</a></p>
  <p><small>Ce lien expire dans 7 jours.</small></p>
  <p><small>Si vous n'avez pas demandé cette invitation, vous pouvez ignorer cet email.</small></p>
</div>`, html.EscapeString(link)),
		TextBody: fmt.Sprintf("Vous avez été invité à rejoindre ADISA.\n\nCréez votre compte en visitant : %s\n\nCe lien expire dans 7 jours.", link),
	}
}
