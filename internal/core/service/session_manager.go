package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/africtivistes/adisa/internal/core/domain"
	"github.com/africtivistes/adisa/internal/core/ports"
)

// SessionManager persists sessions in a SessionStore and hands the client a
// signed reference to them. The reference is an HS256 JWT whose only claims
// are the session id and its expiry; account data never leaves the server.
type SessionManager struct {
	store  ports.SessionStore
	secret []byte
	ttl    time.Duration
	log    zerolog.Logger
	now    func() time.Time
}

func NewSessionManager(store ports.SessionStore, secret string, ttl time.Duration, log zerolog.Logger) *SessionManager {
	if ttl <= 0 {
		ttl = domain.SessionTTL
	}
	return &SessionManager{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		log:    log,
		now:    time.Now,
	}
}

// TTL is the lifetime of a session and of its cookie. It runs from login;
// upgrading a session to 2FA-verified does not extend it.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Open starts a session for identity. TwoFactorVerified always starts false.
func (m *SessionManager) Open(ctx context.Context, identity *domain.Identity) (*domain.Session, string, error) {
	now := m.now().UTC()
	session := &domain.Session{
		ID:               uuid.NewString(),
		AccountID:        identity.ID,
		Username:         identity.Username,
		Email:            identity.Email,
		Role:             identity.Role,
		TwoFactorEnabled: identity.TwoFactorEnabled,
		CreatedAt:        now,
		ExpiresAt:        now.Add(m.ttl),
	}

	if err := m.store.Save(ctx, session, m.ttl); err != nil {
		return nil, "", err
	}

	token, err := m.sign(session)
	if err != nil {
		_ = m.store.Delete(ctx, session)
		return nil, "", fmt.Errorf("sign session: %w", err)
	}
	return session, token, nil
}

// Resolve verifies the signed reference and loads its session. Any bad,
// expired or revoked reference yields domain.ErrUnauthorized.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid || claims.ID == "" {
		return nil, domain.ErrUnauthorized
	}

	session, err := m.store.Get(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if m.now().After(session.ExpiresAt) {
		return nil, domain.ErrUnauthorized
	}
	return session, nil
}

// MarkTwoFactorVerified flags session as having passed 2FA. It is idempotent.
// A session closed or revoked in the meantime is not brought back.
func (m *SessionManager) MarkTwoFactorVerified(ctx context.Context, session *domain.Session) error {
	if err := domain.RequireAuthenticated(session); err != nil {
		return err
	}
	if session.TwoFactorVerified {
		return nil
	}

	if !m.now().Before(session.ExpiresAt) {
		return domain.ErrUnauthorized
	}

	session.TwoFactorVerified = true
	if err := m.store.Update(ctx, session); err != nil {
		session.TwoFactorVerified = false
		return err
	}
	return nil
}

// Close destroys session. The client reference stops resolving at once.
func (m *SessionManager) Close(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return nil
	}
	return m.store.Delete(ctx, session)
}

// RevokeAccount closes every session of accountID.
func (m *SessionManager) RevokeAccount(ctx context.Context, accountID string) error {
	if err := m.store.DeleteByAccount(ctx, accountID); err != nil {
		return err
	}
	m.log.Info().Str("account_id", accountID).Msg("sessions revoked")
	return nil
}

// enrollmentAudience keeps enrollment grants and session references apart:
// Resolve needs a jti, VerifyEnrollmentToken needs this audience.
const enrollmentAudience = "adisa-2fa-enrollment"

// IssueEnrollmentToken grants accountID the right to set up 2FA for
// domain.EnrollmentTTL without being logged in.
func (m *SessionManager) IssueEnrollmentToken(accountID string) (string, error) {
	now := m.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		Audience:  jwt.ClaimStrings{enrollmentAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(domain.EnrollmentTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign enrollment token: %w", err)
	}
	return token, nil
}

// VerifyEnrollmentToken fails with domain.ErrUnauthorized unless token is a
// live enrollment grant for accountID.
func (m *SessionManager) VerifyEnrollmentToken(token, accountID string) error {
	if token == "" || accountID == "" {
		return domain.ErrUnauthorized
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(enrollmentAudience),
		jwt.WithSubject(accountID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return domain.ErrUnauthorized
	}
	return nil
}

func (m *SessionManager) sign(session *domain.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        session.ID,
		IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}
