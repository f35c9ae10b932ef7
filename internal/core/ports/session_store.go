package ports

import (
	"context"
	"time"

	"github.com/africtivistes/adisa/internal/core/domain"
)

// SessionStore is the key-value store holding server-side sessions.
// Entries expire passively ttl after their last Save.
type SessionStore interface {
	Save(ctx context.Context, session *domain.Session, ttl time.Duration) error
	// Update rewrites an existing session without touching its expiry. It
	// returns domain.ErrUnauthorized when the session no longer exists.
	Update(ctx context.Context, session *domain.Session) error
	// Get returns domain.ErrUnauthorized when the session is unknown or expired.
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, session *domain.Session) error
	// DeleteByAccount revokes every session bound to accountID.
	DeleteByAccount(ctx context.Context, accountID string) error
}

// ReplayGuard remembers TOTP time steps already accepted for an account.
type ReplayGuard interface {
	// MarkUsed records step for accountID. It reports false when the step
	// had already been used.
	MarkUsed(ctx context.Context, accountID string, step uint64) (bool, error)
}
