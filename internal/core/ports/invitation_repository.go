package ports

import (
	"context"
	"time"

	"github.com/africtivistes/adisa/internal/core/domain"
)

// InvitationRepository defines the persistence operations on invitations.
type InvitationRepository interface {
	Create(ctx context.Context, invitation *domain.Invitation) (*domain.Invitation, error)

	// FindUnusedByToken returns the unused invitation carrying token, or
	// domain.ErrInvalidOrExpiredInvite. Expiry is left to the caller.
	FindUnusedByToken(ctx context.Context, token string) (*domain.Invitation, error)

	// Redeem atomically marks the invitation used, guarded by used=false and
	// expires_at > now. Exactly one of several concurrent callers succeeds;
	// the others get domain.ErrInvalidOrExpiredInvite.
	Redeem(ctx context.Context, token string, now time.Time) (*domain.Invitation, error)

	// Release undoes a Redeem whose account creation failed.
	Release(ctx context.Context, token string) error
}
