package ports

import (
	"context"

	"github.com/africtivistes/adisa/internal/core/domain"
)

// AccountRepository defines the persistence operations on accounts.
//
// Lookups return domain.ErrNotFound when no account matches.
type AccountRepository interface {
	// Create inserts a new account. It returns domain.ErrUsernameTaken or
	// domain.ErrUserAlreadyExists when a unique constraint is violated.
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	List(ctx context.Context) ([]*domain.Account, error)

	// SetTwoFactorSecret stores secret on the account only while 2FA is not
	// enabled. It returns domain.ErrTwoFactorAlreadyEnabled when the guard fails.
	SetTwoFactorSecret(ctx context.Context, id, secret string) error

	// EnableTwoFactor flips two_factor_enabled on, guarded by the stored secret
	// still being the one the code was checked against. It returns
	// domain.ErrInvalidCode when the secret changed in between.
	EnableTwoFactor(ctx context.Context, id, secret string) error

	// Update applies an admin change and returns the updated account.
	Update(ctx context.Context, id string, update domain.AccountUpdate) (*domain.Account, error)
}
