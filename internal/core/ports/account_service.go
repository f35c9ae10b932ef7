package ports

import (
	"context"

	"github.com/africtivistes/adisa/internal/core/domain"
)

// CreateAdminInput provisions an administrator out of band.
type CreateAdminInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AccountService holds the admin operations on accounts.
type AccountService interface {
	List(ctx context.Context) ([]*domain.Account, error)
	Update(ctx context.Context, id string, update domain.AccountUpdate) (*domain.Account, error)
	// CreateAdmin is idempotent on username: created is false when an account
	// with that username already exists.
	CreateAdmin(ctx context.Context, input CreateAdminInput) (account *domain.Account, created bool, err error)
}
