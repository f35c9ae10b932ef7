package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/africtivistes/adisa/internal/core/domain"
	"github.com/africtivistes/adisa/internal/core/ports"
)

// AccountService implements the admin operations on accounts.
type AccountService struct {
	accounts   ports.AccountRepository
	sessions   ports.SessionManager
	bcryptCost int
	log        zerolog.Logger
	now        func() time.Time
}

func NewAccountService(accounts ports.AccountRepository, sessions ports.SessionManager, bcryptCost int, log zerolog.Logger) *AccountService {
	return &AccountService{
		accounts:   accounts,
		sessions:   sessions,
		bcryptCost: bcryptCost,
		log:        log,
		now:        time.Now,
	}
}

func (s *AccountService) List(ctx context.Context) ([]*domain.Account, error) {
	return s.accounts.List(ctx)
}

// Update changes an account's role or active flag. Deactivating an account
// revokes all of its sessions.
func (s *AccountService) Update(ctx context.Context, id string, update domain.AccountUpdate) (*domain.Account, error) {
	if update.Role == nil && update.IsActive == nil {
		return nil, domain.Invalid("nothing to update")
	}
	if update.Role != nil && !update.Role.Valid() {
		return nil, domain.Invalid("role must be one of: admin user")
	}

	account, err := s.accounts.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}

	if update.IsActive != nil && !*update.IsActive {
		if err := s.sessions.RevokeAccount(ctx, account.ID); err != nil {
			return nil, err
		}
	}

	s.log.Info().
		Str("account_id", account.ID).
		Str("role", string(account.Role)).
		Bool("is_active", account.IsActive).
		Msg("account updated")
	return account, nil
}

// CreateAdmin provisions an active administrator unless the username exists.
func (s *AccountService) CreateAdmin(ctx context.Context, input ports.CreateAdminInput) (*domain.Account, bool, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = normalizeEmail(input.Email)
	if input.Username == "" || input.Password == "" {
		return nil, false, domain.Invalid("username and password are required")
	}
	if !validEmail(input.Email) {
		return nil, false, domain.Invalid("valid email address required")
	}

	existing, err := s.accounts.FindByUsername(ctx, input.Username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	hash, err := hashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	account, err := s.accounts.Create(ctx, &domain.Account{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         domain.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, false, err
	}

	s.log.Info().Str("account_id", account.ID).Str("username", account.Username).Msg("admin account created")
	return account, true, nil
}
