package ports

import (
	"context"

	"github.com/africtivistes/adisa/internal/core/domain"
)

// IssueInvitationInput is the admin request to invite a new member.
type IssueInvitationInput struct {
	Email    string
	IssuerID string
	// BaseURL is the public origin used for the registration link when no
	// APP_BASE_URL is configured.
	BaseURL string
}

// RegisterInput carries an invitation-backed registration. The account email
// always comes from the invitation.
type RegisterInput struct {
	Token     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// InvitationService issues, validates and redeems invitations.
type InvitationService interface {
	Issue(ctx context.Context, input IssueInvitationInput) (*domain.Invitation, error)
	Validate(ctx context.Context, token string) (*domain.Invitation, error)
	Register(ctx context.Context, input RegisterInput) (*domain.Account, error)
}
