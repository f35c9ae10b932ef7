package ports

import (
	"context"

	"github.com/africtivistes/adisa/internal/core/domain"
)

// TwoFactorSetup is the provisioning data shown once when 2FA is initialised.
type TwoFactorSetup struct {
	Secret     string
	OTPAuthURL string
	// QRCode is a data:image/png;base64 URL encoding OTPAuthURL.
	QRCode string
}

// TwoFactorService enrolls accounts in TOTP and checks codes at login.
type TwoFactorService interface {
	Generate(ctx context.Context, accountID string) (*TwoFactorSetup, error)
	VerifyAndEnable(ctx context.Context, accountID, code string) error
	Authenticate(ctx context.Context, session *domain.Session, code string) (*domain.Account, error)
}
