package handler

import (
	"github.com/africtivistes/adisa/internal/core/domain"
)

// errorResponse documents the error envelope rendered by the API error handler.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Request types ---

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type registerRequest struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// EnrollmentToken is only needed when the request carries no session.
type twoFactorGenerateRequest struct {
	UserID          string `json:"userId"                    validate:"required"`
	EnrollmentToken string `json:"enrollmentToken,omitempty"`
}

type twoFactorVerifyRequest struct {
	UserID          string `json:"userId"                    validate:"required"`
	Token           string `json:"token"                     validate:"required"`
	EnrollmentToken string `json:"enrollmentToken,omitempty"`
}

type twoFactorAuthenticateRequest struct {
	Token string `json:"token" validate:"required"`
}

type updateUserRequest struct {
	Role     *string `json:"role"     validate:"omitempty,oneof=admin user"`
	IsActive *bool   `json:"isActive"`
}

// --- Response types ---

type userSummary struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
}

type loginResponse struct {
	Success     bool         `json:"success"`
	Requires2FA bool         `json:"requires2FA"`
	UserID      string       `json:"userId,omitempty"`
	User        *userSummary `json:"user,omitempty"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type checkResponse struct {
	Authenticated bool `json:"authenticated"`
}

type currentUserResponse struct {
	ID               string      `json:"id"`
	Username         string      `json:"username"`
	Email            string      `json:"email"`
	FirstName        string      `json:"firstName"`
	LastName         string      `json:"lastName"`
	ProfileImageURL  string      `json:"profileImageUrl"`
	Role             domain.Role `json:"role"`
	TwoFactorEnabled bool        `json:"twoFactorEnabled"`
}

type inviteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Email   string `json:"email"`
}

type validateInvitationResponse struct {
	Valid bool   `json:"valid"`
	Email string `json:"email"`
}

type registerResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	UserID           string `json:"userId"`
	Requires2FASetup bool   `json:"requires2FASetup"`

	// EnrollmentToken authorizes /api/2fa/generate and /api/2fa/verify for
	// UserID until it expires.
	EnrollmentToken string `json:"enrollmentToken"`
}

type twoFactorSetupResponse struct {
	Secret     string `json:"secret"`
	QRCode     string `json:"qrCode"`
	OTPAuthURL string `json:"otpauthUrl"`
}

type twoFactorAuthenticateResponse struct {
	Authenticated bool         `json:"authenticated"`
	Message       string       `json:"message"`
	User          *userSummary `json:"user"`
}

type listUsersResponse struct {
	Users []*domain.Account `json:"users"`
}

type updateUserResponse struct {
	User *domain.Account `json:"user"`
}

func summarize(id, username, email string, role domain.Role) *userSummary {
	return &userSummary{ID: id, Username: username, Email: email, Role: role}
}

func toCurrentUser(a *domain.Account) currentUserResponse {
	return currentUserResponse{
		ID:               a.ID,
		Username:         a.Username,
		Email:            a.Email,
		FirstName:        a.FirstName,
		LastName:         a.LastName,
		ProfileImageURL:  a.ProfileImageURL,
		Role:             a.Role,
		TwoFactorEnabled: a.TwoFactorEnabled,
	}
}
