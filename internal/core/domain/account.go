package domain

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Account is the identity record of a person allowed to use the admin backend.
type Account struct {
	ID               string    `json:"id"`
	Username         string    `json:"username,omitempty"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	FirstName        string    `json:"firstName,omitempty"`
	LastName         string    `json:"lastName,omitempty"`
	ProfileImageURL  string    `json:"profileImageUrl,omitempty"`
	Role             Role      `json:"role"`
	IsActive         bool      `json:"isActive"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	TwoFactorSecret  string    `json:"-"`
	InvitedBy        string    `json:"invitedBy,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Label is the name shown in authenticator apps: the username, or the email
// for email-only accounts.
func (a *Account) Label() string {
	if a.Username != "" {
		return a.Username
	}
	return a.Email
}

// Identity is the minimal projection of an account produced by a successful
// credential check. It is what a session is opened from.
type Identity struct {
	ID                string
	Username          string
	Email             string
	Role              Role
	TwoFactorEnabled  bool
	TwoFactorVerified bool
}

// IdentityOf projects an account into an Identity. TwoFactorVerified is
// always false: it can only become true inside a session.
func IdentityOf(a *Account) *Identity {
	return &Identity{
		ID:               a.ID,
		Username:         a.Username,
		Email:            a.Email,
		Role:             a.Role,
		TwoFactorEnabled: a.TwoFactorEnabled,
	}
}

// AccountUpdate carries an admin change to an account. Nil fields are left untouched.
type AccountUpdate struct {
	Role     *Role
	IsActive *bool
}
