package domain

import "time"

// InvitationTTL is how long an invitation stays redeemable after it is issued.
const InvitationTTL = 7 * 24 * time.Hour

// Invitation is a single-use capability to register one account for Email.
type Invitation struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Token     string     `json:"-"`
	InvitedBy string     `json:"invitedBy"`
	Used      bool       `json:"used"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
}

// Expired reports whether the invitation can no longer be redeemed at now.
// ExpiresAt itself is still valid.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Redeemable reports whether the invitation is unused and not expired at now.
func (i *Invitation) Redeemable(now time.Time) bool {
	return !i.Used && !i.Expired(now)
}
