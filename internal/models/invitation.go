package models

import "time"

// Invitation represents a pending invite for a co-parent to join a family
type Invitation struct {
	ID            int64     `json:"id"`
	FamilyID      int64     `json:"family_id"`
	Email         string    `json:"email"`
	Token         string    `json:"-"`
	InvitedByName string    `json:"invited_by_name"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
	Accepted      bool      `json:"accepted"`
}

// IsExpired checks if the invitation has expired
func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}
