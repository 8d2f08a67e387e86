package models

import "time"

// User represents a parent account in the system
type User struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name"`
	OAuthProvider string    `json:"-"`
	OAuthSubject  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Session represents an authenticated parent session
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// KidSession is the payload of a kid's self-service token. The server
// verifies the token signature but does not re-validate the kid's PIN per
// request; the token is trusted at face value for the household trust model.
type KidSession struct {
	KidID    int64  `json:"kid_id"`
	FamilyID int64  `json:"family_id"`
	Name     string `json:"name"`
}
