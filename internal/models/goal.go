package models

import "time"

// Goal is an optional per-kid savings target. A kid has at most one active
// goal; saving a new one replaces the old.
type Goal struct {
	ID           int64     `json:"id"`
	KidID        int64     `json:"kid_id"`
	Title        string    `json:"title"`
	TargetPoints int       `json:"target_points"`
	ImageRef     string    `json:"image_ref"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
