package models

import "time"

// Kid represents a child profile in the system
type Kid struct {
	ID           int64     `json:"id"`
	FamilyID     int64     `json:"family_id"`
	Name         string    `json:"name"`
	AvatarGlyph  string    `json:"avatar_glyph"`
	PIN          string    `json:"pin"` // 4-digit login PIN, shown to parents
	TotalPoints  int       `json:"total_points"`
	TotalMinutes int       `json:"total_minutes"`
	SortPosition int       `json:"sort_position"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// KidWithGoal combines a kid with their active goal, if any
type KidWithGoal struct {
	Kid  Kid   `json:"kid"`
	Goal *Goal `json:"goal"`
}
