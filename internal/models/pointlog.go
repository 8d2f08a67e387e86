package models

import "time"

// PointLog is the immutable record of one balance mutation. Deleting a log
// entry also reverses its deltas on the kid's live balances, so the sum of
// the remaining deltas for a kid always equals the kid's current balances.
type PointLog struct {
	ID           int64     `json:"id"`
	FamilyID     int64     `json:"family_id"`
	KidID        int64     `json:"kid_id"`
	PointsDelta  int       `json:"points_delta"`
	MinutesDelta int       `json:"minutes_delta"`
	Reason       string    `json:"reason"`
	ActorName    string    `json:"actor_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// PointLogWithKid pairs a log entry with the kid's display name for
// history views and CSV export.
type PointLogWithKid struct {
	PointLog
	KidName string `json:"kid_name"`
}
