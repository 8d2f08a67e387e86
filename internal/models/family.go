package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Default conversion rates and allotments, applied when a family row
// omits a value.
const (
	DefaultWeekdayLimit   = 50
	DefaultHolidayLimit   = 90
	DefaultPointToMinutes = 2
)

// DefaultPointToCash is the display-only cash value of one point.
var DefaultPointToCash = decimal.NewFromInt(5)

// RateTable holds a family's conversion rates and daily minute allotments.
// PointToMinutes is used symmetrically: minutes granted per point when
// converting points to time, and minutes required per point when converting
// time to points. PointToCash is display-only.
type RateTable struct {
	WeekdayLimit   int             `json:"weekday_limit"`
	HolidayLimit   int             `json:"holiday_limit"`
	PointToMinutes int             `json:"point_to_minutes"`
	PointToCash    decimal.Decimal `json:"point_to_cash"`
}

// RateTableWithDefaults fills any unset field with the default value.
// Defaults are applied here, once, at load time rather than at read sites.
func RateTableWithDefaults(rt RateTable) RateTable {
	if rt.WeekdayLimit <= 0 {
		rt.WeekdayLimit = DefaultWeekdayLimit
	}
	if rt.HolidayLimit <= 0 {
		rt.HolidayLimit = DefaultHolidayLimit
	}
	if rt.PointToMinutes < 1 {
		rt.PointToMinutes = DefaultPointToMinutes
	}
	if rt.PointToCash.LessThanOrEqual(decimal.Zero) {
		rt.PointToCash = DefaultPointToCash
	}
	return rt
}

// Family represents the tenant boundary: one household managed by parents
type Family struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	JoinCode     string    `json:"join_code"` // short uppercase alphanumeric code, unique
	AdminUserID  int64     `json:"admin_user_id"`
	Rates        RateTable `json:"rates"`
	UsePIN       bool      `json:"use_pin"` // whether the guard gate is enabled
	PIN          string    `json:"-"`       // family 4-digit PIN when the gate is enabled
	Theme        string    `json:"theme"`
	AutoAllocate bool      `json:"auto_allocate"` // daily minute allotment granted automatically
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FamilyMember represents the relationship between a user and a family
type FamilyMember struct {
	ID       int64     `json:"id"`
	FamilyID int64     `json:"family_id"`
	UserID   int64     `json:"user_id"`
	Role     string    `json:"role"` // 'parent' or 'admin'
	JoinedAt time.Time `json:"joined_at"`
}
