// Package calculator implements the point/minute conversion arithmetic.
// All functions are pure: they validate against the supplied balances and
// either return the deltas for a ledger adjustment or a typed rejection,
// with no side effects. The ledger is the actual enforcement boundary;
// these checks are advisory pre-checks.
package calculator

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientBalance means the requested amount exceeds the kid's balance
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrAmountTooSmall means the requested minutes are below one full point's worth
	ErrAmountTooSmall = errors.New("amount too small to convert")
	// ErrInvalidAmount means the requested amount is zero or negative
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidRate means the conversion rate is below one minute per point
	ErrInvalidRate = errors.New("conversion rate must be at least 1")
)

// Conversion is the outcome of a redemption calculation: the signed deltas
// to submit as one ledger adjustment.
type Conversion struct {
	PointsDelta  int
	MinutesDelta int
}

// MinutesToPoints converts minutes into points at rate minutes-per-point,
// flooring to whole points. Only whole multiples of the rate are consumed:
// converting 45 minutes at rate 2 spends 44 minutes for 22 points and
// leaves the single remainder minute untouched.
func MinutesToPoints(minutes, balanceMinutes, rate int) (Conversion, error) {
	if rate < 1 {
		return Conversion{}, ErrInvalidRate
	}
	if minutes <= 0 {
		return Conversion{}, ErrInvalidAmount
	}
	if minutes > balanceMinutes {
		return Conversion{}, ErrInsufficientBalance
	}

	points := minutes / rate
	if points == 0 {
		return Conversion{}, ErrAmountTooSmall
	}

	return Conversion{
		PointsDelta:  points,
		MinutesDelta: -(points * rate),
	}, nil
}

// PointsToMinutes converts points into screen-time minutes at rate
// minutes-per-point. The conversion is exact: spending p points always
// grants p*rate minutes.
func PointsToMinutes(points, balancePoints, rate int) (Conversion, error) {
	if rate < 1 {
		return Conversion{}, ErrInvalidRate
	}
	if points <= 0 {
		return Conversion{}, ErrInvalidAmount
	}
	if points > balancePoints {
		return Conversion{}, ErrInsufficientBalance
	}

	return Conversion{
		PointsDelta:  -points,
		MinutesDelta: points * rate,
	}, nil
}

// CashValue returns the display-only cash equivalent of a point balance.
// It is never enforced against any real payment.
func CashValue(points int, pointToCash decimal.Decimal) decimal.Decimal {
	return pointToCash.Mul(decimal.NewFromInt(int64(points)))
}
