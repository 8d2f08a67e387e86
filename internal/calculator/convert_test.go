package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinutesToPoints(t *testing.T) {
	tests := []struct {
		name        string
		minutes     int
		balance     int
		rate        int
		wantPoints  int
		wantMinutes int
		wantErr     error
	}{
		{
			name:        "exact multiple",
			minutes:     44,
			balance:     100,
			rate:        2,
			wantPoints:  22,
			wantMinutes: -44,
		},
		{
			name:        "remainder not consumed",
			minutes:     45,
			balance:     100,
			rate:        2,
			wantPoints:  22,
			wantMinutes: -44,
		},
		{
			name:        "full balance",
			minutes:     100,
			balance:     100,
			rate:        2,
			wantPoints:  50,
			wantMinutes: -100,
		},
		{
			name:        "rate one is identity",
			minutes:     7,
			balance:     10,
			rate:        1,
			wantPoints:  7,
			wantMinutes: -7,
		},
		{
			name:    "below one point's worth",
			minutes: 1,
			balance: 100,
			rate:    2,
			wantErr: ErrAmountTooSmall,
		},
		{
			name:    "exceeds balance",
			minutes: 101,
			balance: 100,
			rate:    2,
			wantErr: ErrInsufficientBalance,
		},
		{
			name:    "zero minutes",
			minutes: 0,
			balance: 100,
			rate:    2,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative minutes",
			minutes: -5,
			balance: 100,
			rate:    2,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "invalid rate",
			minutes: 10,
			balance: 100,
			rate:    0,
			wantErr: ErrInvalidRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv, err := MinutesToPoints(tt.minutes, tt.balance, tt.rate)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPoints, conv.PointsDelta)
			assert.Equal(t, tt.wantMinutes, conv.MinutesDelta)
		})
	}
}

// Minutes consumed must always be a whole multiple of the rate and never
// exceed the requested amount.
func TestMinutesToPointsConsumptionBound(t *testing.T) {
	for rate := 1; rate <= 5; rate++ {
		for m := 1; m <= 60; m++ {
			conv, err := MinutesToPoints(m, 1000, rate)
			if m/rate == 0 {
				assert.ErrorIs(t, err, ErrAmountTooSmall, "m=%d r=%d", m, rate)
				continue
			}
			require.NoError(t, err, "m=%d r=%d", m, rate)
			consumed := -conv.MinutesDelta
			assert.Equal(t, conv.PointsDelta*rate, consumed, "m=%d r=%d", m, rate)
			assert.LessOrEqual(t, consumed, m, "m=%d r=%d", m, rate)
			assert.Equal(t, m/rate, conv.PointsDelta, "m=%d r=%d", m, rate)
		}
	}
}

func TestPointsToMinutes(t *testing.T) {
	tests := []struct {
		name        string
		points      int
		balance     int
		rate        int
		wantPoints  int
		wantMinutes int
		wantErr     error
	}{
		{
			name:        "spend all points",
			points:      5,
			balance:     5,
			rate:        2,
			wantPoints:  -5,
			wantMinutes: 10,
		},
		{
			name:        "partial spend",
			points:      3,
			balance:     10,
			rate:        4,
			wantPoints:  -3,
			wantMinutes: 12,
		},
		{
			name:    "exceeds balance",
			points:  6,
			balance: 5,
			rate:    2,
			wantErr: ErrInsufficientBalance,
		},
		{
			name:    "zero points",
			points:  0,
			balance: 5,
			rate:    2,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "invalid rate",
			points:  1,
			balance: 5,
			rate:    0,
			wantErr: ErrInvalidRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv, err := PointsToMinutes(tt.points, tt.balance, tt.rate)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPoints, conv.PointsDelta)
			assert.Equal(t, tt.wantMinutes, conv.MinutesDelta)
		})
	}
}

func TestCashValue(t *testing.T) {
	rate := decimal.NewFromInt(5)
	assert.True(t, CashValue(0, rate).IsZero())
	assert.True(t, CashValue(22, rate).Equal(decimal.NewFromInt(110)))

	fractional := decimal.RequireFromString("0.25")
	assert.True(t, CashValue(3, fractional).Equal(decimal.RequireFromString("0.75")))
}
