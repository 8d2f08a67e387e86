package counter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestCounterConvergesAtDuration(t *testing.T) {
	c := NewCounter(0)
	c.SetTarget(100, t0)

	assert.Equal(t, float64(0), c.Value(t0))
	assert.Equal(t, float64(100), c.Value(t0.Add(AnimationDuration)))
	assert.Equal(t, float64(100), c.Value(t0.Add(5*AnimationDuration)))
}

func TestCounterEaseOutMonotonic(t *testing.T) {
	c := NewCounter(0)
	c.SetTarget(100, t0)

	prev := -1.0
	for ms := 0; ms <= 1000; ms += 50 {
		v := c.Value(t0.Add(time.Duration(ms) * time.Millisecond))
		assert.GreaterOrEqual(t, v, prev, "at %dms", ms)
		prev = v
	}

	// Ease-out: more than linear progress at the midpoint.
	mid := c.Value(t0.Add(500 * time.Millisecond))
	assert.Greater(t, mid, float64(50))
}

func TestCounterIntegerTargetFlooredInFlight(t *testing.T) {
	c := NewCounter(0)
	c.SetTarget(10, t0)

	for ms := 50; ms < 1000; ms += 50 {
		v := c.Value(t0.Add(time.Duration(ms) * time.Millisecond))
		assert.Equal(t, v, float64(int(v)), "at %dms", ms)
	}
}

func TestCounterFractionalTargetOneDecimal(t *testing.T) {
	c := NewCounter(0)
	c.SetTarget(7.5, t0)

	v := c.Value(t0.Add(300 * time.Millisecond))
	assert.InDelta(t, v, float64(int(v*10))/10, 1e-9)
	assert.Equal(t, 7.5, c.Value(t0.Add(AnimationDuration)))
}

func TestCounterRestartFromCurrentValue(t *testing.T) {
	c := NewCounter(0)
	c.SetTarget(100, t0)

	mid := t0.Add(400 * time.Millisecond)
	displayed := c.Value(mid)
	assert.Greater(t, displayed, float64(0))
	assert.Less(t, displayed, float64(100))

	// Retarget mid-flight: the new animation starts at the displayed value,
	// so the number never jumps.
	c.SetTarget(20, mid)
	assert.Equal(t, displayed, c.Value(mid))
	assert.Equal(t, float64(20), c.Value(mid.Add(AnimationDuration)))
}

func TestCounterDecreases(t *testing.T) {
	c := NewCounter(50)
	c.SetTarget(10, t0)

	v := c.Value(t0.Add(500 * time.Millisecond))
	assert.Less(t, v, float64(50))
	assert.Greater(t, v, float64(10))
	assert.Equal(t, float64(10), c.Value(t0.Add(AnimationDuration)))
}

func TestVisibilityLifecycle(t *testing.T) {
	var v Visibility

	assert.Equal(t, NotVisible, v.Current(t0))

	// Below threshold: stays hidden.
	v.HandleRatio(0.29, t0)
	assert.Equal(t, NotVisible, v.Current(t0))

	// Enters view: pending until the settle delay has passed.
	v.HandleRatio(0.30, t0)
	assert.Equal(t, VisiblePending, v.Current(t0))
	assert.Equal(t, VisiblePending, v.Current(t0.Add(499*time.Millisecond)))
	assert.Equal(t, Ready, v.Current(t0.Add(SettleDelay)))

	// Leaving view resets immediately.
	v.HandleRatio(0.1, t0.Add(time.Second))
	assert.Equal(t, NotVisible, v.Current(t0.Add(time.Second)))
}

func TestVisibilityLossCancelsPendingTimer(t *testing.T) {
	var v Visibility

	v.HandleRatio(0.5, t0)
	v.HandleRatio(0.0, t0.Add(200*time.Millisecond))
	v.HandleRatio(0.5, t0.Add(300*time.Millisecond))

	// The settle delay restarts from the re-entry, not the first entry.
	assert.Equal(t, VisiblePending, v.Current(t0.Add(700*time.Millisecond)))
	assert.Equal(t, Ready, v.Current(t0.Add(800*time.Millisecond)))
}

func TestReconcilerCelebratesOnlyOnPointIncrease(t *testing.T) {
	r := NewReconciler(10, 50)
	r.HandleRatio(1.0, t0)
	ready := t0.Add(SettleDelay)

	tests := []struct {
		name      string
		points    int
		minutes   int
		celebrate bool
	}{
		{"no change", 10, 50, false},
		{"points increase", 15, 50, true},
		{"points decrease", 12, 50, false},
		{"minutes only", 12, 90, false},
		{"points increase again", 13, 90, true},
		{"same points", 13, 90, false},
	}

	now := ready
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = now.Add(2 * time.Second)
			assert.Equal(t, tt.celebrate, r.Observe(tt.points, tt.minutes, now))
		})
	}
}

func TestReconcilerDefersUntilReady(t *testing.T) {
	r := NewReconciler(10, 50)

	// Not visible: nothing mirrors, nothing fires.
	assert.False(t, r.Observe(20, 50, t0))
	assert.Equal(t, 10, r.MirroredPoints())

	// Pending but not settled: still deferred.
	r.HandleRatio(0.5, t0)
	assert.False(t, r.Observe(20, 50, t0.Add(100*time.Millisecond)))
	assert.Equal(t, 10, r.MirroredPoints())

	// Once ready, the deferred increase is mirrored and celebrated once.
	now := t0.Add(SettleDelay)
	assert.True(t, r.Observe(20, 50, now))
	assert.Equal(t, 20, r.MirroredPoints())
	assert.False(t, r.Observe(20, 50, now.Add(2*time.Second)))
}

func TestReconcilerCounterTracksAuthoritative(t *testing.T) {
	r := NewReconciler(0, 0)
	r.HandleRatio(1.0, t0)
	now := t0.Add(SettleDelay)

	r.Observe(22, 56, now)
	assert.Equal(t, float64(22), r.Points.Value(now.Add(AnimationDuration)))
	assert.Equal(t, float64(56), r.Minutes.Value(now.Add(AnimationDuration)))
}
