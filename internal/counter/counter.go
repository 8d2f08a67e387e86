package counter

import (
	"math"
	"time"
)

// AnimationDuration is how long a counter takes to reach a new target.
const AnimationDuration = time.Second

// Counter animates a displayed number from its current value to a target
// over AnimationDuration using an ease-out cubic curve. Setting a new
// target mid-flight restarts the interpolation from the currently displayed
// value, not from the previous animation's origin.
type Counter struct {
	start     float64
	target    float64
	startedAt time.Time
	animating bool
}

// NewCounter creates a counter resting at the given initial value.
func NewCounter(initial float64) *Counter {
	return &Counter{start: initial, target: initial}
}

// SetTarget starts a fresh interpolation toward target from whatever value
// is displayed at now.
func (c *Counter) SetTarget(target float64, now time.Time) {
	c.start = c.Value(now)
	c.target = target
	c.startedAt = now
	c.animating = true
}

// Target returns the value the counter is heading toward.
func (c *Counter) Target() float64 {
	return c.target
}

// Value returns the displayed number at now. Integer targets are floored
// while in flight; fractional targets are rounded to one decimal place.
func (c *Counter) Value(now time.Time) float64 {
	if !c.animating {
		return c.display(c.target)
	}

	elapsed := now.Sub(c.startedAt)
	if elapsed >= AnimationDuration {
		c.animating = false
		c.start = c.target
		return c.display(c.target)
	}
	if elapsed < 0 {
		return c.display(c.start)
	}

	t := float64(elapsed) / float64(AnimationDuration)
	eased := 1 - math.Pow(1-t, 3)
	return c.display(c.start + (c.target-c.start)*eased)
}

func (c *Counter) display(raw float64) float64 {
	if c.target == math.Trunc(c.target) {
		return math.Floor(raw)
	}
	return math.Round(raw*10) / 10
}
