package counter

import "time"

// Reconciler mirrors a kid's authoritative balances into the visual
// counters, but only while the card is Ready. Celebration fires exactly
// when the mirrored point value strictly increases; minute changes and
// decreases never celebrate. Values observed while the card is not Ready
// are simply not mirrored, so the comparison on the next Ready observation
// is still against the last value the user actually saw.
type Reconciler struct {
	Visibility Visibility
	Points     *Counter
	Minutes    *Counter

	mirroredPoints  int
	mirroredMinutes int
}

// NewReconciler creates a reconciler with the initial balances already
// mirrored, so the first display never celebrates.
func NewReconciler(points, minutes int) *Reconciler {
	return &Reconciler{
		Points:          NewCounter(float64(points)),
		Minutes:         NewCounter(float64(minutes)),
		mirroredPoints:  points,
		mirroredMinutes: minutes,
	}
}

// HandleRatio forwards a visibility observation to the gate.
func (r *Reconciler) HandleRatio(ratio float64, now time.Time) {
	r.Visibility.HandleRatio(ratio, now)
}

// Observe feeds the latest authoritative balances. It returns true when a
// celebration should fire. Outside the Ready state nothing is mirrored and
// nothing fires.
func (r *Reconciler) Observe(points, minutes int, now time.Time) bool {
	if r.Visibility.Current(now) != Ready {
		return false
	}

	celebrate := points > r.mirroredPoints

	if points != r.mirroredPoints {
		r.Points.SetTarget(float64(points), now)
		r.mirroredPoints = points
	}
	if minutes != r.mirroredMinutes {
		r.Minutes.SetTarget(float64(minutes), now)
		r.mirroredMinutes = minutes
	}

	return celebrate
}

// MirroredPoints returns the last point value shown to the user.
func (r *Reconciler) MirroredPoints() int {
	return r.mirroredPoints
}

// MirroredMinutes returns the last minute value shown to the user.
func (r *Reconciler) MirroredMinutes() int {
	return r.mirroredMinutes
}
