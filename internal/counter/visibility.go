// Package counter models the display-side state for balance cards: a
// visibility gate that delays animation until a card has settled into view,
// an animated number that eases toward its target, and a reconciler that
// mirrors authoritative balances into the visual buffer and decides when a
// celebration fires. Nothing in this package touches authoritative state;
// it is a pure, clock-injected state machine so the timing rules are
// testable without a render loop.
package counter

import "time"

// State is the visibility lifecycle of one displayed card.
type State int

const (
	// NotVisible means less than the threshold share of the card is in view
	NotVisible State = iota
	// VisiblePending means the card entered view but has not settled yet
	VisiblePending
	// Ready means the card has been in view for the full settle delay
	Ready
)

func (s State) String() string {
	switch s {
	case NotVisible:
		return "not_visible"
	case VisiblePending:
		return "visible_pending"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

const (
	// VisibleThreshold is the share of the card's area that must be in view
	VisibleThreshold = 0.30
	// SettleDelay is how long the card must stay in view before animating
	SettleDelay = 500 * time.Millisecond
)

// Visibility tracks one card's progress toward the Ready state.
type Visibility struct {
	state        State
	pendingSince time.Time
}

// HandleRatio feeds the current visible-area ratio. Dropping below the
// threshold resets to NotVisible immediately, cancelling any pending settle.
func (v *Visibility) HandleRatio(ratio float64, now time.Time) {
	if ratio < VisibleThreshold {
		v.state = NotVisible
		v.pendingSince = time.Time{}
		return
	}
	if v.state == NotVisible {
		v.state = VisiblePending
		v.pendingSince = now
	}
}

// Current returns the state as of now, promoting VisiblePending to Ready
// once the settle delay has elapsed without a visibility loss.
func (v *Visibility) Current(now time.Time) State {
	if v.state == VisiblePending && now.Sub(v.pendingSince) >= SettleDelay {
		v.state = Ready
	}
	return v.state
}
