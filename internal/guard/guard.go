// Package guard implements the PIN gate that protects privileged actions:
// self-service mutations from a kid's context and destructive parent
// actions. The gate resolves without prompting when the family has no PIN
// enabled or the actor is already an authenticated parent; otherwise the
// entered value must equal the family PIN exactly (string compare, not
// numeric). A gated action must abort entirely on a false result.
package guard

import "errors"

// ErrPINMismatch is returned when an entered PIN does not match the
// family's configured PIN. Callers surface it as a distinct verification
// notice; a cancelled prompt aborts silently.
var ErrPINMismatch = errors.New("pin verification failed")

// Actor is whoever is attempting the gated action.
type Actor struct {
	Name     string
	IsParent bool
}

// Gate is the family's PIN configuration.
type Gate struct {
	Enabled bool
	PIN     string
}

// Prompter supplies the entered PIN when a challenge is required.
// ok=false means the challenge was cancelled.
type Prompter interface {
	PromptPIN() (pin string, ok bool)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func() (string, bool)

func (f PrompterFunc) PromptPIN() (string, bool) { return f() }

// Check decides whether the action may proceed. It returns (true, nil)
// without prompting when the gate is disabled or the actor is a parent.
// Otherwise it prompts once: (false, nil) on cancel, (false,
// ErrPINMismatch) on a wrong entry, (true, nil) on an exact match.
func Check(actor Actor, gate Gate, prompter Prompter) (bool, error) {
	if !gate.Enabled || actor.IsParent {
		return true, nil
	}

	entered, ok := prompter.PromptPIN()
	if !ok {
		return false, nil
	}
	if entered != gate.PIN {
		return false, ErrPINMismatch
	}
	return true, nil
}

// Verify is the promptless form used on the server side: the entered value
// arrives with the request (header or form field).
func Verify(actor Actor, gate Gate, entered string) (bool, error) {
	if !gate.Enabled || actor.IsParent {
		return true, nil
	}
	if entered == "" {
		return false, nil
	}
	if entered != gate.PIN {
		return false, ErrPINMismatch
	}
	return true, nil
}
