// Package wizard implements the multi-step flow engine behind the account
// and transfer dialogs. The state machine is pure and deterministic; the
// runtime layers validation, API calls, and notifications on top of it.
package wizard

import (
	"errors"
	"fmt"
)

// Flow phases.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseActive Phase = "active"
	PhaseDone   Phase = "done"
)

// State is the complete condition of a flow: which step is current, the
// values collected so far, and whether a submission is in flight.
type State struct {
	Phase   Phase
	Step    int
	Fields  map[string]string
	Pending bool
}

// Idle is the rest state every flow starts from and returns to on cancel.
func Idle() State {
	return State{Phase: PhaseIdle}
}

// Event drives a transition.
type Event interface{ event() }

// Open starts the flow at step zero.
type Open struct{}

// Submit merges the entered fields and marks the step in flight.
type Submit struct{ Fields map[string]string }

// Succeed completes the in-flight step, advancing or finishing.
type Succeed struct{}

// Fail completes the in-flight step in place so it can be retried.
type Fail struct{}

// Cancel abandons the flow.
type Cancel struct{}

func (Open) event()    {}
func (Submit) event()  {}
func (Succeed) event() {}
func (Fail) event()    {}
func (Cancel) event()  {}

var (
	// ErrBadTransition reports an event that is not legal in the current
	// phase, such as submitting an idle flow.
	ErrBadTransition = errors.New("event not allowed in current state")

	// ErrPending reports a submit while the previous one is still in
	// flight.
	ErrPending = errors.New("submission already in flight")
)

// Transition applies one event to a flow of total steps. It never mutates
// its input; the returned state is fresh.
func Transition(total int, s State, e Event) (State, error) {
	if total <= 0 {
		return s, fmt.Errorf("flow needs at least one step")
	}
	switch ev := e.(type) {
	case Open:
		if s.Phase == PhaseActive {
			return s, fmt.Errorf("%w: flow already open", ErrBadTransition)
		}
		return State{Phase: PhaseActive, Step: 0, Fields: map[string]string{}}, nil

	case Cancel:
		return Idle(), nil

	case Submit:
		if s.Phase != PhaseActive {
			return s, fmt.Errorf("%w: submit on %s flow", ErrBadTransition, s.Phase)
		}
		if s.Pending {
			return s, ErrPending
		}
		next := clone(s)
		for k, v := range ev.Fields {
			next.Fields[k] = v
		}
		next.Pending = true
		return next, nil

	case Succeed:
		if s.Phase != PhaseActive || !s.Pending {
			return s, fmt.Errorf("%w: succeed without pending submit", ErrBadTransition)
		}
		next := clone(s)
		next.Pending = false
		if next.Step+1 >= total {
			next.Phase = PhaseDone
			return next, nil
		}
		next.Step++
		return next, nil

	case Fail:
		if s.Phase != PhaseActive || !s.Pending {
			return s, fmt.Errorf("%w: fail without pending submit", ErrBadTransition)
		}
		next := clone(s)
		next.Pending = false
		return next, nil
	}
	return s, fmt.Errorf("%w: unknown event %T", ErrBadTransition, e)
}

func clone(s State) State {
	fields := make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		fields[k] = v
	}
	s.Fields = fields
	return s
}
