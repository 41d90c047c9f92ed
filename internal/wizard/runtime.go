package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Step is one screen of a flow. Validate rejects input before any network
// traffic; Call performs the step's API request with every field collected
// so far; OnSuccess runs after the call lands, typically to notify the user.
type Step struct {
	Name      string
	Fields    []string
	Validate  func(fields map[string]string) error
	Call      func(ctx context.Context, fields map[string]string) error
	OnSuccess func(fields map[string]string)
}

// Definition describes a complete flow.
type Definition struct {
	Name  string
	Steps []Step

	// OnDone runs once when the final step succeeds.
	OnDone func(ctx context.Context, fields map[string]string)
}

// Wizard executes a Definition over the pure state machine. It is safe for
// concurrent use; at most one submission is in flight at a time.
type Wizard struct {
	def    Definition
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// New constructs a wizard in the idle phase.
func New(def Definition, logger *slog.Logger) *Wizard {
	return &Wizard{def: def, logger: logger, state: Idle()}
}

// State returns a snapshot of the flow state.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return clone(w.state)
}

// Current returns the step the flow is waiting on.
func (w *Wizard) Current() (Step, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Phase != PhaseActive {
		return Step{}, false
	}
	return w.def.Steps[w.state.Step], true
}

// Open starts the flow from the beginning.
func (w *Wizard) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	next, err := Transition(len(w.def.Steps), w.state, Open{})
	if err != nil {
		return err
	}
	w.state = next
	if w.logger != nil {
		w.logger.Debug("flow opened", "flow", w.def.Name)
	}
	return nil
}

// Cancel abandons the flow and discards everything entered so far.
func (w *Wizard) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state, _ = Transition(len(w.def.Steps), w.state, Cancel{})
	if w.logger != nil {
		w.logger.Debug("flow cancelled", "flow", w.def.Name)
	}
}

// Submit validates fields against the current step, performs its call, and
// advances on success. A validation failure leaves the step untouched; a
// call failure re-enables the step for retry and returns the call error.
func (w *Wizard) Submit(ctx context.Context, fields map[string]string) error {
	w.mu.Lock()
	if w.state.Phase != PhaseActive {
		w.mu.Unlock()
		return fmt.Errorf("%w: submit on %s flow", ErrBadTransition, w.state.Phase)
	}
	step := w.def.Steps[w.state.Step]
	if step.Validate != nil {
		if err := step.Validate(fields); err != nil {
			w.mu.Unlock()
			return err
		}
	}
	next, err := Transition(len(w.def.Steps), w.state, Submit{Fields: fields})
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.state = next
	collected := clone(w.state).Fields
	w.mu.Unlock()

	var callErr error
	if step.Call != nil {
		callErr = step.Call(ctx, collected)
	}

	w.mu.Lock()
	if callErr != nil {
		w.state, _ = Transition(len(w.def.Steps), w.state, Fail{})
		w.mu.Unlock()
		return callErr
	}
	w.state, _ = Transition(len(w.def.Steps), w.state, Succeed{})
	done := w.state.Phase == PhaseDone
	finalFields := clone(w.state).Fields
	w.mu.Unlock()

	if step.OnSuccess != nil {
		step.OnSuccess(finalFields)
	}
	if done && w.def.OnDone != nil {
		w.def.OnDone(ctx, finalFields)
	}
	if w.logger != nil {
		w.logger.Debug("step completed", "flow", w.def.Name, "step", step.Name, "done", done)
	}
	return nil
}
