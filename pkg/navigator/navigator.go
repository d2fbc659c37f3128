// Package navigator is the finite state machine governing which step of a
// form is active and when advancing is permitted. It never mutates the
// schema; only the position, answer, and error state move.
package navigator

import (
	"context"
	"errors"
	"fmt"

	"github.com/applykit/formflow/pkg/model"
	"github.com/applykit/formflow/pkg/render"
	"github.com/applykit/formflow/pkg/validation"
)

var (
	// ErrValidation signals the current step failed validation; the step's
	// error map is available from the session.
	ErrValidation = errors.New("navigator: step validation failed")
	// ErrBusy signals an operation arrived while a prior one (typically a
	// submission) is still outstanding.
	ErrBusy = errors.New("navigator: operation in flight")
	// ErrSubmitted signals a transition was attempted after the terminal
	// state was reached.
	ErrSubmitted = errors.New("navigator: form already submitted")
	// ErrNotLastStep signals Submit was called before the last step.
	ErrNotLastStep = errors.New("navigator: submit only allowed from the last step")
)

// Submitter dispatches a completed submission. A nil error means accepted.
type Submitter interface {
	Submit(ctx context.Context, formID string, answers model.AnswerMap) error
}

// SubmitterFunc adapts a function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, formID string, answers model.AnswerMap) error

func (f SubmitterFunc) Submit(ctx context.Context, formID string, answers model.AnswerMap) error {
	return f(ctx, formID, answers)
}

// Navigator walks an applicant (or previewing administrator) through the
// active steps of a form. Steps are the already-filtered, already-ordered
// result of the store's active-items query.
type Navigator struct {
	formID    string
	steps     []model.Step
	session   *render.Session
	submitter Submitter

	index     int
	submitted bool
	busy      bool
}

// New constructs a navigator positioned at the first step. The submitter is
// required only for live mode; preview flows pass nil and Submit becomes a
// validating no-op confirmation.
func New(formID string, steps []model.Step, session *render.Session, submitter Submitter) (*Navigator, error) {
	if len(steps) == 0 {
		return nil, errors.New("navigator: form has no active steps")
	}
	if session == nil {
		return nil, errors.New("navigator: session is required")
	}
	return &Navigator{
		formID:    formID,
		steps:     model.CloneSteps(steps),
		session:   session,
		submitter: submitter,
	}, nil
}

// Current returns the index of the active step.
func (n *Navigator) Current() int {
	return n.index
}

// CurrentStep returns the active step.
func (n *Navigator) CurrentStep() model.Step {
	return n.steps[n.index]
}

// Len returns the number of steps.
func (n *Navigator) Len() int {
	return len(n.steps)
}

// OnLastStep reports whether the active step is the final one; surfaces use
// it to swap "Next" for "Submit".
func (n *Navigator) OnLastStep() bool {
	return n.index == len(n.steps)-1
}

// Submitted reports whether the terminal state was reached.
func (n *Navigator) Submitted() bool {
	return n.submitted
}

// Busy reports whether a submission is outstanding. Transitions are
// synchronous, so on the calling goroutine this is only ever observably true
// inside the submitter call itself; gate uses it there to reject re-entrant
// transitions triggered from submitter callbacks.
func (n *Navigator) Busy() bool {
	return n.busy
}

// State is a snapshot of the machine's position for surfaces and logs.
type State struct {
	Step      int
	Steps     int
	Submitted bool
	Busy      bool
}

// State returns the current machine snapshot.
func (n *Navigator) State() State {
	return State{
		Step:      n.index,
		Steps:     len(n.steps),
		Submitted: n.submitted,
		Busy:      n.busy,
	}
}

// Errors returns the active validation errors, keyed by field identifier.
func (n *Navigator) Errors() model.ErrorMap {
	return n.session.Errors()
}

// Session exposes the answer/error state the navigator gates.
func (n *Navigator) Session() *render.Session {
	return n.session
}

// RenderCurrent projects the active step with the session's state.
func (n *Navigator) RenderCurrent(mode render.Mode) render.Tree {
	return n.session.RenderStep(n.steps[n.index], mode)
}

// Next validates the active step and advances by one. On the last step a
// passing validation leaves the position unchanged; surfaces expose Submit
// there instead.
func (n *Navigator) Next(ctx context.Context) error {
	if err := n.gate(ctx); err != nil {
		return err
	}
	if err := n.validateCurrent(); err != nil {
		return err
	}
	if n.index+1 < len(n.steps) {
		n.index++
	}
	return nil
}

// Back moves to the previous step unconditionally. Answers and errors of the
// step being left are kept.
func (n *Navigator) Back(ctx context.Context) error {
	if err := n.gate(ctx); err != nil {
		return err
	}
	if n.index > 0 {
		n.index--
	}
	return nil
}

// JumpTo moves directly to a step. Backward jumps are unconditional; forward
// jumps validate every step from the current position up to (but excluding)
// the target, so no unvalidated step is left behind. On failure the position
// does not change and the first failing step's errors are surfaced.
func (n *Navigator) JumpTo(ctx context.Context, target int) error {
	if err := n.gate(ctx); err != nil {
		return err
	}
	if target < 0 || target >= len(n.steps) {
		return fmt.Errorf("navigator: step %d out of range", target)
	}
	if target <= n.index {
		n.index = target
		return nil
	}
	answers := n.session.Answers()
	for i := n.index; i < target; i++ {
		if errs := validation.Step(n.steps[i].Fields, answers); len(errs) > 0 {
			n.session.ReplaceErrors(errs)
			return fmt.Errorf("%w: step %d", ErrValidation, i)
		}
	}
	n.session.ReplaceErrors(nil)
	n.index = target
	return nil
}

// Submit validates the last step and dispatches the submission. On success
// the navigator reaches the terminal state and the recovery mirror is
// cleared; on failure it stays on the last step with answers intact.
func (n *Navigator) Submit(ctx context.Context) error {
	if err := n.gate(ctx); err != nil {
		return err
	}
	if !n.OnLastStep() {
		return ErrNotLastStep
	}
	if err := n.validateCurrent(); err != nil {
		return err
	}

	if n.submitter != nil {
		// busy covers the submitter call: any transition the submitter
		// re-enters (progress callbacks, UI event pumps) hits ErrBusy
		// instead of moving the machine mid-dispatch.
		n.busy = true
		err := n.submitter.Submit(ctx, n.formID, n.session.Answers())
		n.busy = false
		if err != nil {
			return fmt.Errorf("navigator: submit: %w", err)
		}
	}

	n.submitted = true
	if err := n.session.ClearRecovery(ctx); err != nil {
		// The submission already succeeded; a stale autosave is harmless
		// next to losing that fact, so report without rolling back.
		return fmt.Errorf("navigator: clear recovery after submit: %w", err)
	}
	return nil
}

func (n *Navigator) gate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.submitted {
		return ErrSubmitted
	}
	if n.busy {
		return ErrBusy
	}
	return nil
}

func (n *Navigator) validateCurrent() error {
	errs := validation.Step(n.steps[n.index].Fields, n.session.Answers())
	n.session.ReplaceErrors(errs)
	if len(errs) > 0 {
		return ErrValidation
	}
	return nil
}
