package navigator

import (
	"context"
	"errors"
	"testing"

	"github.com/applykit/formflow/pkg/model"
	"github.com/applykit/formflow/pkg/recovery"
	"github.com/applykit/formflow/pkg/render"
)

func threeStepForm() []model.Step {
	return []model.Step{
		{
			ID: "s1", Title: "Welcome", OrderIndex: 0, IsActive: true,
			Fields: []model.Field{
				{ID: "intro", StepID: "s1", Type: model.FieldTypeParagraph, Label: "Welcome", IsActive: true, Width: model.WidthFull},
			},
		},
		{
			ID: "s2", Title: "About you", OrderIndex: 1, IsActive: true,
			Fields: []model.Field{
				{ID: "name", StepID: "s2", Type: model.FieldTypeText, Label: "Full name", IsRequired: true, IsActive: true, Width: model.WidthFull},
			},
		},
		{
			ID: "s3", Title: "Confirm", OrderIndex: 2, IsActive: true,
			Fields: []model.Field{
				{ID: "agree", StepID: "s3", Type: model.FieldTypeCheckbox, Label: "I agree", IsRequired: true, IsActive: true, Width: model.WidthFull},
			},
		},
	}
}

type countingSubmitter struct {
	calls int
	err   error
}

func (c *countingSubmitter) Submit(ctx context.Context, formID string, answers model.AnswerMap) error {
	c.calls++
	return c.err
}

func newNav(t *testing.T, submitter Submitter) *Navigator {
	t.Helper()
	ctx := context.Background()
	session, err := render.NewSession(ctx, "form-1", render.WithRecovery(recovery.NewMemory()))
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	nav, err := New("form-1", threeStepForm(), session, submitter)
	if err != nil {
		t.Fatalf("navigator: %v", err)
	}
	return nav
}

func TestNavigator_ThreeStepScenario(t *testing.T) {
	ctx := context.Background()
	submitter := &countingSubmitter{}
	nav := newNav(t, submitter)

	// Step 1 has only display content; Next always succeeds.
	if err := nav.Next(ctx); err != nil {
		t.Fatalf("next from step 1: %v", err)
	}
	if nav.Current() != 1 {
		t.Fatalf("expected step index 1, got %d", nav.Current())
	}

	// Step 2 requires the text field.
	if err := nav.Next(ctx); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if nav.Current() != 1 {
		t.Fatalf("failed Next moved the position to %d", nav.Current())
	}
	if errs := nav.Errors(); len(errs) != 1 {
		t.Fatalf("expected one error entry, got %v", errs)
	}

	nav.Session().SetAnswer(ctx, "name", "Ada Lovelace")
	if err := nav.Next(ctx); err != nil {
		t.Fatalf("next after filling field: %v", err)
	}
	if !nav.OnLastStep() {
		t.Fatalf("expected last step, at %d", nav.Current())
	}

	nav.Session().SetAnswer(ctx, "agree", true)
	if err := nav.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !nav.Submitted() {
		t.Fatalf("expected terminal state")
	}
	if submitter.calls != 1 {
		t.Fatalf("expected exactly one submission call, got %d", submitter.calls)
	}
	want := State{Step: 2, Steps: 3, Submitted: true}
	if got := nav.State(); got != want {
		t.Fatalf("state = %+v, want %+v", got, want)
	}
}

func TestNavigator_SubmitOnlyFromLastStep(t *testing.T) {
	ctx := context.Background()
	nav := newNav(t, &countingSubmitter{})

	if err := nav.Submit(ctx); !errors.Is(err, ErrNotLastStep) {
		t.Fatalf("expected ErrNotLastStep, got %v", err)
	}
}

func TestNavigator_SubmitFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	submitter := &countingSubmitter{err: errors.New("endpoint timeout")}
	nav := newNav(t, submitter)

	nav.Session().SetAnswer(ctx, "name", "Ada")
	nav.Session().SetAnswer(ctx, "agree", true)
	if err := nav.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := nav.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}

	if err := nav.Submit(ctx); err == nil {
		t.Fatalf("expected submit failure")
	}
	if nav.Submitted() {
		t.Fatalf("failure must not reach terminal state")
	}
	if nav.Session().Answer("name") != "Ada" {
		t.Fatalf("answers lost on failed submit")
	}

	// Retry succeeds.
	submitter.err = nil
	if err := nav.Submit(ctx); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if submitter.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", submitter.calls)
	}
}

func TestNavigator_ReentrantTransitionDuringSubmitIsRejected(t *testing.T) {
	ctx := context.Background()

	// A submitter that drives UI callbacks could re-enter the machine
	// mid-dispatch; every such transition must see the in-flight guard.
	var nav *Navigator
	var reentrant []error
	submitter := SubmitterFunc(func(ctx context.Context, formID string, answers model.AnswerMap) error {
		if !nav.Busy() {
			t.Errorf("Busy() should be true inside the submitter call")
		}
		reentrant = append(reentrant,
			nav.Submit(ctx),
			nav.Next(ctx),
			nav.Back(ctx),
		)
		return nil
	})
	nav = newNav(t, submitter)

	nav.Session().SetAnswer(ctx, "name", "Ada")
	nav.Session().SetAnswer(ctx, "agree", true)
	if err := nav.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := nav.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}

	if err := nav.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(reentrant) != 3 {
		t.Fatalf("expected 3 re-entrant attempts, got %d", len(reentrant))
	}
	for i, err := range reentrant {
		if !errors.Is(err, ErrBusy) {
			t.Fatalf("re-entrant transition %d: expected ErrBusy, got %v", i, err)
		}
	}
	if !nav.Submitted() {
		t.Fatalf("outer submit should still reach the terminal state")
	}
	if nav.Current() != 2 {
		t.Fatalf("re-entrant calls must not move the position, at %d", nav.Current())
	}
}

func TestNavigator_BackKeepsAnswersAndErrors(t *testing.T) {
	ctx := context.Background()
	nav := newNav(t, nil)

	if err := nav.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := nav.Next(ctx); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}

	if err := nav.Back(ctx); err != nil {
		t.Fatalf("back: %v", err)
	}
	if nav.Current() != 0 {
		t.Fatalf("expected step 0, got %d", nav.Current())
	}
	if len(nav.Session().Errors()) != 1 {
		t.Fatalf("back cleared errors of the step being left")
	}

	// Back at the first step is a no-op.
	if err := nav.Back(ctx); err != nil || nav.Current() != 0 {
		t.Fatalf("back at first step: err=%v index=%d", err, nav.Current())
	}
}

func TestNavigator_JumpToValidatesIntermediateSteps(t *testing.T) {
	ctx := context.Background()
	nav := newNav(t, nil)

	// Forward jump over the unsatisfied required step is refused.
	if err := nav.JumpTo(ctx, 2); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation failure on jump, got %v", err)
	}
	if nav.Current() != 0 {
		t.Fatalf("failed jump moved position to %d", nav.Current())
	}

	nav.Session().SetAnswer(ctx, "name", "Ada")
	if err := nav.JumpTo(ctx, 2); err != nil {
		t.Fatalf("jump after filling: %v", err)
	}
	if nav.Current() != 2 {
		t.Fatalf("expected step 2, got %d", nav.Current())
	}

	// Backward jump is unconditional.
	if err := nav.JumpTo(ctx, 0); err != nil || nav.Current() != 0 {
		t.Fatalf("backward jump: err=%v index=%d", err, nav.Current())
	}
}

func TestNavigator_TerminalStateRejectsTransitions(t *testing.T) {
	ctx := context.Background()
	nav := newNav(t, &countingSubmitter{})

	nav.Session().SetAnswer(ctx, "name", "Ada")
	nav.Session().SetAnswer(ctx, "agree", true)
	_ = nav.Next(ctx)
	_ = nav.Next(ctx)
	if err := nav.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := nav.Next(ctx); !errors.Is(err, ErrSubmitted) {
		t.Fatalf("expected ErrSubmitted, got %v", err)
	}
	if err := nav.Back(ctx); !errors.Is(err, ErrSubmitted) {
		t.Fatalf("expected ErrSubmitted, got %v", err)
	}
}

func TestNavigator_PreviewSubmitIsNoopConfirmation(t *testing.T) {
	ctx := context.Background()
	nav := newNav(t, nil)

	nav.Session().SetAnswer(ctx, "name", "Ada")
	nav.Session().SetAnswer(ctx, "agree", true)
	_ = nav.Next(ctx)
	_ = nav.Next(ctx)

	if err := nav.Submit(ctx); err != nil {
		t.Fatalf("preview submit: %v", err)
	}
	if !nav.Submitted() {
		t.Fatalf("preview submit should still reach terminal state")
	}
}
