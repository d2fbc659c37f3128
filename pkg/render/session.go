package render

import (
	"context"
	"errors"

	"github.com/applykit/formflow/pkg/model"
	"github.com/applykit/formflow/pkg/recovery"
)

// Session owns the answer and error maps for one in-progress submission. It
// belongs to exactly one applicant (or previewing administrator); it is never
// shared across sessions and never written back into the schema.
type Session struct {
	formID   string
	answers  model.AnswerMap
	errors   model.ErrorMap
	recovery recovery.Store
}

// SessionOption configures session construction.
type SessionOption func(*Session)

// WithRecovery attaches an autosave store. Answers are written through on
// every change and reloaded when the session starts.
func WithRecovery(store recovery.Store) SessionOption {
	return func(s *Session) {
		s.recovery = store
	}
}

// NewSession starts a submission session, seeding answers from the recovery
// store when one is attached.
func NewSession(ctx context.Context, formID string, opts ...SessionOption) (*Session, error) {
	if formID == "" {
		return nil, errors.New("render: form id is required")
	}
	s := &Session{
		formID:  formID,
		answers: make(model.AnswerMap),
		errors:  make(model.ErrorMap),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.recovery != nil {
		saved, err := s.recovery.Load(ctx, formID)
		if err != nil {
			return nil, err
		}
		if len(saved) > 0 {
			s.answers = saved
		}
	}
	return s, nil
}

// FormID returns the form the session belongs to.
func (s *Session) FormID() string {
	return s.formID
}

// SetAnswer records a raw UI change for a field and clears any existing
// error for it immediately; full validation re-runs at the next gating
// check. The recovery write is best-effort: autosave loss never blocks the
// applicant.
func (s *Session) SetAnswer(ctx context.Context, fieldID string, value any) {
	if fieldID == "" {
		return
	}
	s.answers[fieldID] = value
	delete(s.errors, fieldID)
	if s.recovery != nil {
		_ = s.recovery.Save(ctx, s.formID, s.answers)
	}
}

// Answer returns the current value for a field.
func (s *Session) Answer(fieldID string) any {
	return s.answers[fieldID]
}

// Answers returns a copy of the current answer map.
func (s *Session) Answers() model.AnswerMap {
	return s.answers.Clone()
}

// Error returns the current validation message for a field, if any.
func (s *Session) Error(fieldID string) string {
	return s.errors[fieldID]
}

// Errors returns a copy of the current error map.
func (s *Session) Errors() model.ErrorMap {
	return s.errors.Clone()
}

// ReplaceErrors swaps in the result of a validation pass.
func (s *Session) ReplaceErrors(errs model.ErrorMap) {
	if errs == nil {
		errs = make(model.ErrorMap)
	}
	s.errors = errs.Clone()
}

// ClearRecovery discards the autosaved answer state after a successful
// submission.
func (s *Session) ClearRecovery(ctx context.Context) error {
	if s.recovery == nil {
		return nil
	}
	return s.recovery.Clear(ctx, s.formID)
}

// RenderStep projects a step with the session's current state.
func (s *Session) RenderStep(step model.Step, mode Mode) Tree {
	return Render(step, s.answers, s.errors, mode)
}
