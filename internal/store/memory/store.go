// Package memory provides an in-process schema store, the default for tests
// and previews. Semantics mirror the SQLite backend: identifier generation,
// contiguous order indices, cascade deletion, and atomic full-list reorders.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/applykit/formflow/pkg/builder"
	"github.com/applykit/formflow/pkg/model"
)

// Store keeps each form's steps (with their fields inline) in memory.
type Store struct {
	mu    sync.Mutex
	forms map[string][]model.Step
}

var _ builder.Store = (*Store)(nil)

// New constructs an empty store.
func New() *Store {
	return &Store{forms: make(map[string][]model.Step)}
}

func (s *Store) GetSteps(ctx context.Context, formID string) ([]model.Step, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneSteps(s.forms[formID]), nil
}

func (s *Store) GetActiveSteps(ctx context.Context, formID string) ([]model.Step, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Step
	for _, step := range s.forms[formID] {
		if !step.IsActive {
			continue
		}
		visible := step
		visible.Fields = nil
		for _, field := range step.Fields {
			if field.IsActive {
				visible.Fields = append(visible.Fields, field)
			}
		}
		out = append(out, visible)
	}
	return model.CloneSteps(out), nil
}

func (s *Store) CreateStep(ctx context.Context, formID string, input builder.StepInput) (model.Step, error) {
	if err := ctx.Err(); err != nil {
		return model.Step{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	step := model.Step{
		ID:          uuid.NewString(),
		FormID:      formID,
		Title:       input.Title,
		Description: input.Description,
		OrderIndex:  len(s.forms[formID]),
		IsRequired:  input.IsRequired,
		IsActive:    true,
	}
	s.forms[formID] = append(s.forms[formID], step)
	return step, nil
}

func (s *Store) UpdateStep(ctx context.Context, stepID string, patch builder.StepPatch) (model.Step, error) {
	if err := ctx.Err(); err != nil {
		return model.Step{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	formID, idx := s.locateStep(stepID)
	if idx < 0 {
		return model.Step{}, builder.ErrNotFound
	}
	step := &s.forms[formID][idx]
	if patch.Title != nil {
		step.Title = *patch.Title
	}
	if patch.Description != nil {
		step.Description = *patch.Description
	}
	if patch.IsRequired != nil {
		step.IsRequired = *patch.IsRequired
	}
	if patch.IsActive != nil {
		step.IsActive = *patch.IsActive
	}
	out := *step
	out.Fields = append([]model.Field(nil), step.Fields...)
	return out, nil
}

func (s *Store) DeleteStep(ctx context.Context, stepID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	formID, idx := s.locateStep(stepID)
	if idx < 0 {
		return builder.ErrNotFound
	}
	steps := s.forms[formID]
	s.forms[formID] = append(steps[:idx], steps[idx+1:]...)
	for i := range s.forms[formID] {
		s.forms[formID][i].OrderIndex = i
	}
	return nil
}

func (s *Store) ReorderSteps(ctx context.Context, formID string, orderedStepIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	steps := s.forms[formID]
	if len(orderedStepIDs) != len(steps) {
		return fmt.Errorf("memory: reorder list has %d ids, form has %d steps", len(orderedStepIDs), len(steps))
	}
	byID := make(map[string]model.Step, len(steps))
	for _, step := range steps {
		byID[step.ID] = step
	}
	next := make([]model.Step, 0, len(steps))
	for i, id := range orderedStepIDs {
		step, ok := byID[id]
		if !ok {
			return fmt.Errorf("memory: reorder references unknown step %q: %w", id, builder.ErrNotFound)
		}
		delete(byID, id)
		step.OrderIndex = i
		next = append(next, step)
	}
	s.forms[formID] = next
	return nil
}

func (s *Store) DuplicateStep(ctx context.Context, stepID string) (model.Step, error) {
	if err := ctx.Err(); err != nil {
		return model.Step{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	formID, idx := s.locateStep(stepID)
	if idx < 0 {
		return model.Step{}, builder.ErrNotFound
	}
	source := s.forms[formID][idx]

	clone := source
	clone.ID = uuid.NewString()
	clone.OrderIndex = len(s.forms[formID])
	clone.Fields = make([]model.Field, len(source.Fields))
	for i, field := range source.Fields {
		field.ID = uuid.NewString()
		field.StepID = clone.ID
		clone.Fields[i] = field
	}
	s.forms[formID] = append(s.forms[formID], clone)

	out := clone
	out.Fields = append([]model.Field(nil), clone.Fields...)
	return out, nil
}

func (s *Store) CreateField(ctx context.Context, stepID string, input builder.FieldInput) (model.Field, error) {
	if err := ctx.Err(); err != nil {
		return model.Field{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	formID, idx := s.locateStep(stepID)
	if idx < 0 {
		return model.Field{}, builder.ErrNotFound
	}
	step := &s.forms[formID][idx]
	field := model.Field{
		ID:          uuid.NewString(),
		StepID:      stepID,
		Type:        input.Type,
		Label:       input.Label,
		Placeholder: input.Placeholder,
		HelpText:    input.HelpText,
		Options:     input.Options,
		IsRequired:  input.IsRequired,
		IsActive:    true,
		Width:       input.Width,
		OrderIndex:  len(step.Fields),
	}
	step.Fields = append(step.Fields, field)
	return field, nil
}

func (s *Store) UpdateField(ctx context.Context, fieldID string, patch builder.FieldPatch) (model.Field, error) {
	if err := ctx.Err(); err != nil {
		return model.Field{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	field := s.locateField(fieldID)
	if field == nil {
		return model.Field{}, builder.ErrNotFound
	}
	if patch.Label != nil {
		field.Label = *patch.Label
	}
	if patch.Placeholder != nil {
		field.Placeholder = *patch.Placeholder
	}
	if patch.HelpText != nil {
		field.HelpText = *patch.HelpText
	}
	if patch.Options != nil {
		field.Options = *patch.Options
	}
	if patch.IsRequired != nil {
		field.IsRequired = *patch.IsRequired
	}
	if patch.IsActive != nil {
		field.IsActive = *patch.IsActive
	}
	if patch.Width != nil {
		field.Width = *patch.Width
	}
	return *field, nil
}

func (s *Store) DeleteField(ctx context.Context, fieldID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for formID, steps := range s.forms {
		for i := range steps {
			for j, field := range steps[i].Fields {
				if field.ID != fieldID {
					continue
				}
				fields := steps[i].Fields
				s.forms[formID][i].Fields = append(fields[:j], fields[j+1:]...)
				for k := range s.forms[formID][i].Fields {
					s.forms[formID][i].Fields[k].OrderIndex = k
				}
				return nil
			}
		}
	}
	return builder.ErrNotFound
}

func (s *Store) ReorderFields(ctx context.Context, stepID string, orderedFieldIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	formID, idx := s.locateStep(stepID)
	if idx < 0 {
		return builder.ErrNotFound
	}
	step := &s.forms[formID][idx]
	if len(orderedFieldIDs) != len(step.Fields) {
		return fmt.Errorf("memory: reorder list has %d ids, step has %d fields", len(orderedFieldIDs), len(step.Fields))
	}
	byID := make(map[string]model.Field, len(step.Fields))
	for _, field := range step.Fields {
		byID[field.ID] = field
	}
	next := make([]model.Field, 0, len(step.Fields))
	for i, id := range orderedFieldIDs {
		field, ok := byID[id]
		if !ok {
			return fmt.Errorf("memory: reorder references unknown field %q: %w", id, builder.ErrNotFound)
		}
		delete(byID, id)
		field.OrderIndex = i
		next = append(next, field)
	}
	step.Fields = next
	return nil
}

func (s *Store) locateStep(stepID string) (string, int) {
	for formID, steps := range s.forms {
		for i, step := range steps {
			if step.ID == stepID {
				return formID, i
			}
		}
	}
	return "", -1
}

func (s *Store) locateField(fieldID string) *model.Field {
	for formID, steps := range s.forms {
		for i := range steps {
			for j := range steps[i].Fields {
				if steps[i].Fields[j].ID == fieldID {
					return &s.forms[formID][i].Fields[j]
				}
			}
		}
	}
	return nil
}
