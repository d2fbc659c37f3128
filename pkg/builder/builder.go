// Package builder is the mutating surface over a form's persisted schema.
// Local state mirrors the store optimistically: mutations apply locally
// first, then persist; a failed store call marks the builder stale and the
// caller reconciles by reloading. A single active editor per form is
// assumed; operations serialize through one mutex.
package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/applykit/formflow/pkg/fieldtypes"
	"github.com/applykit/formflow/pkg/model"
)

// Direction selects the neighbor for a move operation.
type Direction int

const (
	MoveUp Direction = iota
	MoveDown
)

var (
	// ErrConfirmationRequired guards cascading deletions; callers pass an
	// explicit confirmation after the human approved.
	ErrConfirmationRequired = errors.New("builder: deletion requires confirmation")
	// ErrStale reports that the local mirror diverged from the store after a
	// failed write; the caller should Reload.
	ErrStale = errors.New("builder: local state is stale, reload required")
)

// Builder edits one form's steps and fields.
type Builder struct {
	store  Store
	formID string

	mu    sync.Mutex
	steps []model.Step
	stale bool

	view viewState
}

// New constructs a builder and loads the form's current schema.
func New(ctx context.Context, store Store, formID string) (*Builder, error) {
	if store == nil {
		return nil, errors.New("builder: store is required")
	}
	b := &Builder{
		store:  store,
		formID: formID,
		view:   newViewState(),
	}
	if err := b.Reload(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// Reload replaces the local mirror with the store's current state and clears
// staleness.
func (b *Builder) Reload(ctx context.Context) error {
	steps, err := b.store.GetSteps(ctx, b.formID)
	if err != nil {
		return fmt.Errorf("builder: load form %q: %w", b.formID, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = model.CloneSteps(steps)
	b.stale = false
	return nil
}

// Steps returns a copy of the local schema mirror.
func (b *Builder) Steps() []model.Step {
	b.mu.Lock()
	defer b.mu.Unlock()
	return model.CloneSteps(b.steps)
}

// Stale reports whether a failed store write left the mirror out of sync.
func (b *Builder) Stale() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stale
}

// CreateStep appends an empty step with the next contiguous order index.
// The new step starts expanded in the builder's view state.
func (b *Builder) CreateStep(ctx context.Context, input StepInput) (model.Step, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	step, err := b.store.CreateStep(ctx, b.formID, input)
	if err != nil {
		return model.Step{}, fmt.Errorf("builder: create step: %w", err)
	}
	b.steps = append(b.steps, step)
	b.view.expand(step.ID)
	return step, nil
}

// UpdateStep patches a step's title, description, or flags in place.
func (b *Builder) UpdateStep(ctx context.Context, stepID string, patch StepPatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.stepIndex(stepID)
	if idx < 0 {
		return ErrNotFound
	}
	applyStepPatch(&b.steps[idx], patch)

	updated, err := b.store.UpdateStep(ctx, stepID, patch)
	if err != nil {
		b.stale = true
		return fmt.Errorf("builder: update step %q: %w", stepID, err)
	}
	updated.Fields = b.steps[idx].Fields
	b.steps[idx] = updated
	return nil
}

// ToggleStepActive flips the active flag without touching order or content.
func (b *Builder) ToggleStepActive(ctx context.Context, stepID string) error {
	b.mu.Lock()
	active := false
	if idx := b.stepIndex(stepID); idx >= 0 {
		active = b.steps[idx].IsActive
	}
	b.mu.Unlock()

	next := !active
	return b.UpdateStep(ctx, stepID, StepPatch{IsActive: &next})
}

// DeleteStep removes a step and cascades to its fields. The confirmed flag
// is the human-in-the-loop acknowledgement; without it nothing happens.
// Remaining order indices are recompacted to stay contiguous.
func (b *Builder) DeleteStep(ctx context.Context, stepID string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.stepIndex(stepID)
	if idx < 0 {
		return ErrNotFound
	}
	b.steps = append(b.steps[:idx], b.steps[idx+1:]...)
	renumberSteps(b.steps)
	b.view.forget(stepID)

	if err := b.store.DeleteStep(ctx, stepID); err != nil {
		b.stale = true
		return fmt.Errorf("builder: delete step %q: %w", stepID, err)
	}
	return nil
}

// DuplicateStep deep-copies a step and its fields with fresh identifiers,
// appended at the end of the order sequence.
func (b *Builder) DuplicateStep(ctx context.Context, stepID string) (model.Step, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stepIndex(stepID) < 0 {
		return model.Step{}, ErrNotFound
	}
	clone, err := b.store.DuplicateStep(ctx, stepID)
	if err != nil {
		return model.Step{}, fmt.Errorf("builder: duplicate step %q: %w", stepID, err)
	}
	b.steps = append(b.steps, clone)
	b.view.expand(clone.ID)
	return clone, nil
}

// MoveStep swaps a step with its immediate neighbor and re-persists the full
// order list in one atomic write. Moving the first step up (or the last
// down) is a no-op.
func (b *Builder) MoveStep(ctx context.Context, stepID string, dir Direction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.stepIndex(stepID)
	if idx < 0 {
		return ErrNotFound
	}
	swap := idx - 1
	if dir == MoveDown {
		swap = idx + 1
	}
	if swap < 0 || swap >= len(b.steps) {
		return nil
	}

	b.steps[idx], b.steps[swap] = b.steps[swap], b.steps[idx]
	renumberSteps(b.steps)

	ids := make([]string, len(b.steps))
	for i, step := range b.steps {
		ids[i] = step.ID
	}
	if err := b.store.ReorderSteps(ctx, b.formID, ids); err != nil {
		b.stale = true
		return fmt.Errorf("builder: reorder steps: %w", err)
	}
	return nil
}

// CreateField appends a field to a step, seeding label, width, and options
// from the type's registry defaults when the input leaves them blank.
func (b *Builder) CreateField(ctx context.Context, stepID string, input FieldInput) (model.Field, error) {
	desc, ok := fieldtypes.Describe(input.Type)
	if !ok {
		return model.Field{}, fmt.Errorf("builder: unknown field type %q", input.Type)
	}
	if input.Label == "" {
		input.Label = desc.DefaultLabel
	}
	if input.Width == "" {
		input.Width = desc.DefaultWidth
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.stepIndex(stepID)
	if idx < 0 {
		return model.Field{}, ErrNotFound
	}
	field, err := b.store.CreateField(ctx, stepID, input)
	if err != nil {
		return model.Field{}, fmt.Errorf("builder: create field: %w", err)
	}
	b.steps[idx].Fields = append(b.steps[idx].Fields, field)
	return field, nil
}

// UpdateField patches a field in place. Width and options travel in the
// patch like any other attribute.
func (b *Builder) UpdateField(ctx context.Context, fieldID string, patch FieldPatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stepIdx, fieldIdx := b.fieldIndex(fieldID)
	if stepIdx < 0 {
		return ErrNotFound
	}
	applyFieldPatch(&b.steps[stepIdx].Fields[fieldIdx], patch)

	updated, err := b.store.UpdateField(ctx, fieldID, patch)
	if err != nil {
		b.stale = true
		return fmt.Errorf("builder: update field %q: %w", fieldID, err)
	}
	b.steps[stepIdx].Fields[fieldIdx] = updated
	return nil
}

// ToggleFieldActive hides a field from the renderer without deleting it;
// the configuration is kept.
func (b *Builder) ToggleFieldActive(ctx context.Context, fieldID string) error {
	b.mu.Lock()
	active := false
	if stepIdx, fieldIdx := b.fieldIndex(fieldID); stepIdx >= 0 {
		active = b.steps[stepIdx].Fields[fieldIdx].IsActive
	}
	b.mu.Unlock()

	next := !active
	return b.UpdateField(ctx, fieldID, FieldPatch{IsActive: &next})
}

// DeleteField removes a single field; the step's remaining field order is
// recompacted.
func (b *Builder) DeleteField(ctx context.Context, fieldID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stepIdx, fieldIdx := b.fieldIndex(fieldID)
	if stepIdx < 0 {
		return ErrNotFound
	}
	fields := b.steps[stepIdx].Fields
	b.steps[stepIdx].Fields = append(fields[:fieldIdx], fields[fieldIdx+1:]...)
	renumberFields(b.steps[stepIdx].Fields)

	if err := b.store.DeleteField(ctx, fieldID); err != nil {
		b.stale = true
		return fmt.Errorf("builder: delete field %q: %w", fieldID, err)
	}
	return nil
}

// MoveField swaps a field with its neighbor inside its step and re-persists
// the step's full field order atomically.
func (b *Builder) MoveField(ctx context.Context, fieldID string, dir Direction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	stepIdx, fieldIdx := b.fieldIndex(fieldID)
	if stepIdx < 0 {
		return ErrNotFound
	}
	fields := b.steps[stepIdx].Fields
	swap := fieldIdx - 1
	if dir == MoveDown {
		swap = fieldIdx + 1
	}
	if swap < 0 || swap >= len(fields) {
		return nil
	}

	fields[fieldIdx], fields[swap] = fields[swap], fields[fieldIdx]
	renumberFields(fields)

	ids := make([]string, len(fields))
	for i, field := range fields {
		ids[i] = field.ID
	}
	if err := b.store.ReorderFields(ctx, b.steps[stepIdx].ID, ids); err != nil {
		b.stale = true
		return fmt.Errorf("builder: reorder fields: %w", err)
	}
	return nil
}

func (b *Builder) stepIndex(stepID string) int {
	for i, step := range b.steps {
		if step.ID == stepID {
			return i
		}
	}
	return -1
}

func (b *Builder) fieldIndex(fieldID string) (int, int) {
	for i, step := range b.steps {
		for j, field := range step.Fields {
			if field.ID == fieldID {
				return i, j
			}
		}
	}
	return -1, -1
}

func renumberSteps(steps []model.Step) {
	for i := range steps {
		steps[i].OrderIndex = i
	}
}

func renumberFields(fields []model.Field) {
	for i := range fields {
		fields[i].OrderIndex = i
	}
}

func applyStepPatch(step *model.Step, patch StepPatch) {
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
}

func applyFieldPatch(field *model.Field, patch FieldPatch) {
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
}
