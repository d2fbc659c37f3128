package builder

import (
	"context"
	"errors"

	"github.com/applykit/formflow/pkg/model"
)

// ErrNotFound is returned when a referenced form, step, or field no longer
// exists (for example, deleted concurrently). Surfaces treat it as a
// "please reload" condition.
var ErrNotFound = errors.New("builder: not found")

// StepInput carries the attributes for a new step.
type StepInput struct {
	Title       string
	Description string
	IsRequired  bool
}

// StepPatch is a partial step update; nil means "leave unchanged".
type StepPatch struct {
	Title       *string
	Description *string
	IsRequired  *bool
	IsActive    *bool
}

// FieldInput carries the attributes for a new field.
type FieldInput struct {
	Type        model.FieldType
	Label       string
	Placeholder string
	HelpText    string
	Options     string
	IsRequired  bool
	Width       model.WidthClass
}

// FieldPatch is a partial field update; nil means "leave unchanged".
type FieldPatch struct {
	Label       *string
	Placeholder *string
	HelpText    *string
	Options     *string
	IsRequired  *bool
	IsActive    *bool
	Width       *model.WidthClass
}

// Store is the schema persistence port. Implementations own identifier
// generation, order-index assignment on create, cascade deletion, and index
// recompaction; reorder calls replace the entire ordered id list in one
// atomic write.
type Store interface {
	// GetSteps returns every step of a form, ordered, with all fields
	// (active or not). The builder reads through this.
	GetSteps(ctx context.Context, formID string) ([]model.Step, error)

	// GetActiveSteps returns only active steps containing only their active
	// fields, already ordered. The renderer/navigator read path.
	GetActiveSteps(ctx context.Context, formID string) ([]model.Step, error)

	CreateStep(ctx context.Context, formID string, input StepInput) (model.Step, error)
	UpdateStep(ctx context.Context, stepID string, patch StepPatch) (model.Step, error)
	DeleteStep(ctx context.Context, stepID string) error
	ReorderSteps(ctx context.Context, formID string, orderedStepIDs []string) error
	DuplicateStep(ctx context.Context, stepID string) (model.Step, error)

	CreateField(ctx context.Context, stepID string, input FieldInput) (model.Field, error)
	UpdateField(ctx context.Context, fieldID string, patch FieldPatch) (model.Field, error)
	DeleteField(ctx context.Context, fieldID string) error
	ReorderFields(ctx context.Context, stepID string, orderedFieldIDs []string) error
}
