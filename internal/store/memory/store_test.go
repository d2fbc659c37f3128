package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/applykit/formflow/pkg/builder"
	"github.com/applykit/formflow/pkg/model"
)

func seedForm(t *testing.T, store *Store) (string, []model.Step) {
	t.Helper()
	ctx := context.Background()
	formID := "form-1"

	for _, title := range []string{"Welcome", "About you", "Confirm"} {
		step, err := store.CreateStep(ctx, formID, builder.StepInput{Title: title, IsRequired: true})
		require.NoError(t, err)
		_, err = store.CreateField(ctx, step.ID, builder.FieldInput{
			Type: model.FieldTypeText, Label: title + " field", Width: model.WidthFull,
		})
		require.NoError(t, err)
	}

	steps, err := store.GetSteps(ctx, formID)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	return formID, steps
}

func TestCreateStep_ContiguousOrder(t *testing.T) {
	store := New()
	_, steps := seedForm(t, store)
	for i, step := range steps {
		require.Equal(t, i, step.OrderIndex)
	}
}

func TestGetActiveSteps_FiltersAndOrders(t *testing.T) {
	store := New()
	ctx := context.Background()
	formID, steps := seedForm(t, store)

	inactive := false
	_, err := store.UpdateStep(ctx, steps[1].ID, builder.StepPatch{IsActive: &inactive})
	require.NoError(t, err)

	hiddenField, err := store.CreateField(ctx, steps[0].ID, builder.FieldInput{Type: model.FieldTypeText, Label: "Hidden", Width: model.WidthFull})
	require.NoError(t, err)
	_, err = store.UpdateField(ctx, hiddenField.ID, builder.FieldPatch{IsActive: &inactive})
	require.NoError(t, err)

	active, err := store.GetActiveSteps(ctx, formID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, steps[0].ID, active[0].ID)
	require.Equal(t, steps[2].ID, active[1].ID)
	require.Len(t, active[0].Fields, 1, "inactive field should be filtered")

	for i := 1; i < len(active); i++ {
		require.Greater(t, active[i].OrderIndex, active[i-1].OrderIndex)
	}
}

func TestDeleteStep_CascadesAndRecompacts(t *testing.T) {
	store := New()
	ctx := context.Background()
	formID, steps := seedForm(t, store)
	victimField := steps[1].Fields[0].ID

	require.NoError(t, store.DeleteStep(ctx, steps[1].ID))

	remaining, err := store.GetSteps(ctx, formID)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	for i, step := range remaining {
		require.Equal(t, i, step.OrderIndex)
		for _, field := range step.Fields {
			require.NotEqual(t, victimField, field.ID)
		}
	}

	_, err = store.UpdateField(ctx, victimField, builder.FieldPatch{})
	require.ErrorIs(t, err, builder.ErrNotFound)
}

func TestDuplicateStep_FreshIdentifiers(t *testing.T) {
	store := New()
	ctx := context.Background()
	formID, steps := seedForm(t, store)
	source := steps[0]

	clone, err := store.DuplicateStep(ctx, source.ID)
	require.NoError(t, err)
	require.NotEqual(t, source.ID, clone.ID)
	require.Len(t, clone.Fields, len(source.Fields))
	require.Equal(t, 3, clone.OrderIndex, "clone appends at the end")
	for i, field := range clone.Fields {
		require.NotEqual(t, source.Fields[i].ID, field.ID)
		require.Equal(t, clone.ID, field.StepID)
		require.Equal(t, source.Fields[i].Label, field.Label)
	}

	all, err := store.GetSteps(ctx, formID)
	require.NoError(t, err)
	require.Len(t, all, 4)
}

func TestReorderSteps_AtomicFullList(t *testing.T) {
	store := New()
	ctx := context.Background()
	formID, steps := seedForm(t, store)

	require.Error(t, store.ReorderSteps(ctx, formID, []string{steps[0].ID}), "partial lists are rejected")

	order := []string{steps[2].ID, steps[0].ID, steps[1].ID}
	require.NoError(t, store.ReorderSteps(ctx, formID, order))

	got, err := store.GetSteps(ctx, formID)
	require.NoError(t, err)
	for i, id := range order {
		require.Equal(t, id, got[i].ID)
		require.Equal(t, i, got[i].OrderIndex)
	}
}

func TestReorderFields(t *testing.T) {
	store := New()
	ctx := context.Background()
	_, steps := seedForm(t, store)
	stepID := steps[0].ID

	second, err := store.CreateField(ctx, stepID, builder.FieldInput{Type: model.FieldTypeEmail, Label: "Email", Width: model.WidthHalf})
	require.NoError(t, err)

	require.NoError(t, store.ReorderFields(ctx, stepID, []string{second.ID, steps[0].Fields[0].ID}))

	got, err := store.GetSteps(ctx, steps[0].FormID)
	require.NoError(t, err)
	require.Equal(t, second.ID, got[0].Fields[0].ID)
	require.Equal(t, 0, got[0].Fields[0].OrderIndex)
	require.Equal(t, 1, got[0].Fields[1].OrderIndex)
}

func TestNotFound(t *testing.T) {
	store := New()
	ctx := context.Background()

	_, err := store.UpdateStep(ctx, "missing", builder.StepPatch{})
	require.ErrorIs(t, err, builder.ErrNotFound)
	require.ErrorIs(t, store.DeleteStep(ctx, "missing"), builder.ErrNotFound)
	require.ErrorIs(t, store.DeleteField(ctx, "missing"), builder.ErrNotFound)
	_, err = store.DuplicateStep(ctx, "missing")
	require.ErrorIs(t, err, builder.ErrNotFound)
}
