package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/applykit/formflow/pkg/builder"
	"github.com/applykit/formflow/pkg/model"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "forms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := New(db)
	require.NoError(t, err)
	return store
}

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

func TestRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	_, steps := seedForm(t, store)

	for i, step := range steps {
		require.Equal(t, i, step.OrderIndex)
		require.Len(t, step.Fields, 1)
		require.Equal(t, step.ID, step.Fields[0].StepID)
	}

	title := "Renamed"
	updated, err := store.UpdateStep(ctx, steps[0].ID, builder.StepPatch{Title: &title})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Title)
	require.Len(t, updated.Fields, 1)

	label := "Full name"
	half := model.WidthHalf
	field, err := store.UpdateField(ctx, steps[0].Fields[0].ID, builder.FieldPatch{Label: &label, Width: &half})
	require.NoError(t, err)
	require.Equal(t, "Full name", field.Label)
	require.Equal(t, model.WidthHalf, field.Width)
}

func TestActiveFiltering(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	formID, steps := seedForm(t, store)

	inactive := false
	_, err := store.UpdateStep(ctx, steps[1].ID, builder.StepPatch{IsActive: &inactive})
	require.NoError(t, err)
	_, err = store.UpdateField(ctx, steps[0].Fields[0].ID, builder.FieldPatch{IsActive: &inactive})
	require.NoError(t, err)

	active, err := store.GetActiveSteps(ctx, formID)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, steps[0].ID, active[0].ID)
	require.Empty(t, active[0].Fields, "inactive fields are filtered")
	require.Equal(t, steps[2].ID, active[1].ID)
}

func TestDeleteStep_CascadesAndRecompacts(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	formID, steps := seedForm(t, store)
	victimField := steps[1].Fields[0].ID

	require.NoError(t, store.DeleteStep(ctx, steps[1].ID))

	remaining, err := store.GetSteps(ctx, formID)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	for i, step := range remaining {
		require.Equal(t, i, step.OrderIndex)
	}

	_, err = store.UpdateField(ctx, victimField, builder.FieldPatch{})
	require.ErrorIs(t, err, builder.ErrNotFound)
}

func TestReorderSteps(t *testing.T) {
	store := newStore(t)
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

func TestDuplicateStep(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	formID, steps := seedForm(t, store)
	source := steps[0]

	clone, err := store.DuplicateStep(ctx, source.ID)
	require.NoError(t, err)
	require.NotEqual(t, source.ID, clone.ID)
	require.Equal(t, 3, clone.OrderIndex)
	require.Len(t, clone.Fields, 1)
	require.NotEqual(t, source.Fields[0].ID, clone.Fields[0].ID)
	require.Equal(t, clone.ID, clone.Fields[0].StepID)
	require.Equal(t, source.Fields[0].Label, clone.Fields[0].Label)

	all, err := store.GetSteps(ctx, formID)
	require.NoError(t, err)
	require.Len(t, all, 4)
}

func TestNotFound(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := store.UpdateStep(ctx, "missing", builder.StepPatch{})
	require.ErrorIs(t, err, builder.ErrNotFound)
	require.ErrorIs(t, store.DeleteStep(ctx, "missing"), builder.ErrNotFound)
	require.ErrorIs(t, store.DeleteField(ctx, "missing"), builder.ErrNotFound)
	_, err = store.DuplicateStep(ctx, "missing")
	require.ErrorIs(t, err, builder.ErrNotFound)
	_, err = store.CreateField(ctx, "missing", builder.FieldInput{Type: model.FieldTypeText})
	require.ErrorIs(t, err, builder.ErrNotFound)
}
