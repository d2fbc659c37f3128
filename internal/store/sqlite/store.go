// Package sqlite implements the schema store on SQLite through database/sql.
//
// It expects an *sql.DB opened with a SQLite driver, e.g.:
//
//	import _ "modernc.org/sqlite"
//	db, err := sql.Open("sqlite", path)
//
// Reorders, cascade deletions, and duplication run inside one transaction so
// the contiguous-order invariant survives partial failure.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/applykit/formflow/pkg/builder"
	"github.com/applykit/formflow/pkg/model"
)

// Store is a builder.Store backed by SQLite.
type Store struct {
	db *sql.DB
}

var _ builder.Store = (*Store)(nil)

// New initializes the schema in the given database and returns a Store.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS steps (
			id TEXT PRIMARY KEY,
			form_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			order_index INTEGER NOT NULL,
			is_required INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1
		);
		CREATE TABLE IF NOT EXISTS fields (
			id TEXT PRIMARY KEY,
			step_id TEXT NOT NULL REFERENCES steps(id),
			type TEXT NOT NULL,
			label TEXT NOT NULL,
			placeholder TEXT NOT NULL DEFAULT '',
			help_text TEXT NOT NULL DEFAULT '',
			options TEXT NOT NULL DEFAULT '',
			is_required INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			width TEXT NOT NULL DEFAULT 'full',
			order_index INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_steps_form ON steps(form_id, order_index);
		CREATE INDEX IF NOT EXISTS idx_fields_step ON fields(step_id, order_index);`,
	)
	return err
}

func (s *Store) GetSteps(ctx context.Context, formID string) ([]model.Step, error) {
	return s.getSteps(ctx, formID, false)
}

func (s *Store) GetActiveSteps(ctx context.Context, formID string) ([]model.Step, error) {
	return s.getSteps(ctx, formID, true)
}

func (s *Store) getSteps(ctx context.Context, formID string, activeOnly bool) ([]model.Step, error) {
	stepQuery := `
		SELECT id, form_id, title, description, order_index, is_required, is_active
		FROM steps WHERE form_id = ?`
	if activeOnly {
		stepQuery += ` AND is_active = 1`
	}
	stepQuery += ` ORDER BY order_index`

	rows, err := s.db.QueryContext(ctx, stepQuery, formID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query steps: %w", err)
	}
	defer rows.Close()

	var steps []model.Step
	for rows.Next() {
		var step model.Step
		if err := rows.Scan(&step.ID, &step.FormID, &step.Title, &step.Description, &step.OrderIndex, &step.IsRequired, &step.IsActive); err != nil {
			return nil, fmt.Errorf("sqlite: scan step: %w", err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate steps: %w", err)
	}

	for i := range steps {
		fields, err := s.getFields(ctx, steps[i].ID, activeOnly)
		if err != nil {
			return nil, err
		}
		steps[i].Fields = fields
	}
	return steps, nil
}

func (s *Store) getFields(ctx context.Context, stepID string, activeOnly bool) ([]model.Field, error) {
	query := `
		SELECT id, step_id, type, label, placeholder, help_text, options, is_required, is_active, width, order_index
		FROM fields WHERE step_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY order_index`

	rows, err := s.db.QueryContext(ctx, query, stepID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query fields: %w", err)
	}
	defer rows.Close()

	var fields []model.Field
	for rows.Next() {
		var f model.Field
		if err := rows.Scan(&f.ID, &f.StepID, &f.Type, &f.Label, &f.Placeholder, &f.HelpText, &f.Options, &f.IsRequired, &f.IsActive, &f.Width, &f.OrderIndex); err != nil {
			return nil, fmt.Errorf("sqlite: scan field: %w", err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate fields: %w", err)
	}
	return fields, nil
}

func (s *Store) CreateStep(ctx context.Context, formID string, input builder.StepInput) (model.Step, error) {
	step := model.Step{
		ID:          uuid.NewString(),
		FormID:      formID,
		Title:       input.Title,
		Description: input.Description,
		IsRequired:  input.IsRequired,
		IsActive:    true,
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(order_index) + 1, 0) FROM steps WHERE form_id = ?`, formID,
		).Scan(&step.OrderIndex); err != nil {
			return fmt.Errorf("next order index: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO steps (id, form_id, title, description, order_index, is_required, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			step.ID, step.FormID, step.Title, step.Description, step.OrderIndex, step.IsRequired, step.IsActive,
		)
		return err
	})
	if err != nil {
		return model.Step{}, fmt.Errorf("sqlite: create step: %w", err)
	}
	return step, nil
}

func (s *Store) UpdateStep(ctx context.Context, stepID string, patch builder.StepPatch) (model.Step, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if patch.Title != nil {
			if err := s.updateColumn(ctx, tx, "steps", stepID, "title", *patch.Title); err != nil {
				return err
			}
		}
		if patch.Description != nil {
			if err := s.updateColumn(ctx, tx, "steps", stepID, "description", *patch.Description); err != nil {
				return err
			}
		}
		if patch.IsRequired != nil {
			if err := s.updateColumn(ctx, tx, "steps", stepID, "is_required", *patch.IsRequired); err != nil {
				return err
			}
		}
		if patch.IsActive != nil {
			if err := s.updateColumn(ctx, tx, "steps", stepID, "is_active", *patch.IsActive); err != nil {
				return err
			}
		}
		// A patch with no fields still verifies existence.
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM steps WHERE id = ?`, stepID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return builder.ErrNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, builder.ErrNotFound) {
			return model.Step{}, builder.ErrNotFound
		}
		return model.Step{}, fmt.Errorf("sqlite: update step: %w", err)
	}
	return s.getStep(ctx, stepID)
}

func (s *Store) getStep(ctx context.Context, stepID string) (model.Step, error) {
	var step model.Step
	err := s.db.QueryRowContext(ctx, `
		SELECT id, form_id, title, description, order_index, is_required, is_active
		FROM steps WHERE id = ?`, stepID,
	).Scan(&step.ID, &step.FormID, &step.Title, &step.Description, &step.OrderIndex, &step.IsRequired, &step.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Step{}, builder.ErrNotFound
	}
	if err != nil {
		return model.Step{}, fmt.Errorf("sqlite: get step: %w", err)
	}
	fields, err := s.getFields(ctx, stepID, false)
	if err != nil {
		return model.Step{}, err
	}
	step.Fields = fields
	return step, nil
}

// DeleteStep removes a step, cascades to its fields, and recompacts the
// remaining order indices of the form, all in one transaction.
func (s *Store) DeleteStep(ctx context.Context, stepID string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var formID string
		if err := tx.QueryRowContext(ctx, `SELECT form_id FROM steps WHERE id = ?`, stepID).Scan(&formID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return builder.ErrNotFound
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM fields WHERE step_id = ?`, stepID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM steps WHERE id = ?`, stepID); err != nil {
			return err
		}
		return recompactSteps(ctx, tx, formID)
	})
	if errors.Is(err, builder.ErrNotFound) {
		return builder.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite: delete step: %w", err)
	}
	return nil
}

// ReorderSteps replaces the full order list atomically. Partial lists are
// rejected so the contiguity invariant stays provable.
func (s *Store) ReorderSteps(ctx context.Context, formID string, orderedStepIDs []string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM steps WHERE form_id = ?`, formID).Scan(&count); err != nil {
			return err
		}
		if count != len(orderedStepIDs) {
			return fmt.Errorf("reorder list has %d ids, form has %d steps", len(orderedStepIDs), count)
		}
		for i, id := range orderedStepIDs {
			res, err := tx.ExecContext(ctx, `UPDATE steps SET order_index = ? WHERE id = ? AND form_id = ?`, i, id, formID)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return fmt.Errorf("unknown step %q: %w", id, builder.ErrNotFound)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sqlite: reorder steps: %w", err)
	}
	return nil
}

// DuplicateStep deep-copies a step and its fields under fresh identifiers,
// appended at the end of the form's order sequence.
func (s *Store) DuplicateStep(ctx context.Context, stepID string) (model.Step, error) {
	cloneID := uuid.NewString()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var formID string
		if err := tx.QueryRowContext(ctx, `SELECT form_id FROM steps WHERE id = ?`, stepID).Scan(&formID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return builder.ErrNotFound
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO steps (id, form_id, title, description, order_index, is_required, is_active)
			SELECT ?, form_id, title, description,
				(SELECT COALESCE(MAX(order_index) + 1, 0) FROM steps WHERE form_id = ?),
				is_required, is_active
			FROM steps WHERE id = ?`, cloneID, formID, stepID,
		); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, `SELECT id FROM fields WHERE step_id = ? ORDER BY order_index`, stepID)
		if err != nil {
			return err
		}
		var fieldIDs []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			fieldIDs = append(fieldIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, id := range fieldIDs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO fields (id, step_id, type, label, placeholder, help_text, options, is_required, is_active, width, order_index)
				SELECT ?, ?, type, label, placeholder, help_text, options, is_required, is_active, width, order_index
				FROM fields WHERE id = ?`, uuid.NewString(), cloneID, id,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, builder.ErrNotFound) {
		return model.Step{}, builder.ErrNotFound
	}
	if err != nil {
		return model.Step{}, fmt.Errorf("sqlite: duplicate step: %w", err)
	}
	return s.getStep(ctx, cloneID)
}

func (s *Store) CreateField(ctx context.Context, stepID string, input builder.FieldInput) (model.Field, error) {
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
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM steps WHERE id = ?`, stepID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return builder.ErrNotFound
			}
			return err
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(order_index) + 1, 0) FROM fields WHERE step_id = ?`, stepID,
		).Scan(&field.OrderIndex); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO fields (id, step_id, type, label, placeholder, help_text, options, is_required, is_active, width, order_index)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			field.ID, field.StepID, field.Type, field.Label, field.Placeholder, field.HelpText,
			field.Options, field.IsRequired, field.IsActive, field.Width, field.OrderIndex,
		)
		return err
	})
	if errors.Is(err, builder.ErrNotFound) {
		return model.Field{}, builder.ErrNotFound
	}
	if err != nil {
		return model.Field{}, fmt.Errorf("sqlite: create field: %w", err)
	}
	return field, nil
}

func (s *Store) UpdateField(ctx context.Context, fieldID string, patch builder.FieldPatch) (model.Field, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		set := func(column string, value any) error {
			return s.updateColumn(ctx, tx, "fields", fieldID, column, value)
		}
		if patch.Label != nil {
			if err := set("label", *patch.Label); err != nil {
				return err
			}
		}
		if patch.Placeholder != nil {
			if err := set("placeholder", *patch.Placeholder); err != nil {
				return err
			}
		}
		if patch.HelpText != nil {
			if err := set("help_text", *patch.HelpText); err != nil {
				return err
			}
		}
		if patch.Options != nil {
			if err := set("options", *patch.Options); err != nil {
				return err
			}
		}
		if patch.IsRequired != nil {
			if err := set("is_required", *patch.IsRequired); err != nil {
				return err
			}
		}
		if patch.IsActive != nil {
			if err := set("is_active", *patch.IsActive); err != nil {
				return err
			}
		}
		if patch.Width != nil {
			if err := set("width", string(*patch.Width)); err != nil {
				return err
			}
		}
		var one int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM fields WHERE id = ?`, fieldID).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return builder.ErrNotFound
			}
			return err
		}
		return nil
	})
	if errors.Is(err, builder.ErrNotFound) {
		return model.Field{}, builder.ErrNotFound
	}
	if err != nil {
		return model.Field{}, fmt.Errorf("sqlite: update field: %w", err)
	}

	var f model.Field
	err = s.db.QueryRowContext(ctx, `
		SELECT id, step_id, type, label, placeholder, help_text, options, is_required, is_active, width, order_index
		FROM fields WHERE id = ?`, fieldID,
	).Scan(&f.ID, &f.StepID, &f.Type, &f.Label, &f.Placeholder, &f.HelpText, &f.Options, &f.IsRequired, &f.IsActive, &f.Width, &f.OrderIndex)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Field{}, builder.ErrNotFound
	}
	if err != nil {
		return model.Field{}, fmt.Errorf("sqlite: get field: %w", err)
	}
	return f, nil
}

func (s *Store) DeleteField(ctx context.Context, fieldID string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var stepID string
		if err := tx.QueryRowContext(ctx, `SELECT step_id FROM fields WHERE id = ?`, fieldID).Scan(&stepID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return builder.ErrNotFound
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM fields WHERE id = ?`, fieldID); err != nil {
			return err
		}
		return recompactFields(ctx, tx, stepID)
	})
	if errors.Is(err, builder.ErrNotFound) {
		return builder.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite: delete field: %w", err)
	}
	return nil
}

func (s *Store) ReorderFields(ctx context.Context, stepID string, orderedFieldIDs []string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM fields WHERE step_id = ?`, stepID).Scan(&count); err != nil {
			return err
		}
		if count != len(orderedFieldIDs) {
			return fmt.Errorf("reorder list has %d ids, step has %d fields", len(orderedFieldIDs), count)
		}
		for i, id := range orderedFieldIDs {
			res, err := tx.ExecContext(ctx, `UPDATE fields SET order_index = ? WHERE id = ? AND step_id = ?`, i, id, stepID)
			if err != nil {
				return err
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if affected == 0 {
				return fmt.Errorf("unknown field %q: %w", id, builder.ErrNotFound)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sqlite: reorder fields: %w", err)
	}
	return nil
}

func (s *Store) updateColumn(ctx context.Context, tx *sql.Tx, table, id, column string, value any) error {
	res, err := tx.ExecContext(ctx, `UPDATE `+table+` SET `+column+` = ? WHERE id = ?`, value, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return builder.ErrNotFound
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func recompactSteps(ctx context.Context, tx *sql.Tx, formID string) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM steps WHERE form_id = ? ORDER BY order_index`, formID)
	if err != nil {
		return err
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE steps SET order_index = ? WHERE id = ?`, i, id); err != nil {
			return err
		}
	}
	return nil
}

func recompactFields(ctx context.Context, tx *sql.Tx, stepID string) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM fields WHERE step_id = ? ORDER BY order_index`, stepID)
	if err != nil {
		return err
	}
	ids, err := collectIDs(rows)
	if err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE fields SET order_index = ? WHERE id = ?`, i, id); err != nil {
			return err
		}
	}
	return nil
}

func collectIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
