// Package render projects a step's active, ordered fields into a
// presentation tree bound to the current answer and error state. The same
// projection backs the builder preview and the live submission flow; the two
// modes differ only in what the navigator's terminal transition does.
package render

import (
	"github.com/applykit/formflow/pkg/fieldtypes"
	"github.com/applykit/formflow/pkg/model"
)

// Mode distinguishes the preview simulation from the live apply flow. It is
// carried on the tree for the surface's benefit; field projection is
// identical in both.
type Mode string

const (
	ModePreview Mode = "preview"
	ModeLive    Mode = "live"
)

// Tree is the renderable projection of one step.
type Tree struct {
	StepID      string
	Title       string
	Description string
	Mode        Mode
	Rows        []Row
}

// Row groups cells that share a visual row, packed by width class.
type Row struct {
	Cells []Cell
}

// Cell is one field bound to its current value and error.
type Cell struct {
	Field    model.Field
	Category fieldtypes.Category
	Kind     fieldtypes.Kind

	// Options is the decoded choice list. A malformed payload degrades to an
	// empty list rather than failing the render.
	Options []string

	// Markup is the sanitized display content for display-category fields.
	Markup string

	Value any
	Error string
}

// Width units per row; full spans the row, halves pair up, thirds go three
// across. Mixed half/third rows pack greedily in field order.
const rowUnits = 6

func unitsFor(width model.WidthClass) int {
	switch width {
	case model.WidthHalf:
		return rowUnits / 2
	case model.WidthThird:
		return rowUnits / 3
	default:
		return rowUnits
	}
}

// Render projects a step into a presentation tree. Inactive fields are
// skipped; fields are consumed in stored order. Render never fails: schema
// configuration problems degrade per-cell (see Cell.Options).
func Render(step model.Step, answers model.AnswerMap, errs model.ErrorMap, mode Mode) Tree {
	tree := Tree{
		StepID:      step.ID,
		Title:       step.Title,
		Description: step.Description,
		Mode:        mode,
	}

	var row Row
	used := 0
	flush := func() {
		if len(row.Cells) > 0 {
			tree.Rows = append(tree.Rows, row)
			row = Row{}
			used = 0
		}
	}

	for _, field := range step.Fields {
		if !field.IsActive {
			continue
		}
		cell := buildCell(field, answers, errs)
		units := unitsFor(field.Width)
		if used+units > rowUnits {
			flush()
		}
		row.Cells = append(row.Cells, cell)
		used += units
		if used == rowUnits {
			flush()
		}
	}
	flush()
	return tree
}

func buildCell(field model.Field, answers model.AnswerMap, errs model.ErrorMap) Cell {
	desc := fieldtypes.MustDescribe(field.Type)
	cell := Cell{
		Field:    field,
		Category: desc.Category,
		Kind:     desc.Kind,
		Value:    answers[field.ID],
		Error:    errs[field.ID],
	}

	if desc.AppliesOptions {
		// Malformed options render as an empty, non-blocking choice set.
		options, _ := model.DecodeOptions(field.Options)
		cell.Options = options
	}
	if desc.Category == fieldtypes.CategoryDisplay {
		cell.Markup = sanitizeDisplayMarkup(displayText(field))
	}
	return cell
}

// displayText picks the content a display field shows. Heading fields show
// their label; display-text fields prefer the help text body when present.
func displayText(field model.Field) string {
	if field.Type == model.FieldTypeParagraph && field.HelpText != "" {
		return field.HelpText
	}
	return field.Label
}
