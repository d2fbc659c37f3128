package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/applykit/formflow/pkg/fieldtypes"
	"github.com/applykit/formflow/pkg/model"
)

// HTML serializes a presentation tree as a form fragment. The fragment is a
// debugging and preview artifact; the canonical consumers of the tree are
// the interactive surfaces.
func HTML(tree Tree) string {
	var b strings.Builder
	b.Grow(1024)

	fmt.Fprintf(&b, `<section class="form-step" data-step="%s" data-mode="%s">`+"\n", html.EscapeString(tree.StepID), html.EscapeString(string(tree.Mode)))
	if tree.Title != "" {
		fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(tree.Title))
	}
	if tree.Description != "" {
		fmt.Fprintf(&b, "<p class=\"step-description\">%s</p>\n", html.EscapeString(tree.Description))
	}

	for _, row := range tree.Rows {
		b.WriteString(`<div class="form-row">` + "\n")
		for _, cell := range row.Cells {
			writeCell(&b, cell)
		}
		b.WriteString("</div>\n")
	}

	b.WriteString("</section>\n")
	return b.String()
}

func writeCell(b *strings.Builder, cell Cell) {
	fmt.Fprintf(b, `<div class="form-cell width-%s" data-field="%s">`+"\n", html.EscapeString(string(cell.Field.Width)), html.EscapeString(cell.Field.ID))
	defer b.WriteString("</div>\n")

	if cell.Category == fieldtypes.CategoryDisplay {
		// Markup is already sanitized; escaping it again would defeat the
		// allowed inline formatting.
		if cell.Field.Type == model.FieldTypeHeading {
			fmt.Fprintf(b, "<h3>%s</h3>\n", cell.Markup)
			return
		}
		fmt.Fprintf(b, "<p>%s</p>\n", cell.Markup)
		return
	}

	// Attribute values must be entity-escaped; Go's %q quoting is not HTML
	// escaping and leaves quotes able to close the attribute.
	id := html.EscapeString(cell.Field.ID)

	fmt.Fprintf(b, `<label for="%s">%s`, id, html.EscapeString(cell.Field.Label))
	if cell.Field.IsRequired {
		b.WriteString(`<span class="required">*</span>`)
	}
	b.WriteString("</label>\n")

	switch {
	case cell.Category == fieldtypes.CategoryChoice:
		writeChoice(b, cell)
	case cell.Category == fieldtypes.CategoryUpload:
		fmt.Fprintf(b, `<input type="file" id="%s" name="%s">`+"\n", id, id)
		if ref, ok := model.StringValue(cell.Value); ok && ref != "" {
			fmt.Fprintf(b, `<span class="upload-ref">%s</span>`+"\n", html.EscapeString(ref))
		}
	case cell.Field.Type == model.FieldTypeTextarea:
		fmt.Fprintf(b, `<textarea id="%s" name="%s" placeholder="%s">%s</textarea>`+"\n",
			id, id, html.EscapeString(cell.Field.Placeholder), html.EscapeString(stringOr(cell.Value)))
	case cell.Field.Type == model.FieldTypeCheckbox:
		checked := ""
		if v, ok := cell.Value.(bool); ok && v {
			checked = " checked"
		}
		fmt.Fprintf(b, `<input type="checkbox" id="%s" name="%s"%s>`+"\n", id, id, checked)
	default:
		fmt.Fprintf(b, `<input type="%s" id="%s" name="%s" placeholder="%s" value="%s">`+"\n",
			inputType(cell.Field.Type), id, id,
			html.EscapeString(cell.Field.Placeholder), html.EscapeString(stringOr(cell.Value)))
	}

	if cell.Field.HelpText != "" {
		fmt.Fprintf(b, `<small class="help">%s</small>`+"\n", html.EscapeString(cell.Field.HelpText))
	}
	if cell.Error != "" {
		fmt.Fprintf(b, `<span class="field-error">%s</span>`+"\n", html.EscapeString(cell.Error))
	}
}

func writeChoice(b *strings.Builder, cell Cell) {
	id := html.EscapeString(cell.Field.ID)
	switch cell.Field.Type {
	case model.FieldTypeRadio:
		for _, option := range cell.Options {
			checked := ""
			if v, ok := model.StringValue(cell.Value); ok && v == option {
				checked = " checked"
			}
			fmt.Fprintf(b, `<label class="radio"><input type="radio" name="%s" value="%s"%s>%s</label>`+"\n",
				id, html.EscapeString(option), checked, html.EscapeString(option))
		}
	default:
		multiple := ""
		if cell.Field.Type == model.FieldTypeMultiSelect {
			multiple = " multiple"
		}
		selected := selectedSet(cell.Value)
		fmt.Fprintf(b, `<select id="%s" name="%s"%s>`+"\n", id, id, multiple)
		for _, option := range cell.Options {
			mark := ""
			if _, ok := selected[option]; ok {
				mark = " selected"
			}
			fmt.Fprintf(b, `<option value="%s"%s>%s</option>`+"\n", html.EscapeString(option), mark, html.EscapeString(option))
		}
		b.WriteString("</select>\n")
	}
}

func selectedSet(value any) map[string]struct{} {
	out := make(map[string]struct{})
	if s, ok := model.StringValue(value); ok && s != "" {
		out[s] = struct{}{}
		return out
	}
	if list, ok := model.ListValue(value); ok {
		for _, item := range list {
			out[item] = struct{}{}
		}
	}
	return out
}

func stringOr(value any) string {
	if s, ok := model.StringValue(value); ok {
		return s
	}
	return ""
}

func inputType(tag model.FieldType) string {
	switch tag {
	case model.FieldTypeEmail:
		return "email"
	case model.FieldTypePhone:
		return "tel"
	case model.FieldTypeNumber:
		return "number"
	case model.FieldTypeDate:
		return "date"
	case model.FieldTypeURL:
		return "url"
	default:
		return "text"
	}
}
