// Package loader reads form schema documents from YAML (or JSON, which YAML
// subsumes) and seeds them into a schema store. Documents are the interchange
// format for fixtures, previews, and migrating forms between environments.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/applykit/formflow/pkg/builder"
	"github.com/applykit/formflow/pkg/fieldtypes"
	"github.com/applykit/formflow/pkg/model"
)

// Document is a complete form definition.
type Document struct {
	Form  string     `yaml:"form"`
	Steps []StepSpec `yaml:"steps"`
}

// StepSpec describes one step. Active defaults to true when omitted.
type StepSpec struct {
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Required    bool        `yaml:"required"`
	Active      *bool       `yaml:"active"`
	Fields      []FieldSpec `yaml:"fields"`
}

// FieldSpec describes one field. Width falls back to the type's registry
// default when omitted.
type FieldSpec struct {
	Type        model.FieldType  `yaml:"type"`
	Label       string           `yaml:"label"`
	Placeholder string           `yaml:"placeholder"`
	Help        string           `yaml:"help"`
	Options     []string         `yaml:"options"`
	Required    bool             `yaml:"required"`
	Active      *bool            `yaml:"active"`
	Width       model.WidthClass `yaml:"width"`
}

// Parse decodes and validates a document. Unknown field types, choice fields
// without options, and empty forms are rejected here rather than at render
// time.
func Parse(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("loader: decode document: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseFile reads and parses a document from disk.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

func (d *Document) validate() error {
	if d.Form == "" {
		return fmt.Errorf("loader: document has no form id")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("loader: form %q has no steps", d.Form)
	}
	for si, step := range d.Steps {
		if step.Title == "" {
			return fmt.Errorf("loader: step %d has no title", si)
		}
		for fi, field := range step.Fields {
			desc, ok := fieldtypes.Describe(field.Type)
			if !ok {
				return fmt.Errorf("loader: step %q field %d: unknown type %q", step.Title, fi, field.Type)
			}
			if desc.AppliesOptions && len(field.Options) == 0 {
				return fmt.Errorf("loader: step %q field %d: type %s requires options", step.Title, fi, field.Type)
			}
			if !desc.AppliesOptions && len(field.Options) > 0 {
				return fmt.Errorf("loader: step %q field %d: type %s does not take options", step.Title, fi, field.Type)
			}
		}
	}
	return nil
}

// Seed writes the document's steps and fields into the store in document
// order, so order indices come out contiguous. It returns the form id.
func Seed(ctx context.Context, store builder.Store, doc *Document) (string, error) {
	for _, stepSpec := range doc.Steps {
		step, err := store.CreateStep(ctx, doc.Form, builder.StepInput{
			Title:       stepSpec.Title,
			Description: stepSpec.Description,
			IsRequired:  stepSpec.Required,
		})
		if err != nil {
			return "", fmt.Errorf("loader: seed step %q: %w", stepSpec.Title, err)
		}
		if stepSpec.Active != nil && !*stepSpec.Active {
			inactive := false
			if _, err := store.UpdateStep(ctx, step.ID, builder.StepPatch{IsActive: &inactive}); err != nil {
				return "", fmt.Errorf("loader: deactivate step %q: %w", stepSpec.Title, err)
			}
		}
		for _, fieldSpec := range stepSpec.Fields {
			if err := seedField(ctx, store, step.ID, fieldSpec); err != nil {
				return "", fmt.Errorf("loader: seed step %q: %w", stepSpec.Title, err)
			}
		}
	}
	return doc.Form, nil
}

func seedField(ctx context.Context, store builder.Store, stepID string, spec FieldSpec) error {
	desc, _ := fieldtypes.Describe(spec.Type)

	label := spec.Label
	if label == "" {
		label = desc.DefaultLabel
	}
	width := spec.Width
	if width == "" {
		width = desc.DefaultWidth
	}
	options := ""
	if len(spec.Options) > 0 {
		encoded, err := model.EncodeOptions(spec.Options)
		if err != nil {
			return fmt.Errorf("field %q: %w", label, err)
		}
		options = encoded
	}

	field, err := store.CreateField(ctx, stepID, builder.FieldInput{
		Type:        spec.Type,
		Label:       label,
		Placeholder: spec.Placeholder,
		HelpText:    spec.Help,
		Options:     options,
		IsRequired:  spec.Required,
		Width:       width,
	})
	if err != nil {
		return fmt.Errorf("field %q: %w", label, err)
	}
	if spec.Active != nil && !*spec.Active {
		inactive := false
		if _, err := store.UpdateField(ctx, field.ID, builder.FieldPatch{IsActive: &inactive}); err != nil {
			return fmt.Errorf("deactivate field %q: %w", label, err)
		}
	}
	return nil
}
