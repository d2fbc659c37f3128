// Package fieldtypes is the single source of truth for what a field type is.
// Every consumer (validation, rendering, the builder's add-field menu) looks
// up this table instead of re-deriving type behavior inline.
package fieldtypes

import (
	"fmt"
	"sort"

	"github.com/applykit/formflow/pkg/model"
)

// Category is the coarse grouping that drives validation and rendering
// treatment.
type Category string

const (
	CategoryInput   Category = "input"
	CategoryChoice  Category = "choice"
	CategoryDisplay Category = "display"
	CategoryUpload  Category = "upload"
)

// Rule names the scalar validation special case applied when an answer is
// present. RuleNone means only the required check applies.
type Rule string

const (
	RuleNone    Rule = ""
	RuleEmail   Rule = "email"
	RuleURL     Rule = "url"
	RuleNumeric Rule = "numeric"
)

// Kind describes the shape of the answer value for a tag.
type Kind string

const (
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindList   Kind = "list"
)

// Descriptor is one row of the registry table.
type Descriptor struct {
	Tag            model.FieldType
	Category       Category
	Kind           Kind
	Rule           Rule
	AppliesOptions bool

	// Defaults applied by the builder when a field of this type is created.
	MenuLabel    string
	DefaultLabel string
	DefaultWidth model.WidthClass
}

var registry = map[model.FieldType]Descriptor{
	model.FieldTypeText:        {Tag: model.FieldTypeText, Category: CategoryInput, Kind: KindString, MenuLabel: "Text", DefaultLabel: "Text field", DefaultWidth: model.WidthFull},
	model.FieldTypeTextarea:    {Tag: model.FieldTypeTextarea, Category: CategoryInput, Kind: KindString, MenuLabel: "Paragraph text", DefaultLabel: "Paragraph field", DefaultWidth: model.WidthFull},
	model.FieldTypeEmail:       {Tag: model.FieldTypeEmail, Category: CategoryInput, Kind: KindString, Rule: RuleEmail, MenuLabel: "Email", DefaultLabel: "Email address", DefaultWidth: model.WidthHalf},
	model.FieldTypePhone:       {Tag: model.FieldTypePhone, Category: CategoryInput, Kind: KindString, MenuLabel: "Phone", DefaultLabel: "Phone number", DefaultWidth: model.WidthHalf},
	model.FieldTypeNumber:      {Tag: model.FieldTypeNumber, Category: CategoryInput, Kind: KindString, Rule: RuleNumeric, MenuLabel: "Number", DefaultLabel: "Number field", DefaultWidth: model.WidthThird},
	model.FieldTypeDate:        {Tag: model.FieldTypeDate, Category: CategoryInput, Kind: KindString, MenuLabel: "Date", DefaultLabel: "Date field", DefaultWidth: model.WidthThird},
	model.FieldTypeURL:         {Tag: model.FieldTypeURL, Category: CategoryInput, Kind: KindString, Rule: RuleURL, MenuLabel: "Link", DefaultLabel: "Link field", DefaultWidth: model.WidthHalf},
	model.FieldTypeSelect:      {Tag: model.FieldTypeSelect, Category: CategoryChoice, Kind: KindString, AppliesOptions: true, MenuLabel: "Dropdown", DefaultLabel: "Dropdown field", DefaultWidth: model.WidthHalf},
	model.FieldTypeMultiSelect: {Tag: model.FieldTypeMultiSelect, Category: CategoryChoice, Kind: KindList, AppliesOptions: true, MenuLabel: "Multi select", DefaultLabel: "Multi select field", DefaultWidth: model.WidthFull},
	model.FieldTypeRadio:       {Tag: model.FieldTypeRadio, Category: CategoryChoice, Kind: KindString, AppliesOptions: true, MenuLabel: "Radio group", DefaultLabel: "Radio field", DefaultWidth: model.WidthFull},
	model.FieldTypeCheckbox:    {Tag: model.FieldTypeCheckbox, Category: CategoryInput, Kind: KindBool, MenuLabel: "Checkbox", DefaultLabel: "Checkbox field", DefaultWidth: model.WidthFull},
	model.FieldTypeImage:       {Tag: model.FieldTypeImage, Category: CategoryUpload, Kind: KindString, MenuLabel: "Image upload", DefaultLabel: "Image upload", DefaultWidth: model.WidthHalf},
	model.FieldTypePDF:         {Tag: model.FieldTypePDF, Category: CategoryUpload, Kind: KindString, MenuLabel: "Document upload", DefaultLabel: "Document upload", DefaultWidth: model.WidthHalf},
	model.FieldTypeHeading:     {Tag: model.FieldTypeHeading, Category: CategoryDisplay, Kind: KindString, MenuLabel: "Heading", DefaultLabel: "Section heading", DefaultWidth: model.WidthFull},
	model.FieldTypeParagraph:   {Tag: model.FieldTypeParagraph, Category: CategoryDisplay, Kind: KindString, MenuLabel: "Display text", DefaultLabel: "Display text", DefaultWidth: model.WidthFull},
}

// Describe returns the descriptor for a tag.
func Describe(tag model.FieldType) (Descriptor, bool) {
	desc, ok := registry[tag]
	return desc, ok
}

// MustDescribe panics on an unknown tag. An unknown tag is a programming
// error, not a runtime condition; schemas are checked at load time.
func MustDescribe(tag model.FieldType) Descriptor {
	desc, ok := registry[tag]
	if !ok {
		panic(fmt.Sprintf("fieldtypes: unknown field type %q", tag))
	}
	return desc
}

// Known reports whether the tag is part of the catalog.
func Known(tag model.FieldType) bool {
	_, ok := registry[tag]
	return ok
}

// Tags returns the full catalog in stable order, for the builder's add-field
// menu.
func Tags() []model.FieldType {
	out := make([]model.FieldType, 0, len(registry))
	for tag := range registry {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Check validates a loaded schema against the catalog: every tag must be
// known and choice-type fields must carry a decodable, non-empty option
// list. It fails loudly so bad schemas are caught at load time, not at
// render time.
func Check(steps []model.Step) error {
	for _, step := range steps {
		for _, field := range step.Fields {
			desc, ok := registry[field.Type]
			if !ok {
				return fmt.Errorf("fieldtypes: step %q field %q: unknown field type %q", step.ID, field.ID, field.Type)
			}
			if !desc.AppliesOptions {
				continue
			}
			options, err := model.DecodeOptions(field.Options)
			if err != nil {
				return fmt.Errorf("fieldtypes: step %q field %q: %w", step.ID, field.ID, err)
			}
			if len(options) == 0 {
				return fmt.Errorf("fieldtypes: step %q field %q: choice field has no options", step.ID, field.ID)
			}
		}
	}
	return nil
}
