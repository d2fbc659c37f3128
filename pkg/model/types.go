package model

// FieldType enumerates the closed set of field variants an administrator can
// place on an application form. The set is fixed; consumers dispatch through
// the fieldtypes registry rather than switching on tags directly.
type FieldType string

const (
	FieldTypeText        FieldType = "TEXT"
	FieldTypeTextarea    FieldType = "TEXTAREA"
	FieldTypeEmail       FieldType = "EMAIL"
	FieldTypePhone       FieldType = "PHONE"
	FieldTypeNumber      FieldType = "NUMBER"
	FieldTypeDate        FieldType = "DATE"
	FieldTypeURL         FieldType = "URL"
	FieldTypeSelect      FieldType = "SELECT"
	FieldTypeMultiSelect FieldType = "MULTI_SELECT"
	FieldTypeRadio       FieldType = "RADIO"
	FieldTypeCheckbox    FieldType = "CHECKBOX"
	FieldTypeImage       FieldType = "IMAGE"
	FieldTypePDF         FieldType = "PDF"
	FieldTypeHeading     FieldType = "HEADING"
	FieldTypeParagraph   FieldType = "PARAGRAPH"
)

// WidthClass is a layout hint controlling how many fields share a visual row.
type WidthClass string

const (
	WidthFull  WidthClass = "full"
	WidthHalf  WidthClass = "half"
	WidthThird WidthClass = "third"
)

// Step is one page of a multi-step form. Order indices across all steps of a
// form are a contiguous permutation of 0..N-1.
type Step struct {
	ID          string  `json:"id"`
	FormID      string  `json:"formId"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	OrderIndex  int     `json:"orderIndex"`
	IsRequired  bool    `json:"isRequired"`
	IsActive    bool    `json:"isActive"`
	Fields      []Field `json:"fields,omitempty"`
}

// Field is one input or display unit within a step. Options holds the
// serialized option list and is meaningful only for choice-type tags.
type Field struct {
	ID          string     `json:"id"`
	StepID      string     `json:"stepId"`
	Type        FieldType  `json:"type"`
	Label       string     `json:"label"`
	Placeholder string     `json:"placeholder,omitempty"`
	HelpText    string     `json:"helpText,omitempty"`
	Options     string     `json:"options,omitempty"`
	IsRequired  bool       `json:"isRequired"`
	IsActive    bool       `json:"isActive"`
	Width       WidthClass `json:"width"`
	OrderIndex  int        `json:"orderIndex"`
}

// AnswerMap is the transient per-submission state: field id to submitted
// value. Values are strings, bools, or string slices depending on the tag.
type AnswerMap map[string]any

// ErrorMap maps field ids to human-readable validation messages. It is
// recomputed on every validation pass and never persisted.
type ErrorMap map[string]string

// Clone returns an independent copy of the answer map. List values are
// copied so callers cannot mutate shared backing arrays.
func (a AnswerMap) Clone() AnswerMap {
	if a == nil {
		return nil
	}
	out := make(AnswerMap, len(a))
	for k, v := range a {
		if list, ok := v.([]string); ok {
			out[k] = append([]string(nil), list...)
			continue
		}
		out[k] = v
	}
	return out
}

// Clone returns an independent copy of the error map.
func (e ErrorMap) Clone() ErrorMap {
	if e == nil {
		return nil
	}
	out := make(ErrorMap, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// StringValue coerces an answer to its string form.
func StringValue(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// ListValue coerces an answer to a string list, accepting both []string and
// []any payloads (the latter appears after JSON round-trips).
func ListValue(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// CloneSteps deep-copies a step slice, including owned fields.
func CloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, step := range steps {
		out[i] = step
		out[i].Fields = append([]Field(nil), step.Fields...)
	}
	return out
}
