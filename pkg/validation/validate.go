// Package validation decides whether a field's current answer is acceptable.
// It is purely computational: no storage, no network, deterministic for the
// same inputs, which is what lets the preview and the live form share it.
package validation

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/applykit/formflow/pkg/fieldtypes"
	"github.com/applykit/formflow/pkg/model"
)

// Field validates one answer against its field descriptor and returns a
// human-readable message, or "" when the answer is acceptable.
//
// Rule precedence: required check first (skipped for display fields and
// inactive fields), then the scalar special case for the tag when a value is
// present.
func Field(field model.Field, answer any) string {
	if !field.IsActive {
		return ""
	}
	desc := fieldtypes.MustDescribe(field.Type)
	if desc.Category == fieldtypes.CategoryDisplay {
		return ""
	}

	present := answerPresent(desc.Kind, answer)
	if !present {
		if field.IsRequired {
			return fmt.Sprintf("%s is required.", labelFor(field))
		}
		return ""
	}

	switch desc.Rule {
	case fieldtypes.RuleEmail:
		if s, ok := model.StringValue(answer); ok && !validEmail(s) {
			return fmt.Sprintf("%s must be a valid email address.", labelFor(field))
		}
	case fieldtypes.RuleURL:
		if s, ok := model.StringValue(answer); ok && !validURL(s) {
			return fmt.Sprintf("%s must be a valid URL.", labelFor(field))
		}
	case fieldtypes.RuleNumeric:
		if s, ok := model.StringValue(answer); ok && !validNumber(s) {
			return fmt.Sprintf("%s must be a number.", labelFor(field))
		}
	}
	return ""
}

// Step validates every active field of a step against the answer map. The
// returned map covers each failing field; it is empty iff the step is valid.
func Step(fields []model.Field, answers model.AnswerMap) model.ErrorMap {
	errs := make(model.ErrorMap)
	for _, field := range fields {
		if msg := Field(field, answers[field.ID]); msg != "" {
			errs[field.ID] = msg
		}
	}
	return errs
}

func answerPresent(kind fieldtypes.Kind, answer any) bool {
	if answer == nil {
		return false
	}
	switch kind {
	case fieldtypes.KindBool:
		b, ok := answer.(bool)
		return ok && b
	case fieldtypes.KindList:
		list, ok := model.ListValue(answer)
		return ok && len(list) > 0
	default:
		s, ok := model.StringValue(answer)
		return ok && strings.TrimSpace(s) != ""
	}
}

func labelFor(field model.Field) string {
	if label := strings.TrimSpace(field.Label); label != "" {
		return label
	}
	return "This field"
}

// validEmail applies a deliberately simple local-part@domain test; anything
// stricter belongs to the submission endpoint.
func validEmail(s string) bool {
	trimmed := strings.TrimSpace(s)
	at := strings.IndexByte(trimmed, '@')
	if at <= 0 || at != strings.LastIndexByte(trimmed, '@') {
		return false
	}
	domain := trimmed[at+1:]
	if domain == "" || strings.ContainsAny(trimmed, " \t") {
		return false
	}
	dot := strings.IndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

func validURL(s string) bool {
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}

func validNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}
