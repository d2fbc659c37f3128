package render

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	displayPolicyOnce sync.Once
	displayPolicy     *bluemonday.Policy
)

// sanitizeDisplayMarkup strips everything from administrator-authored display
// content except basic inline formatting and links. Display fields are the
// only place schema text reaches applicants as markup, so the policy is
// deliberately narrow.
func sanitizeDisplayMarkup(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(displaySanitizer().Sanitize(trimmed))
}

func displaySanitizer() *bluemonday.Policy {
	displayPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("b", "strong", "i", "em", "u", "br", "p", "ul", "ol", "li")
		policy.AllowAttrs("href").OnElements("a")
		policy.AllowStandardURLs()
		displayPolicy = policy
	})
	return displayPolicy
}
