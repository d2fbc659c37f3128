package loader

import (
	"context"
	"strings"
	"testing"

	"github.com/applykit/formflow/internal/store/memory"
	"github.com/applykit/formflow/pkg/model"
)

const sampleDoc = `
form: summer-internship
steps:
  - title: About you
    description: Tell us who you are.
    required: true
    fields:
      - type: TEXT
        label: Full name
        required: true
        width: half
      - type: EMAIL
        required: true
        width: half
      - type: SELECT
        label: Preferred office
        options: [Berlin, Lisbon, Remote]
        required: true
  - title: Consent
    fields:
      - type: PARAGRAPH
        help: We store your application for six months.
      - type: CHECKBOX
        label: I agree
        required: true
  - title: Draft step
    active: false
    fields: []
`

func TestParse(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Form != "summer-internship" {
		t.Errorf("form = %q", doc.Form)
	}
	if len(doc.Steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(doc.Steps))
	}
	if got := doc.Steps[0].Fields[2].Options; len(got) != 3 || got[0] != "Berlin" {
		t.Errorf("options = %v", got)
	}
}

func TestParse_Rejections(t *testing.T) {
	cases := map[string]string{
		"unknown type": `
form: f
steps:
  - title: S
    fields:
      - type: HOLOGRAM
        label: X
`,
		"choice without options": `
form: f
steps:
  - title: S
    fields:
      - type: RADIO
        label: X
`,
		"options on non-choice": `
form: f
steps:
  - title: S
    fields:
      - type: TEXT
        label: X
        options: [a, b]
`,
		"no form id": `
steps:
  - title: S
    fields: []
`,
		"no steps": `
form: f
steps: []
`,
		"unknown key": `
form: f
extra: nope
steps:
  - title: S
    fields: []
`,
	}
	for name, doc := range cases {
		if _, err := Parse(strings.NewReader(doc)); err == nil {
			t.Errorf("%s: expected parse error", name)
		}
	}
}

func TestSeed(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	ctx := context.Background()
	store := memory.New()
	formID, err := Seed(ctx, store, doc)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}

	steps, err := store.GetSteps(ctx, formID)
	if err != nil {
		t.Fatalf("GetSteps: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(steps))
	}
	for i, step := range steps {
		if step.OrderIndex != i {
			t.Errorf("step %d order = %d", i, step.OrderIndex)
		}
	}
	if steps[2].IsActive {
		t.Error("draft step should be inactive")
	}

	email := steps[0].Fields[1]
	if email.Label != "Email" {
		t.Errorf("blank label should take registry default, got %q", email.Label)
	}
	if email.Width != model.WidthHalf {
		t.Errorf("email width = %q", email.Width)
	}

	office := steps[0].Fields[2]
	opts, err := model.DecodeOptions(office.Options)
	if err != nil {
		t.Fatalf("DecodeOptions: %v", err)
	}
	if len(opts) != 3 || opts[2] != "Remote" {
		t.Errorf("seeded options = %v", opts)
	}

	active, err := store.GetActiveSteps(ctx, formID)
	if err != nil {
		t.Fatalf("GetActiveSteps: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("got %d active steps, want 2", len(active))
	}
}
