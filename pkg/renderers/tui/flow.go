// Package tui walks an applicant through a multi-step form in the terminal.
// It renders each step's presentation tree as a sequence of prompts, feeds
// answers back into the session, and drives the step navigator until the
// form is submitted or the user aborts.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/applykit/formflow/pkg/fieldtypes"
	"github.com/applykit/formflow/pkg/model"
	"github.com/applykit/formflow/pkg/navigator"
	"github.com/applykit/formflow/pkg/render"
)

const (
	actionContinue = "Continue"
	actionSubmit   = "Submit application"
	actionBack     = "Go back"
)

// Flow drives one navigator through the terminal.
type Flow struct {
	nav    *navigator.Navigator
	mode   render.Mode
	driver PromptDriver
}

// New builds a flow over the given navigator. Mode only affects the labels
// shown; the prompts and validation are identical in preview and live.
func New(nav *navigator.Navigator, mode render.Mode, opts ...Option) (*Flow, error) {
	if nav == nil {
		return nil, errors.New("tui: navigator is required")
	}
	f := &Flow{
		nav:    nav,
		mode:   mode,
		driver: newSurveyDriver(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Run prompts through every step until the navigator reaches its terminal
// state. Validation failures re-prompt the same step with the field errors
// shown. ErrAborted propagates when the user interrupts.
func (f *Flow) Run(ctx context.Context) error {
	for !f.nav.Submitted() {
		if err := ctx.Err(); err != nil {
			return err
		}
		tree := f.nav.RenderCurrent(f.mode)
		if err := f.promptStep(ctx, tree); err != nil {
			return err
		}
		if err := f.navigate(ctx); err != nil {
			return err
		}
	}
	if f.mode == render.ModePreview {
		return f.driver.Info(ctx, "Preview complete. Nothing was submitted.")
	}
	return f.driver.Info(ctx, "Application submitted. Thank you!")
}

func (f *Flow) promptStep(ctx context.Context, tree render.Tree) error {
	header := fmt.Sprintf("── %s (step %d of %d)", tree.Title, f.nav.Current()+1, f.nav.Len())
	if f.mode == render.ModePreview {
		header += " [preview]"
	}
	if err := f.driver.Info(ctx, header); err != nil {
		return err
	}
	if tree.Description != "" {
		if err := f.driver.Info(ctx, tree.Description); err != nil {
			return err
		}
	}

	session := f.nav.Session()
	for _, row := range tree.Rows {
		for _, cell := range row.Cells {
			value, prompted, err := f.promptCell(ctx, cell)
			if err != nil {
				return err
			}
			if prompted {
				session.SetAnswer(ctx, cell.Field.ID, value)
			}
		}
	}
	return nil
}

// promptCell collects one field's answer. The second return is false for
// display-only cells, which produce no answer.
func (f *Flow) promptCell(ctx context.Context, cell render.Cell) (any, bool, error) {
	message := cell.Field.Label
	if cell.Field.IsRequired {
		message += " *"
	}
	help := cell.Field.HelpText
	if cell.Error != "" {
		help = cell.Error
	}

	switch cell.Category {
	case fieldtypes.CategoryDisplay:
		return nil, false, f.driver.Info(ctx, displayLine(cell.Field))

	case fieldtypes.CategoryChoice:
		// A malformed options payload degrades to an empty list at render
		// time. Prompting a zero-option select would leave nothing to pick,
		// so the field is reported and skipped instead of trapping the
		// applicant.
		if len(cell.Options) == 0 {
			return nil, false, f.driver.Info(ctx, fmt.Sprintf("%s: no choices are currently available, skipping.", cell.Field.Label))
		}
		if cell.Kind == fieldtypes.KindList {
			current, _ := model.ListValue(cell.Value)
			picked, err := f.driver.MultiSelect(ctx, SelectConfig{
				Message:  message,
				Options:  cell.Options,
				Defaults: indicesOf(cell.Options, current),
				Help:     help,
			})
			if err != nil {
				return nil, false, err
			}
			values := make([]string, 0, len(picked))
			for _, idx := range picked {
				values = append(values, cell.Options[idx])
			}
			return values, true, nil
		}
		current, _ := model.StringValue(cell.Value)
		idx, err := f.driver.Select(ctx, SelectConfig{
			Message:      message,
			Options:      cell.Options,
			DefaultIndex: indexOf(cell.Options, current),
			Help:         help,
		})
		if err != nil {
			return nil, false, err
		}
		if idx < 0 || idx >= len(cell.Options) {
			return "", true, nil
		}
		return cell.Options[idx], true, nil

	case fieldtypes.CategoryUpload:
		current, _ := model.StringValue(cell.Value)
		if help == "" {
			help = "Path or reference to the file to attach."
		}
		ref, err := f.driver.Input(ctx, InputConfig{Message: message, Default: current, Help: help})
		if err != nil {
			return nil, false, err
		}
		return ref, true, nil
	}

	// Input category.
	switch cell.Kind {
	case fieldtypes.KindBool:
		current := cell.Value == true
		checked, err := f.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: current, Help: help})
		if err != nil {
			return nil, false, err
		}
		return checked, true, nil
	default:
		current, _ := model.StringValue(cell.Value)
		if cell.Field.Type == model.FieldTypeTextarea {
			text, err := f.driver.TextArea(ctx, TextAreaConfig{Message: message, Default: current, Help: help})
			if err != nil {
				return nil, false, err
			}
			return text, true, nil
		}
		if help == "" && cell.Field.Placeholder != "" {
			help = cell.Field.Placeholder
		}
		text, err := f.driver.Input(ctx, InputConfig{Message: message, Default: current, Help: help})
		if err != nil {
			return nil, false, err
		}
		return text, true, nil
	}
}

// navigate asks where to go after a step's prompts and applies the choice.
// A validation failure reports the errors and leaves the navigator in place,
// so the outer loop re-prompts the same step.
func (f *Flow) navigate(ctx context.Context) error {
	forward := actionContinue
	if f.nav.OnLastStep() {
		forward = actionSubmit
	}
	actions := []string{forward}
	if f.nav.Current() > 0 {
		actions = append(actions, actionBack)
	}

	choice := 0
	if len(actions) > 1 {
		var err error
		choice, err = f.driver.Select(ctx, SelectConfig{Message: "Next", Options: actions})
		if err != nil {
			return err
		}
	}
	if choice >= 0 && choice < len(actions) && actions[choice] == actionBack {
		return f.nav.Back(ctx)
	}

	var err error
	if f.nav.OnLastStep() {
		err = f.nav.Submit(ctx)
	} else {
		err = f.nav.Next(ctx)
	}
	if errors.Is(err, navigator.ErrValidation) {
		return f.reportErrors(ctx)
	}
	if err != nil {
		// Submission failures keep all answers; surface and let the user retry.
		return f.driver.Info(ctx, "Could not continue: "+err.Error())
	}
	return nil
}

func (f *Flow) reportErrors(ctx context.Context) error {
	errs := f.nav.Session().Errors()
	step := f.nav.CurrentStep()
	for _, field := range step.Fields {
		if msg, ok := errs[field.ID]; ok {
			if err := f.driver.Info(ctx, "✗ "+msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func displayLine(field model.Field) string {
	if field.Type == model.FieldTypeParagraph && field.HelpText != "" {
		return field.HelpText
	}
	return field.Label
}
