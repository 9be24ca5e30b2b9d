package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("aborted")

// prompter asks the user for values. Tests replace it.
type prompter interface {
	Input(message, help string, required bool) (string, error)
	Lines(message, help string) ([]string, error)
	Confirm(message string, def bool) (bool, error)
}

var activePrompter prompter = surveyPrompter{}

type surveyPrompter struct{}

func (surveyPrompter) Input(message, help string, required bool) (string, error) {
	var out string
	var opts []survey.AskOpt
	if required {
		opts = append(opts, survey.WithValidator(survey.Required))
	}
	if err := survey.AskOne(&survey.Input{Message: message, Help: help}, &out, opts...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (surveyPrompter) Lines(message, help string) ([]string, error) {
	var out string
	prompt := &survey.Multiline{Message: message + " (one per line)", Help: help}
	if err := survey.AskOne(prompt, &out); err != nil {
		return nil, translateSurveyErr(err)
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (surveyPrompter) Confirm(message string, def bool) (bool, error) {
	var out bool
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &out); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

// confirm asks before a destructive step. --yes answers yes; without a
// terminal the answer is no.
func confirm(message string) (bool, error) {
	if SkipConfirmation() {
		return true, nil
	}
	if IsNonInteractive() {
		return false, nil
	}
	ok, err := activePrompter.Confirm(message, false)
	if err != nil {
		return false, fmt.Errorf("confirm: %w", err)
	}
	return ok, nil
}
