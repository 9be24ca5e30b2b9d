package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/spf13/cobra"

	"github.com/opencode-ai/tmplbind/internal/templates"
	"github.com/opencode-ai/tmplbind/pkg/tmplbind"
)

var (
	renderSets        []string
	renderItems       []string
	renderInteractive bool
	renderSanitize    bool
	renderOutput      string
)

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringArrayVar(&renderSets, "set", nil, "bind a scalar variable (name=value)")
	renderCmd.Flags().StringArrayVar(&renderItems, "item", nil, "append an element to a list variable (name=value)")
	renderCmd.Flags().BoolVarP(&renderInteractive, "interactive", "i", false, "prompt for missing required variables")
	renderCmd.Flags().BoolVar(&renderSanitize, "sanitize", false, "sanitize the rendered HTML")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "write to a file instead of stdout")
}

var renderCmd = &cobra.Command{
	Use:   "render <template>",
	Short: "Render a template with values from flags or prompts",
	Example: `  tmplbind render name --set firstName=Bob --set lastName=Smith
  tmplbind render list --item items=alpha --item items=omega`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		tmpl, err := resolveTemplate(cfg, args[0])
		if err != nil {
			return err
		}
		compiled, err := tmpl.Compile(compileOptions(cfg)...)
		if err != nil {
			return err
		}

		bindings, err := buildBindings(compiled, renderSets, renderItems)
		if err != nil {
			return err
		}
		if renderInteractive {
			if IsNonInteractive() {
				return &PreflightError{
					Message: "--interactive requires a terminal",
					Hint:    "Bind every required variable with --set or --item",
				}
			}
			if err := promptMissing(activePrompter, tmpl, compiled, bindings); err != nil {
				return err
			}
		}

		rendered, err := compiled.Render(bindings)
		if err != nil {
			return renderFailure(err)
		}
		if renderSanitize {
			rendered = sanitizeHTML(rendered)
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), map[string]string{
				"name":   tmpl.Name,
				"output": rendered,
			})
		}
		if renderOutput != "" {
			return os.WriteFile(renderOutput, []byte(rendered), 0o644)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return err
	},
}

func splitAssignment(flag, value string) (string, string, error) {
	name, val, ok := strings.Cut(value, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("--%s %q: expected name=value", flag, value)
	}
	return name, val, nil
}

// buildBindings turns --set and --item flags into bindings, checking names
// and shapes against the manifest.
func buildBindings(tmpl *tmplbind.Template, sets, items []string) (tmplbind.Bindings, error) {
	bindings := make(tmplbind.Bindings)

	for _, raw := range sets {
		name, value, err := splitAssignment("set", raw)
		if err != nil {
			return nil, err
		}
		v, ok := tmpl.Variable(name)
		if !ok {
			return nil, fmt.Errorf("--set %s: template has no variable %q", name, name)
		}
		if v.Array {
			return nil, fmt.Errorf("--set %s: %q is a list, use --item", name, name)
		}
		bindings[name] = tmplbind.String(value)
	}

	for _, raw := range items {
		name, value, err := splitAssignment("item", raw)
		if err != nil {
			return nil, err
		}
		v, ok := tmpl.Variable(name)
		if !ok {
			return nil, fmt.Errorf("--item %s: template has no variable %q", name, name)
		}
		if !v.Array {
			return nil, fmt.Errorf("--item %s: %q is not a list, use --set", name, name)
		}
		current, exists := bindings[name]
		if !exists {
			current = tmplbind.List()
		}
		bindings[name] = current.Append(tmplbind.Text(value))
	}

	return bindings, nil
}

// promptMissing asks for every required variable without a binding.
func promptMissing(p prompter, src *templates.Template, tmpl *tmplbind.Template, bindings tmplbind.Bindings) error {
	for _, v := range tmpl.Variables() {
		if v.Optional {
			continue
		}
		if _, bound := bindings[v.Name]; bound {
			continue
		}
		help := src.Describe(v.Name)
		if v.Array {
			lines, err := p.Lines(v.Name, help)
			if err != nil {
				return err
			}
			bindings[v.Name] = tmplbind.Strings(lines...)
			continue
		}
		value, err := p.Input(v.Name, help, true)
		if err != nil {
			return err
		}
		bindings[v.Name] = tmplbind.String(value)
	}
	return nil
}

func renderFailure(err error) error {
	var renderErr *tmplbind.RenderError
	if !errors.As(err, &renderErr) {
		return err
	}
	switch {
	case errors.Is(err, tmplbind.ErrMissingBinding):
		return &PreflightError{
			Message: err.Error(),
			Hint:    fmt.Sprintf("Bind it with --set %s=value (or --item for lists), or pass --interactive", renderErr.Name),
		}
	case errors.Is(err, tmplbind.ErrUnknownPlaceholder):
		return &PreflightError{
			Message: err.Error(),
			Hint:    "The template text and its manifest disagree; regenerate it",
		}
	}
	return err
}

var (
	sanitizerOnce sync.Once
	sanitizer     *bluemonday.Policy
)

func sanitizeHTML(raw string) string {
	sanitizerOnce.Do(func() {
		sanitizer = bluemonday.UGCPolicy()
	})
	return sanitizer.Sanitize(raw)
}
