package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/opencode-ai/tmplbind/internal/codegen"
	"github.com/opencode-ai/tmplbind/internal/config"
	"github.com/opencode-ai/tmplbind/internal/templates"
	"github.com/opencode-ai/tmplbind/pkg/tmplbind"
)

var (
	inspectYAML bool
	inspectCode bool
)

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectYAML, "yaml", false, "output YAML")
	inspectCmd.Flags().BoolVar(&inspectCode, "code", false, "print the generated Go source")
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <template>",
	Short: "Show a template's variables and accepted input shapes",
	Args:  cobra.ExactArgs(1),
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

		exported := firstNonEmpty(tmpl.Visibility, cfg.Visibility) != config.VisibilityUnexported
		out := cmd.OutOrStdout()

		if inspectCode {
			src, err := codegen.Generate(codegen.Input{
				Name:        tmpl.Name,
				Description: tmpl.Description,
				Source:      tmpl.Source,
				Template:    compiled,
				Describe:    tmpl.Describe,
			}, codegen.Options{
				Package:  firstNonEmpty(tmpl.Package, cfg.Package),
				Exported: exported,
				Header:   cfg.Output.Header,
			})
			if err != nil {
				return err
			}
			_, err = out.Write(src)
			return err
		}

		report, err := buildInspectReport(tmpl, compiled, exported)
		if err != nil {
			return err
		}

		switch {
		case IsJSONOutput() || IsJSONLOutput():
			return WriteOutput(out, report)
		case inspectYAML:
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(report); err != nil {
				return err
			}
			return enc.Close()
		}

		fmt.Fprintf(out, "%s %s\n", colorize(report.Name, roleTitle), colorize("("+report.Source+")", roleMuted))
		if report.Description != "" {
			fmt.Fprintln(out, report.Description)
		}
		fmt.Fprintln(out)

		rows := make([][]string, 0, len(report.Variables))
		for _, v := range report.Variables {
			rows = append(rows, []string{v.Name, v.Kind, formatYesNo(v.Array), formatYesNo(v.Optional), v.Description})
		}
		if len(rows) == 0 {
			fmt.Fprintln(out, "No variables.")
		} else if err := writeTable(out, []string{"VARIABLE", "KIND", "LIST", "OPTIONAL", "DESCRIPTION"}, rows); err != nil {
			return err
		}

		fmt.Fprintln(out)
		shapeRows := make([][]string, 0, len(report.Shapes))
		for _, s := range report.Shapes {
			shapeRows = append(shapeRows, []string{s.Constructor, s.Signature})
		}
		if err := writeTable(out, []string{"CONSTRUCTOR", "SIGNATURE"}, shapeRows); err != nil {
			return err
		}

		for _, name := range report.Unused {
			fmt.Fprintf(out, "%s declared variable %q is not used\n", colorize("warning:", roleWarning), name)
		}
		return nil
	},
}

type inspectVariable struct {
	Name        string `json:"name" yaml:"name"`
	Kind        string `json:"kind" yaml:"kind"`
	Array       bool   `json:"array" yaml:"array"`
	Optional    bool   `json:"optional" yaml:"optional"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type inspectShape struct {
	Constructor string `json:"constructor" yaml:"constructor"`
	Signature   string `json:"signature" yaml:"signature"`
	Variadic    bool   `json:"variadic" yaml:"variadic"`
}

type inspectReport struct {
	Name        string            `json:"name" yaml:"name"`
	Source      string            `json:"source" yaml:"source"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Type        string            `json:"type" yaml:"type"`
	Variables   []inspectVariable `json:"variables" yaml:"variables"`
	Shapes      []inspectShape    `json:"shapes" yaml:"shapes"`
	Unused      []string          `json:"unused,omitempty" yaml:"unused,omitempty"`
}

func buildInspectReport(tmpl *templates.Template, compiled *tmplbind.Template, exported bool) (*inspectReport, error) {
	typeName, err := codegen.TypeName(tmpl.Name, exported)
	if err != nil {
		return nil, err
	}
	report := &inspectReport{
		Name:        tmpl.Name,
		Source:      tmpl.Source,
		Description: tmpl.Description,
		Type:        typeName,
		Variables:   []inspectVariable{},
		Unused:      tmpl.UnusedVariables(compiled),
	}
	for _, v := range compiled.Variables() {
		report.Variables = append(report.Variables, inspectVariable{
			Name:        v.Name,
			Kind:        string(v.Kind),
			Array:       v.Array,
			Optional:    v.Optional,
			Description: tmpl.Describe(v.Name),
		})
	}
	for _, s := range compiled.Shapes() {
		report.Shapes = append(report.Shapes, inspectShape{
			Constructor: codegen.ConstructorName(typeName, s),
			Signature:   s.Signature(),
			Variadic:    s.Variadic,
		})
	}
	return report, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
