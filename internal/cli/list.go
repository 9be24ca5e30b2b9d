package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/tmplbind/internal/templates"
)

var (
	listTags        []string
	listBuiltinOnly bool
)

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringSliceVar(&listTags, "tag", nil, "only templates with any of these tags")
	listCmd.Flags().BoolVar(&listBuiltinOnly, "builtin", false, "only bundled templates")
}

type listEntry struct {
	Name        string   `json:"name"`
	Source      string   `json:"source"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Variables   int      `json:"variables"`
	Shapes      int      `json:"shapes"`
	Error       string   `json:"error,omitempty"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List templates from the configured sources, search paths and builtins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		all, err := availableTemplates(cfg)
		if err != nil {
			return err
		}

		items := filterTemplates(all, listTags)
		if listBuiltinOnly {
			builtins := items[:0:0]
			for _, tmpl := range items {
				if tmpl.IsBuiltin() {
					builtins = append(builtins, tmpl)
				}
			}
			items = builtins
		}

		entries := make([]listEntry, 0, len(items))
		for _, tmpl := range items {
			entry := listEntry{
				Name:        tmpl.Name,
				Source:      tmpl.Source,
				Description: tmpl.Description,
				Tags:        tmpl.Tags,
			}
			if compiled, err := tmpl.Compile(compileOptions(cfg)...); err != nil {
				entry.Error = err.Error()
			} else {
				entry.Variables = len(compiled.Variables())
				entry.Shapes = len(compiled.Shapes())
			}
			entries = append(entries, entry)
		}

		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No templates found.")
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			vars, shapes := strconv.Itoa(e.Variables), strconv.Itoa(e.Shapes)
			description := e.Description
			if e.Error != "" {
				vars, shapes, description = "-", "-", "invalid: "+e.Error
			}
			rows = append(rows, []string{e.Name, vars, shapes, e.Source, description})
		}
		return writeTable(cmd.OutOrStdout(), []string{"NAME", "VARS", "SHAPES", "SOURCE", "DESCRIPTION"}, rows)
	},
}

// filterTemplates keeps templates carrying any of tags; no tags keeps all.
func filterTemplates(items []*templates.Template, tags []string) []*templates.Template {
	if len(tags) == 0 {
		return items
	}
	want := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		want[strings.ToLower(strings.TrimSpace(tag))] = struct{}{}
	}
	var out []*templates.Template
	for _, tmpl := range items {
		for _, tag := range tmpl.Tags {
			if _, ok := want[strings.ToLower(tag)]; ok {
				out = append(out, tmpl)
				break
			}
		}
	}
	return out
}
