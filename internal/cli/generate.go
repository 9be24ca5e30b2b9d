package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/tmplbind/internal/config"
	"github.com/opencode-ai/tmplbind/internal/db"
	"github.com/opencode-ai/tmplbind/internal/generator"
)

var (
	generateForce   bool
	generateDryRun  bool
	generatePrune   bool
	generateJobs    int
	generatePattern string
)

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().BoolVarP(&generateForce, "force", "f", false, "regenerate even when the cache says outputs are current")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "compile and emit without writing files")
	generateCmd.Flags().BoolVar(&generatePrune, "prune", false, "remove outputs of templates that no longer exist")
	generateCmd.Flags().IntVarP(&generateJobs, "jobs", "j", 0, "templates processed in parallel (default from config)")
	generateCmd.Flags().StringVar(&generatePattern, "pattern", "", "file pattern for directories given as arguments")
}

type generateResult struct {
	Name      string   `json:"name"`
	Source    string   `json:"source"`
	Output    string   `json:"output"`
	Status    string   `json:"status"`
	Reason    string   `json:"reason,omitempty"`
	Error     string   `json:"error,omitempty"`
	Variables int      `json:"variables"`
	Shapes    int      `json:"shapes"`
	Unused    []string `json:"unused,omitempty"`
}

type generateSummary struct {
	RunID    string           `json:"run_id"`
	Compiled int              `json:"compiled"`
	Skipped  int              `json:"skipped"`
	Failed   int              `json:"failed"`
	Pruned   []string         `json:"pruned,omitempty"`
	Duration string           `json:"duration"`
	Results  []generateResult `json:"results"`
}

var generateCmd = &cobra.Command{
	Use:   "generate [dir...]",
	Short: "Generate Go types for every configured template",
	Long: `Generate compiles every template matched by the configured sources and
writes one Go file per template. Directories given as arguments replace the
configured sources.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := requireConfig()
		if err != nil {
			return err
		}
		cfg := generateConfig(base, args)

		opts := []generator.Option{
			generator.WithForce(generateForce),
			generator.WithDryRun(generateDryRun),
			generator.WithPrune(generatePrune),
		}
		if !generateDryRun {
			database, err := openDatabase()
			if err != nil {
				return err
			}
			defer database.Close()
			opts = append(opts,
				generator.WithArtifacts(db.NewArtifactRepository(database)),
				generator.WithEvents(db.NewEventRepository(database)),
			)
		}

		progress := startProgress("Generating templates")
		report, err := generator.New(cfg, opts...).Run(cmd.Context())
		if err != nil {
			progress.Fail(err)
			return err
		}
		compiled, skipped, failed := report.Counts()
		progress.Done(fmt.Sprintf("%d compiled, %d skipped, %d failed", compiled, skipped, failed))

		summary := summarize(report)
		if IsJSONOutput() || IsJSONLOutput() {
			if err := WriteOutput(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
			return report.Err()
		}

		if generateDryRun {
			for _, res := range report.Results {
				if len(res.Code) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "// ==> %s\n%s\n", res.OutputPath, res.Code)
				}
			}
		}

		rows := make([][]string, 0, len(summary.Results))
		for i, res := range summary.Results {
			output := res.Output
			if rel, err := filepath.Rel(cfg.ProjectDir, output); err == nil {
				output = rel
			}
			rows = append(rows, []string{res.Name, output, strconv.Itoa(res.Shapes), formatResultStatus(report.Results[i].Status)})
		}
		if len(rows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No templates matched the configured sources.")
		} else if err := writeTable(cmd.OutOrStdout(), []string{"TEMPLATE", "OUTPUT", "SHAPES", "STATUS"}, rows); err != nil {
			return err
		}

		for _, res := range report.Results {
			if res.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", colorize("error:", roleError), res.Name, res.Err)
			}
			for _, name := range res.Unused {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: declared variable %q is not used\n", colorize("warning:", roleWarning), res.Name, name)
			}
		}
		for _, path := range report.Pruned {
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", path)
		}
		return report.Err()
	},
}

// generateConfig applies command-line overrides to a copy of cfg.
func generateConfig(base *config.Config, dirs []string) *config.Config {
	cfg := *base
	if generateJobs > 0 {
		cfg.Generate.Jobs = generateJobs
	}
	if len(dirs) == 0 {
		return &cfg
	}

	pattern := generatePattern
	if pattern == "" && len(base.Sources) > 0 {
		pattern = base.Sources[0].Pattern
	}
	if pattern == "" {
		pattern = "*"
	}
	cfg.Sources = make([]config.SourceConfig, 0, len(dirs))
	for _, dir := range dirs {
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		cfg.Sources = append(cfg.Sources, config.SourceConfig{Dir: dir, Pattern: pattern})
	}
	return &cfg
}

func summarize(report *generator.Report) generateSummary {
	compiled, skipped, failed := report.Counts()
	summary := generateSummary{
		RunID:    report.RunID,
		Compiled: compiled,
		Skipped:  skipped,
		Failed:   failed,
		Pruned:   report.Pruned,
		Duration: formatDuration(report.Duration),
		Results:  make([]generateResult, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		entry := generateResult{
			Name:      res.Name,
			Source:    res.SourcePath,
			Output:    res.OutputPath,
			Status:    string(res.Status),
			Reason:    res.Reason,
			Variables: len(res.Variables),
			Shapes:    res.Shapes,
			Unused:    res.Unused,
		}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		summary.Results = append(summary.Results, entry)
	}
	return summary
}
