package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/tmplbind/internal/config"
)

var (
	initForce  bool
	initGlobal bool

	// configDirFunc locates the user config directory; tests replace it.
	configDirFunc = config.DefaultConfigDir
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing files")
	initCmd.Flags().BoolVar(&initGlobal, "global", false, "write the user config instead of a project config")
}

const configTemplate = `# tmplbind configuration
#
# Environment variables override any value here, e.g. TMPLBIND_PACKAGE=views
# or TMPLBIND_GENERATE_JOBS=8.

# Go package of generated files, unless a source or descriptor overrides it.
package: templates

# exported (NewGreeting) or unexported (newGreeting) identifiers.
visibility: exported

# Kind of variables without a declaration: renderable or text.
default_kind: renderable

# How a name marked optional in some places and required in others combines:
# all (optional only if every occurrence is optional) or strict (error).
optional_mode: all

sources:
  - dir: templates
    pattern: "*.html"
    # package: views
    # visibility: unexported
    # output: internal/views

output:
  suffix: _tmplbind.go
  # header: "Copyright Example Corp."

generate:
  jobs: 4
  cache: true

database:
  path: .tmplbind/cache.db

logging:
  level: info
  format: auto
`

const exampleTemplate = `<p>Hello {{firstName}} {{lastName}}</p>
`

type initResult struct {
	name    string
	status  string // done, skipped, failed
	message string
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration and example template",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := initProjectDir()
		if err != nil {
			return err
		}

		var results []initResult
		if initGlobal {
			results = append(results, createConfigFile())
		} else {
			results = append(results,
				writeInitFile("Project config", filepath.Join(dir, config.FileName), configTemplate),
				writeInitFile("Example template", filepath.Join(dir, "templates", "greeting.html"), exampleTemplate),
				updateGitignore(dir),
			)
		}

		if IsJSONOutput() || IsJSONLOutput() {
			out := make([]map[string]string, 0, len(results))
			for _, r := range results {
				out = append(out, map[string]string{"step": r.name, "status": r.status, "message": r.message})
			}
			return WriteOutput(cmd.OutOrStdout(), out)
		}

		failed := 0
		for _, r := range results {
			label, role := "OK", roleSuccess
			switch r.status {
			case "skipped":
				label, role = "SKIP", roleMuted
			case "failed":
				label, role = "ERR", roleError
				failed++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", colorize(fmt.Sprintf("%-4s", label), role), r.name, r.message)
		}
		if failed > 0 {
			return fmt.Errorf("init: %d step(s) failed", failed)
		}
		return nil
	},
}

func initProjectDir() (string, error) {
	if projectDir != "" {
		return filepath.Abs(projectDir)
	}
	return os.Getwd()
}

// createConfigFile writes the user config.
func createConfigFile() initResult {
	return writeInitFile("User config", filepath.Join(configDirFunc(), "config.yaml"), configTemplate)
}

func writeInitFile(name, path, content string) initResult {
	if _, err := os.Stat(path); err == nil && !initForce {
		ok, err := confirm(fmt.Sprintf("%s exists. Overwrite?", path))
		if err != nil {
			return initResult{name: name, status: "failed", message: err.Error()}
		}
		if !ok {
			return initResult{name: name, status: "skipped", message: path + " already exists (use --force to overwrite)"}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return initResult{name: name, status: "failed", message: fmt.Sprintf("create %s: %v", filepath.Dir(path), err)}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return initResult{name: name, status: "failed", message: fmt.Sprintf("write %s: %v", path, err)}
	}
	return initResult{name: name, status: "done", message: "wrote " + path}
}

// updateGitignore adds the build cache directory to an existing .gitignore.
func updateGitignore(dir string) initResult {
	const name = "Git ignore"
	const entry = ".tmplbind/"
	path := filepath.Join(dir, ".gitignore")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return initResult{name: name, status: "skipped", message: "no .gitignore"}
	}
	if err != nil {
		return initResult{name: name, status: "failed", message: err.Error()}
	}
	for _, line := range strings.Split(string(data), "\n") {
		switch strings.TrimSpace(line) {
		case entry, ".tmplbind", "/.tmplbind/", "/.tmplbind":
			return initResult{name: name, status: "skipped", message: entry + " already ignored"}
		}
	}

	addition := entry + "\n"
	if len(data) > 0 && data[len(data)-1] != '\n' {
		addition = "\n" + addition
	}
	if err := os.WriteFile(path, append(data, addition...), 0o644); err != nil {
		return initResult{name: name, status: "failed", message: err.Error()}
	}
	return initResult{name: name, status: "done", message: "added " + entry}
}
