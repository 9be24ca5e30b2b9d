// Package cli implements the tmplbind command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/opencode-ai/tmplbind/internal/config"
	"github.com/opencode-ai/tmplbind/internal/db"
	"github.com/opencode-ai/tmplbind/internal/logging"
)

var (
	configFile     string
	projectDir     string
	jsonOutput     bool
	jsonlOutput    bool
	logLevel       string
	logFormat      string
	noColor        bool
	noProgress     bool
	nonInteractive bool
	yesFlag        bool

	appConfig *config.Config

	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "tmplbind",
	Short: "Typed constructors for placeholder templates",
	Long: `tmplbind compiles text templates with {{name}}, {{..list}} and {{name?}}
placeholders into Go types whose constructors accept exactly the values the
template needs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput && jsonlOutput {
			return &PreflightError{
				Message: "--json and --jsonl are mutually exclusive",
				Hint:    "Pick one output format",
			}
		}
		if skipsConfig(cmd) {
			initLogging(nil)
			return nil
		}

		cfg, err := config.Load(configFile, projectDir)
		if err != nil {
			initLogging(nil)
			return &PreflightError{
				Message:  fmt.Sprintf("invalid configuration: %v", err),
				Hint:     "Fix tmplbind.yaml or the TMPLBIND_* environment variables",
				NextStep: "tmplbind init --force",
			}
		}
		appConfig = cfg
		initLogging(cfg)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: ./tmplbind.yaml, then $XDG_CONFIG_HOME/tmplbind/config.yaml)")
	flags.StringVarP(&projectDir, "project", "C", "", "project directory (default: current directory)")
	flags.BoolVar(&jsonOutput, "json", false, "output JSON")
	flags.BoolVar(&jsonlOutput, "jsonl", false, "output JSON lines")
	flags.StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "", "log format (console, json, auto)")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.BoolVar(&noProgress, "no-progress", false, "disable progress output")
	flags.BoolVar(&nonInteractive, "non-interactive", false, "never prompt")
	flags.BoolVarP(&yesFlag, "yes", "y", false, "assume yes for confirmations")
}

// Execute runs the root command.
func Execute(v, c, d string) error {
	version, commit, date = v, c, d
	return rootCmd.ExecuteContext(context.Background())
}

// RootCommand returns the root command, for documentation and tests.
func RootCommand() *cobra.Command {
	return rootCmd
}

func skipsConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "init", "help", "completion":
		return true
	}
	return false
}

func initLogging(cfg *config.Config) {
	level, format := "warn", "auto"
	if cfg != nil {
		level, format = cfg.Logging.Level, cfg.Logging.Format
	}
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	logging.Init(logging.Config{Level: level, Format: format, Output: os.Stderr})
}

// GetConfig returns the loaded configuration, or nil before PersistentPreRunE.
func GetConfig() *config.Config {
	return appConfig
}

func requireConfig() (*config.Config, error) {
	if appConfig == nil {
		return nil, errors.New("configuration not loaded")
	}
	return appConfig, nil
}

func openDatabase() (*db.DB, error) {
	cfg, err := requireConfig()
	if err != nil {
		return nil, err
	}
	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return nil, &PreflightError{
			Message: fmt.Sprintf("failed to open build cache: %v", err),
			Hint:    "Check database.path or run with generate.cache disabled",
		}
	}
	if _, err := database.MigrateUp(context.Background()); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate build cache: %w", err)
	}
	return database, nil
}

// IsJSONOutput reports whether --json was given.
func IsJSONOutput() bool {
	return jsonOutput
}

// IsJSONLOutput reports whether --jsonl was given.
func IsJSONLOutput() bool {
	return jsonlOutput
}

// WriteOutput writes v as indented JSON, or as one JSON value per line
// for slices under --jsonl.
func WriteOutput(w io.Writer, v any) error {
	if IsJSONLOutput() {
		return writeJSONLines(w, v)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONLines(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	for _, item := range items {
		if _, err := fmt.Fprintln(w, string(item)); err != nil {
			return err
		}
	}
	return nil
}

// PreflightError is a user-facing error with remediation hints.
type PreflightError struct {
	Message  string
	Hint     string
	NextStep string
}

func (e *PreflightError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Hint != "" {
		b.WriteString("\nHint: ")
		b.WriteString(e.Hint)
	}
	if e.NextStep != "" {
		b.WriteString("\nNext: ")
		b.WriteString(e.NextStep)
	}
	return b.String()
}

// SkipConfirmation reports whether confirmations are answered yes.
func SkipConfirmation() bool {
	return yesFlag
}

func hasTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
