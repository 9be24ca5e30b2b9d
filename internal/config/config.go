// Package config loads tmplbind configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/opencode-ai/tmplbind/pkg/binding"
)

// FileName is the project configuration file name.
const FileName = "tmplbind.yaml"

// EnvPrefix prefixes environment overrides, e.g. TMPLBIND_PACKAGE.
const EnvPrefix = "TMPLBIND"

// Visibility of generated identifiers.
const (
	VisibilityExported   = "exported"
	VisibilityUnexported = "unexported"
)

// Config is the full tmplbind configuration.
type Config struct {
	Package      string         `mapstructure:"package"`
	Visibility   string         `mapstructure:"visibility"`
	DefaultKind  string         `mapstructure:"default_kind"`
	OptionalMode string         `mapstructure:"optional_mode"`
	Sources      []SourceConfig `mapstructure:"sources"`
	Output       OutputConfig   `mapstructure:"output"`
	Generate     GenerateConfig `mapstructure:"generate"`
	Database     DatabaseConfig `mapstructure:"database"`
	Logging      LoggingConfig  `mapstructure:"logging"`

	// ProjectDir is the directory relative paths resolve against. It is
	// the directory of the loaded file, or the working directory.
	ProjectDir string `mapstructure:"-"`
	// File is the configuration file used, if any.
	File string `mapstructure:"-"`
}

// SourceConfig selects template files and how they are generated.
type SourceConfig struct {
	Dir        string `mapstructure:"dir"`
	Pattern    string `mapstructure:"pattern"`
	Package    string `mapstructure:"package"`
	Visibility string `mapstructure:"visibility"`
	Output     string `mapstructure:"output"`
}

// OutputConfig controls generated files.
type OutputConfig struct {
	Suffix string `mapstructure:"suffix"`
	Header string `mapstructure:"header"`
}

// GenerateConfig controls the generator.
type GenerateConfig struct {
	Jobs  int  `mapstructure:"jobs"`
	Cache bool `mapstructure:"cache"`
}

// DatabaseConfig locates the build cache.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Package:      "templates",
		Visibility:   VisibilityExported,
		DefaultKind:  string(binding.KindRenderable),
		OptionalMode: string(binding.OptionalAll),
		Sources: []SourceConfig{
			{Dir: "templates", Pattern: "*.html"},
		},
		Output: OutputConfig{
			Suffix: "_tmplbind.go",
		},
		Generate: GenerateConfig{
			Jobs:  4,
			Cache: true,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(".tmplbind", "cache.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("package", cfg.Package)
	v.SetDefault("visibility", cfg.Visibility)
	v.SetDefault("default_kind", cfg.DefaultKind)
	v.SetDefault("optional_mode", cfg.OptionalMode)
	v.SetDefault("output.suffix", cfg.Output.Suffix)
	v.SetDefault("output.header", cfg.Output.Header)
	v.SetDefault("generate.jobs", cfg.Generate.Jobs)
	v.SetDefault("generate.cache", cfg.Generate.Cache)
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}

// Load reads configuration. An explicit path must exist; otherwise the
// project file and then the user file are tried, and defaults apply when
// neither exists. Environment variables override file values.
func Load(path, projectDir string) (*Config, error) {
	defaults := DefaultConfig()

	v := viper.New()
	setDefaults(v, defaults)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	file := strings.TrimSpace(path)
	if file == "" {
		file = findConfigFile(projectDir)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if !v.IsSet("sources") {
		cfg.Sources = defaults.Sources
	}

	cfg.File = file
	cfg.ProjectDir = projectDir
	if cfg.ProjectDir == "" && path != "" {
		cfg.ProjectDir = filepath.Dir(file)
	}
	if cfg.ProjectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		cfg.ProjectDir = wd
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile(projectDir string) string {
	var candidates []string
	if projectDir != "" {
		candidates = append(candidates, filepath.Join(projectDir, FileName))
	}
	candidates = append(candidates, filepath.Join(DefaultConfigDir(), "config.yaml"))

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// DefaultConfigDir returns the user configuration directory for tmplbind.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tmplbind")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "tmplbind")
	}
	return filepath.Join(home, ".config", "tmplbind")
}

// Validate checks enum values and required fields.
func (c *Config) Validate() error {
	var errs []error

	if err := validateVisibility(c.Visibility); err != nil {
		errs = append(errs, err)
	}
	if _, err := binding.ParseKind(c.DefaultKind); err != nil {
		errs = append(errs, fmt.Errorf("default_kind: %w", err))
	}
	if _, err := binding.ParseOptionalMode(c.OptionalMode); err != nil {
		errs = append(errs, fmt.Errorf("optional_mode: %w", err))
	}
	if strings.TrimSpace(c.Package) == "" {
		errs = append(errs, errors.New("package is required"))
	}
	if c.Generate.Jobs < 0 {
		errs = append(errs, errors.New("generate.jobs must not be negative"))
	}
	if !strings.HasSuffix(c.Output.Suffix, ".go") {
		errs = append(errs, fmt.Errorf("output.suffix %q must end in .go", c.Output.Suffix))
	}

	for i, src := range c.Sources {
		if strings.TrimSpace(src.Pattern) == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: pattern is required", i))
		} else if _, err := filepath.Match(src.Pattern, ""); err != nil {
			errs = append(errs, fmt.Errorf("sources[%d]: invalid pattern %q: %w", i, src.Pattern, err))
		}
		if src.Visibility != "" {
			if err := validateVisibility(src.Visibility); err != nil {
				errs = append(errs, fmt.Errorf("sources[%d]: %w", i, err))
			}
		}
	}

	return errors.Join(errs...)
}

func validateVisibility(value string) error {
	switch value {
	case VisibilityExported, VisibilityUnexported:
		return nil
	default:
		return fmt.Errorf("visibility must be %q or %q, got %q", VisibilityExported, VisibilityUnexported, value)
	}
}

// Kind returns the parsed default kind.
func (c *Config) Kind() binding.Kind {
	kind, _ := binding.ParseKind(c.DefaultKind)
	if kind == binding.KindUnset {
		return binding.KindRenderable
	}
	return kind
}

// Mode returns the parsed optional mode.
func (c *Config) Mode() binding.OptionalMode {
	mode, _ := binding.ParseOptionalMode(c.OptionalMode)
	return mode
}

// Resolve makes p absolute against the project directory.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.ProjectDir, p)
}

// DatabasePath returns the absolute build cache path.
func (c *Config) DatabasePath() string {
	return c.Resolve(c.Database.Path)
}
