package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/opencode-ai/tmplbind/internal/config"
	"github.com/opencode-ai/tmplbind/internal/templates"
	"github.com/opencode-ai/tmplbind/pkg/tmplbind"
)

// availableTemplates lists configured sources first, then the search paths
// and builtins. The first template of each name wins.
func availableTemplates(cfg *config.Config) ([]*templates.Template, error) {
	seen := make(map[string]struct{})
	var out []*templates.Template
	add := func(found []*templates.Template) {
		for _, tmpl := range found {
			if _, dup := seen[tmpl.Name]; dup {
				continue
			}
			seen[tmpl.Name] = struct{}{}
			out = append(out, tmpl)
		}
	}

	for i, src := range cfg.Sources {
		dir := src.Dir
		if dir == "" {
			dir = "."
		}
		found, err := templates.LoadTemplatesFromDir(cfg.Resolve(dir), src.Pattern)
		if err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		add(found)
	}

	rest, err := templates.LoadTemplatesFromSearchPaths(cfg.ProjectDir)
	if err != nil {
		return nil, err
	}
	add(rest)
	return out, nil
}

// resolveTemplate loads arg as a file when it exists, else looks it up by
// name.
func resolveTemplate(cfg *config.Config, arg string) (*templates.Template, error) {
	arg = strings.TrimSpace(arg)
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return templates.LoadTemplate(arg)
	}

	all, err := availableTemplates(cfg)
	if err != nil {
		return nil, err
	}
	if tmpl, ok := templates.FindTemplate(all, arg); ok {
		return tmpl, nil
	}
	return nil, &PreflightError{
		Message:  fmt.Sprintf("template %q not found", arg),
		Hint:     "Pass a file path or a name shown by the list command",
		NextStep: "tmplbind list",
	}
}

func compileOptions(cfg *config.Config) []tmplbind.CompileOption {
	return []tmplbind.CompileOption{
		tmplbind.WithDefaultKind(cfg.Kind()),
		tmplbind.WithOptionalMode(cfg.Mode()),
	}
}
