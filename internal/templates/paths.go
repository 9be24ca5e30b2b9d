package templates

import (
	"os"
	"path/filepath"
)

// TemplateSearchPaths returns template search directories in precedence order.
func TemplateSearchPaths(projectDir string) []string {
	paths := make([]string, 0, 3)
	if projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, ".tmplbind", "templates"))
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".config", "tmplbind", "templates"))
	}

	paths = append(paths, filepath.Join(string(filepath.Separator), "usr", "share", "tmplbind", "templates"))
	return paths
}

// LoadTemplatesFromSearchPaths loads templates from the search paths and
// then the builtins, first hit per name winning.
func LoadTemplatesFromSearchPaths(projectDir string) ([]*Template, error) {
	return loadFirstHit(TemplateSearchPaths(projectDir))
}

func loadFirstHit(paths []string) ([]*Template, error) {
	seen := make(map[string]*Template)
	order := make([]string, 0)

	add := func(templates []*Template) {
		for _, tmpl := range templates {
			if _, exists := seen[tmpl.Name]; exists {
				continue
			}
			seen[tmpl.Name] = tmpl
			order = append(order, tmpl.Name)
		}
	}

	for _, path := range paths {
		templates, err := LoadTemplatesFromDir(path, "*")
		if err != nil {
			return nil, err
		}
		add(templates)
	}

	builtins, err := LoadBuiltinTemplates()
	if err != nil {
		return nil, err
	}
	add(builtins)

	resolved := make([]*Template, 0, len(order))
	for _, name := range order {
		resolved = append(resolved, seen[name])
	}
	return resolved, nil
}
