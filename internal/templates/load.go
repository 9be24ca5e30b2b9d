package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadTemplate reads a single template from disk. Files with a .yaml or
// .yml extension are descriptors; anything else is raw template text named
// after the file without its extension.
func LoadTemplate(path string) (*Template, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("template path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}

	if !isDescriptor(path) {
		return &Template{
			Name:   logicalName(path),
			Body:   string(data),
			Source: path,
		}, nil
	}

	tmpl, err := parseTemplate(data)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", path, err)
	}
	if tmpl.File != "" {
		file := tmpl.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(filepath.Dir(path), file)
		}
		body, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read template body %s: %w", file, err)
		}
		tmpl.Body = string(body)
	}
	tmpl.Source = path
	return tmpl, nil
}

// LoadTemplatesFromDir loads the templates of dir whose file names match
// pattern ("*" when empty). A missing directory yields no templates.
func LoadTemplatesFromDir(dir, pattern string) ([]*Template, error) {
	if strings.TrimSpace(dir) == "" {
		return []*Template{}, nil
	}
	if pattern == "" {
		pattern = "*"
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Template{}, nil
		}
		return nil, fmt.Errorf("read templates dir %s: %w", dir, err)
	}

	templates := make([]*Template, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.EqualFold(filepath.Ext(name), ".go") {
			continue
		}
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", pattern, err)
		}
		if !matched {
			continue
		}
		tmpl, err := LoadTemplate(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		templates = append(templates, tmpl)
	}

	sort.Slice(templates, func(i, j int) bool {
		if templates[i].Name == templates[j].Name {
			return templates[i].Source < templates[j].Source
		}
		return templates[i].Name < templates[j].Name
	})

	return templates, nil
}

func parseTemplate(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, err
	}

	tmpl.Name = strings.TrimSpace(tmpl.Name)
	if tmpl.Name == "" {
		return nil, fmt.Errorf("template name is required")
	}
	tmpl.Description = strings.TrimSpace(tmpl.Description)
	tmpl.Package = strings.TrimSpace(tmpl.Package)
	tmpl.Visibility = strings.TrimSpace(tmpl.Visibility)
	tmpl.File = strings.TrimSpace(tmpl.File)

	if tmpl.Body != "" && tmpl.File != "" {
		return nil, fmt.Errorf("template %q sets both body and file", tmpl.Name)
	}

	// Repeated names are kept; disagreeing kinds surface at compile time.
	for i := range tmpl.Variables {
		name := strings.TrimSpace(tmpl.Variables[i].Name)
		if name == "" {
			return nil, fmt.Errorf("template variable name is required")
		}
		tmpl.Variables[i].Name = name
	}

	return &tmpl, nil
}

func isDescriptor(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func logicalName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
