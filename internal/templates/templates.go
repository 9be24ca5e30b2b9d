// Package templates loads template sources: raw text files and YAML
// descriptors that name a template and declare its variable kinds.
package templates

// Template is a template source before compilation.
type Template struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Package     string        `yaml:"package,omitempty"`
	Visibility  string        `yaml:"visibility,omitempty"`
	Body        string        `yaml:"body,omitempty"`
	File        string        `yaml:"file,omitempty"`
	Variables   []TemplateVar `yaml:"variables,omitempty"`
	Tags        []string      `yaml:"tags,omitempty"`
	Source      string        `yaml:"-"` // file path or "builtin"
}

// TemplateVar declares a variable used in a template.
type TemplateVar struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Kind        string `yaml:"kind,omitempty"`
}

// SourceBuiltin marks templates bundled with the binary.
const SourceBuiltin = "builtin"

// IsBuiltin reports whether the template was bundled with the binary.
func (t *Template) IsBuiltin() bool {
	return t.Source == SourceBuiltin
}

// FindTemplate returns the template named name.
func FindTemplate(templates []*Template, name string) (*Template, bool) {
	for _, tmpl := range templates {
		if tmpl.Name == name {
			return tmpl, true
		}
	}
	return nil, false
}
