package templates

import (
	"fmt"

	"github.com/opencode-ai/tmplbind/pkg/binding"
	"github.com/opencode-ai/tmplbind/pkg/tmplbind"
)

// Declarations returns the kind declarations of the template's variables.
func (t *Template) Declarations() ([]binding.Declaration, error) {
	decls := make([]binding.Declaration, 0, len(t.Variables))
	for _, v := range t.Variables {
		kind, err := binding.ParseKind(v.Kind)
		if err != nil {
			return nil, fmt.Errorf("template %q variable %q: %w", t.Name, v.Name, err)
		}
		decls = append(decls, binding.Declaration{Name: v.Name, Kind: kind})
	}
	return decls, nil
}

// Compile compiles the template body with its declarations applied after opts.
func (t *Template) Compile(opts ...tmplbind.CompileOption) (*tmplbind.Template, error) {
	decls, err := t.Declarations()
	if err != nil {
		return nil, err
	}
	opts = append(opts, tmplbind.WithDeclarations(decls...))

	compiled, err := tmplbind.Compile(t.Body, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile template %q: %w", t.Name, err)
	}
	return compiled, nil
}

// UnusedVariables returns declared variables that the body never uses.
func (t *Template) UnusedVariables(compiled *tmplbind.Template) []string {
	decls := make([]binding.Declaration, 0, len(t.Variables))
	for _, v := range t.Variables {
		decls = append(decls, binding.Declaration{Name: v.Name})
	}
	return binding.UnusedDeclarations(compiled.Variables(), decls)
}

// Describe returns the description of variable name, if declared.
func (t *Template) Describe(name string) string {
	for _, v := range t.Variables {
		if v.Name == name && v.Description != "" {
			return v.Description
		}
	}
	return ""
}
