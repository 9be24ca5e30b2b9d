// Package tmplbind compiles placeholder templates into a typed manifest and
// renders them.
//
//	t, err := tmplbind.Compile("<p>Hello {{firstName}} {{lastName}}</p>")
//	if err != nil {
//		return err
//	}
//	out, err := t.Render(tmplbind.Bindings{
//		"firstName": tmplbind.String("Bob"),
//		"lastName":  tmplbind.String("Smith"),
//	})
//
// A compiled Template is immutable and safe for concurrent use.
package tmplbind

import (
	"io"
	"strings"

	"github.com/opencode-ai/tmplbind/pkg/binding"
	"github.com/opencode-ai/tmplbind/pkg/placeholder"
)

// Separator joins the rendered elements of a list variable.
const Separator = " "

type compileOptions struct {
	pattern  *placeholder.Pattern
	resolver []binding.Option
}

// CompileOption configures Compile.
type CompileOption func(*compileOptions)

// WithPattern replaces the placeholder grammar.
func WithPattern(p *placeholder.Pattern) CompileOption {
	return func(o *compileOptions) {
		if p != nil {
			o.pattern = p
		}
	}
}

// WithDeclarations declares variable kinds.
func WithDeclarations(decls ...binding.Declaration) CompileOption {
	return func(o *compileOptions) {
		o.resolver = append(o.resolver, binding.WithDeclarations(decls...))
	}
}

// WithDefaultKind sets the kind of undeclared variables.
func WithDefaultKind(kind binding.Kind) CompileOption {
	return func(o *compileOptions) {
		o.resolver = append(o.resolver, binding.WithDefaultKind(kind))
	}
}

// WithOptionalMode sets how optional markers of repeated names combine.
func WithOptionalMode(mode binding.OptionalMode) CompileOption {
	return func(o *compileOptions) {
		o.resolver = append(o.resolver, binding.WithOptionalMode(mode))
	}
}

// Template is a compiled template: its raw text, variable manifest and
// accepted input shapes.
type Template struct {
	raw       string
	pattern   *placeholder.Pattern
	variables []binding.Variable
	index     map[string]int
	shapes    []InputShape
}

// Compile extracts and resolves the placeholders of text. Shape, type and
// optionality conflicts are returned as *binding.ConflictError and no
// template is built.
func Compile(text string, opts ...CompileOption) (*Template, error) {
	o := compileOptions{pattern: placeholder.Default}
	for _, opt := range opts {
		opt(&o)
	}

	vars, err := binding.Resolve(o.pattern.Extract(text), o.resolver...)
	if err != nil {
		return nil, err
	}
	return newTemplate(text, o.pattern, vars), nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(text string, opts ...CompileOption) *Template {
	t, err := Compile(text, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// FromManifest builds a template from text and a previously resolved
// manifest without re-resolving. Placeholders of text missing from vars
// fail at render time with ErrUnknownPlaceholder.
func FromManifest(text string, vars []binding.Variable, opts ...CompileOption) *Template {
	o := compileOptions{pattern: placeholder.Default}
	for _, opt := range opts {
		opt(&o)
	}
	owned := make([]binding.Variable, len(vars))
	copy(owned, vars)
	return newTemplate(text, o.pattern, owned)
}

func newTemplate(text string, pattern *placeholder.Pattern, vars []binding.Variable) *Template {
	index := make(map[string]int, len(vars))
	for i, v := range vars {
		index[v.Name] = i
	}
	return &Template{
		raw:       text,
		pattern:   pattern,
		variables: vars,
		index:     index,
		shapes:    Shapes(vars),
	}
}

// Raw returns the template text.
func (t *Template) Raw() string { return t.raw }

// Variables returns the manifest in first-occurrence order.
func (t *Template) Variables() []binding.Variable {
	out := make([]binding.Variable, len(t.variables))
	copy(out, t.variables)
	return out
}

// Variable returns the variable named name.
func (t *Template) Variable(name string) (binding.Variable, bool) {
	i, ok := t.index[name]
	if !ok {
		return binding.Variable{}, false
	}
	return t.variables[i], true
}

// Shapes returns the accepted input shapes computed at compile time.
func (t *Template) Shapes() []InputShape {
	out := make([]InputShape, len(t.shapes))
	for i, s := range t.shapes {
		out[i] = InputShape{Params: append([]Param(nil), s.Params...), Variadic: s.Variadic}
	}
	return out
}

// Render substitutes bindings into the template text.
func (t *Template) Render(b Bindings) (string, error) {
	rendered := make(map[string]string, len(t.variables))
	return t.pattern.Replace(t.raw, func(occ placeholder.Occurrence) (string, error) {
		if text, ok := rendered[occ.Name]; ok {
			return text, nil
		}
		i, ok := t.index[occ.Name]
		if !ok {
			return "", &RenderError{Name: occ.Name, Err: ErrUnknownPlaceholder}
		}
		text, err := renderVariable(t.variables[i], b)
		if err != nil {
			return "", &RenderError{Name: occ.Name, Err: err}
		}
		rendered[occ.Name] = text
		return text, nil
	})
}

// RenderTo renders into w.
func (t *Template) RenderTo(w io.Writer, b Bindings) error {
	out, err := t.Render(b)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// MustRender is like Render but panics on error.
func (t *Template) MustRender(b Bindings) string {
	out, err := t.Render(b)
	if err != nil {
		panic(err)
	}
	return out
}

// Bind returns a Renderer rendering t with b, for use as a nested value.
func (t *Template) Bind(b Bindings) Renderer {
	return RendererFunc(func() (string, error) {
		return t.Render(b)
	})
}

func renderVariable(v binding.Variable, b Bindings) (string, error) {
	bound, ok := b[v.Name]
	if !ok || (!bound.list && len(bound.values) == 0) {
		if v.Optional {
			return "", nil
		}
		return "", ErrMissingBinding
	}
	if bound.list != v.Array {
		return "", ErrBindingShape
	}

	parts := make([]string, 0, len(bound.values))
	for _, value := range bound.values {
		if value == nil {
			parts = append(parts, "")
			continue
		}
		if v.Kind == binding.KindText && value.Kind() != binding.KindText {
			return "", ErrBindingKind
		}
		text, err := value.text()
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	if !v.Array {
		return parts[0], nil
	}
	return strings.Join(parts, Separator), nil
}
