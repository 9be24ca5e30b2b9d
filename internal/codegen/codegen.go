// Package codegen emits Go source for compiled templates: one type per
// template with a constructor for every accepted input shape.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"strconv"
	"strings"
	"text/template"

	"github.com/opencode-ai/tmplbind/pkg/binding"
	"github.com/opencode-ai/tmplbind/pkg/tmplbind"
)

// RuntimeImport is the import path generated code depends on.
const RuntimeImport = "github.com/opencode-ai/tmplbind/pkg/tmplbind"

// BindingImport is the import path of the manifest types.
const BindingImport = "github.com/opencode-ai/tmplbind/pkg/binding"

// Options controls the emitted file.
type Options struct {
	Package  string
	Exported bool
	// Header is extra comment text placed above the package clause.
	Header string
}

// Input is one compiled template to emit.
type Input struct {
	Name        string
	Description string
	// Source is recorded in the generated-code marker.
	Source   string
	Template *tmplbind.Template
	// Describe returns documentation for a variable, if any.
	Describe func(name string) string
}

type fileData struct {
	Source      string
	Header      []string
	Package     string
	Type        string
	Doc         string
	Raw         string
	Compiled    string
	Manifest    string
	Fields      bool
	Constructor []constructorData
}

type constructorData struct {
	Name   string
	Doc    []string
	Params string
	Assign []assignData
}

type assignData struct {
	Key      string
	Expr     string
	Optional bool
	Param    string
}

var fileTemplate = template.Must(template.New("file").Parse(`// Code generated by tmplbind from {{.Source}}. DO NOT EDIT.
{{range .Header}}
// {{.}}{{end}}

package {{.Package}}

import (
	"` + BindingImport + `"
	"` + RuntimeImport + `"
)

// {{.Type}}Template is the raw text of {{.Type}}.
const {{.Type}}Template = {{.Raw}}

// {{.Type}}Variables is the variable manifest of {{.Type}}.
var {{.Type}}Variables = []binding.Variable{{.Manifest}}

var {{.Compiled}} = tmplbind.FromManifest({{.Type}}Template, {{.Type}}Variables)

// {{.Doc}}
type {{.Type}} struct {
	bindings tmplbind.Bindings
}

var _ tmplbind.Renderer = (*{{.Type}})(nil)
{{range .Constructor}}
{{range .Doc}}// {{.}}
{{end -}}
func {{.Name}}({{.Params}}) *{{$.Type}} {
{{- if $.Fields}}
	bindings := make(tmplbind.Bindings, {{len .Assign}})
{{- range .Assign}}
{{- if .Optional}}
	if {{.Param}} != nil {
		bindings[{{.Key}}] = {{.Expr}}
	}
{{- else}}
	bindings[{{.Key}}] = {{.Expr}}
{{- end}}
{{- end}}
	return &{{$.Type}}{bindings: bindings}
{{- else}}
	return &{{$.Type}}{}
{{- end}}
}
{{end}}
// Render renders the template with the constructor arguments.
func (t *{{.Type}}) Render() (string, error) {
	return {{.Compiled}}.Render(t.bindings)
}
`))

// Generate returns gofmt-formatted Go source for in.
func Generate(in Input, opts Options) ([]byte, error) {
	if in.Template == nil {
		return nil, fmt.Errorf("template %q is not compiled", in.Name)
	}
	if !token.IsIdentifier(opts.Package) {
		return nil, fmt.Errorf("%w: package %q", ErrInvalidIdentifier, opts.Package)
	}

	typeName, err := TypeName(in.Name, opts.Exported)
	if err != nil {
		return nil, err
	}

	vars := in.Template.Variables()
	data := fileData{
		Source:   in.Source,
		Header:   headerLines(opts.Header),
		Package:  opts.Package,
		Type:     typeName,
		Doc:      typeDoc(typeName, in.Description),
		Raw:      strconv.Quote(in.Template.Raw()),
		Compiled: compiledName(typeName),
		Fields:   len(vars) > 0,
	}
	if data.Source == "" {
		data.Source = in.Name
	}
	data.Manifest = manifest(vars)
	for _, shape := range in.Template.Shapes() {
		data.Constructor = append(data.Constructor, constructor(typeName, shape, in.Describe))
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("emit %s: %w", typeName, err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", typeName, err)
	}
	return src, nil
}

func headerLines(header string) []string {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil
	}
	lines := strings.Split(header, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "//"))
	}
	return lines
}

func typeDoc(typeName, description string) string {
	description = strings.Join(strings.Fields(description), " ")
	if description == "" {
		return typeName + " renders " + typeName + "Template."
	}
	return typeName + " renders " + typeName + "Template. " + description
}

// manifest renders the composite literal body of the variable manifest.
func manifest(vars []binding.Variable) string {
	if len(vars) == 0 {
		return "{}"
	}
	var b strings.Builder
	b.WriteString("{\n")
	for _, v := range vars {
		fmt.Fprintf(&b, "\t{Name: %s, Kind: %s, Array: %t, Optional: %t},\n",
			strconv.Quote(v.Name), kindConst(v.Kind), v.Array, v.Optional)
	}
	b.WriteString("}")
	return b.String()
}

func kindConst(kind binding.Kind) string {
	if kind == binding.KindText {
		return "binding.KindText"
	}
	return "binding.KindRenderable"
}

// ConstructorName is New<T> for the all-renderable shape, and names each
// list that could be renderable but is supplied as text otherwise.
func ConstructorName(typeName string, shape tmplbind.InputShape) string {
	var suffix strings.Builder
	for _, p := range shape.Params {
		if !p.Variable.Array || p.Variable.Kind == binding.KindText || p.Kind != binding.KindText {
			continue
		}
		suffix.WriteString(upperFirst(p.Variable.Name))
		suffix.WriteString("Text")
	}
	name := constructorPrefix(typeName)
	if suffix.Len() > 0 {
		name += "With" + suffix.String()
	}
	return name
}

func constructor(typeName string, shape tmplbind.InputShape, describe func(string) string) constructorData {
	c := constructorData{Name: ConstructorName(typeName, shape)}
	c.Doc = append(c.Doc, fmt.Sprintf("%s builds %s from %s.", c.Name, typeName, shape.Signature()))

	taken := make(map[string]struct{}, len(shape.Params))
	params := make([]string, 0, len(shape.Params))
	for _, p := range shape.Params {
		name := paramName(p.Variable.Name, typeName, taken)
		goType, expr := paramType(p, name, shape.Variadic)
		params = append(params, name+" "+goType)
		c.Assign = append(c.Assign, assignData{
			Key:      strconv.Quote(p.Variable.Name),
			Expr:     expr,
			Optional: p.Variable.Optional,
			Param:    name,
		})
		if describe != nil {
			if doc := strings.Join(strings.Fields(describe(p.Variable.Name)), " "); doc != "" {
				c.Doc = append(c.Doc, fmt.Sprintf("%s: %s", name, doc))
			}
		}
	}
	c.Params = strings.Join(params, ", ")
	return c
}

// paramType returns the Go parameter type of p and the expression turning
// the parameter into a tmplbind.Binding.
func paramType(p tmplbind.Param, name string, variadic bool) (string, string) {
	text := p.Kind == binding.KindText
	switch {
	case p.Variable.Array:
		elem, expr := "tmplbind.Renderer", "tmplbind.Nodes("+name+"...)"
		if text {
			elem, expr = "string", "tmplbind.Strings("+name+"...)"
		}
		if variadic {
			return "..." + elem, expr
		}
		return "[]" + elem, expr
	case text && p.Variable.Optional:
		return "*string", "tmplbind.String(*" + name + ")"
	case text:
		return "string", "tmplbind.String(" + name + ")"
	default:
		return "tmplbind.Renderer", "tmplbind.Nested(" + name + ")"
	}
}
