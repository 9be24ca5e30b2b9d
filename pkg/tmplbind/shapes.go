package tmplbind

import (
	"strings"

	"github.com/opencode-ai/tmplbind/pkg/binding"
)

// Param is one parameter of an accepted input shape. For list variables
// Kind is the element kind the caller supplies; for scalars it is the
// variable's own kind.
type Param struct {
	Variable binding.Variable `json:"variable" yaml:"variable"`
	Kind     binding.Kind     `json:"kind" yaml:"kind"`
}

// InputShape is one accepted combination of parameter kinds. Every shape
// of a template renders identically for equivalent values.
type InputShape struct {
	Params []Param `json:"params" yaml:"params"`
	// Variadic is set when the only parameter is a required list, which
	// callers may then pass element by element.
	Variadic bool `json:"variadic" yaml:"variadic"`
}

// TextLists returns the names of list parameters supplied as text, in
// parameter order.
func (s InputShape) TextLists() []string {
	var names []string
	for _, p := range s.Params {
		if p.Variable.Array && p.Kind == binding.KindText {
			names = append(names, p.Variable.Name)
		}
	}
	return names
}

// Signature describes the shape, e.g. "(items ...text)".
func (s InputShape) Signature() string {
	parts := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		var b strings.Builder
		b.WriteString(p.Variable.Name)
		b.WriteString(" ")
		switch {
		case p.Variable.Array && s.Variadic:
			b.WriteString("...")
		case p.Variable.Array:
			b.WriteString("[]")
		}
		b.WriteString(string(p.Kind))
		if p.Variable.Optional {
			b.WriteString("?")
		}
		parts = append(parts, b.String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Shapes enumerates the accepted input shapes of a manifest: the cross
// product of {renderable list, text list} over its list variables, so a
// manifest with k renderable lists yields 2^k shapes. Renderable variants
// come first. A list declared as text only accepts text.
func Shapes(vars []binding.Variable) []InputShape {
	variadic := len(vars) == 1 && vars[0].Array && !vars[0].Optional

	var shapes []InputShape
	params := make([]Param, len(vars))
	var walk func(i int)
	walk = func(i int) {
		if i == len(vars) {
			shape := InputShape{Params: make([]Param, len(params)), Variadic: variadic}
			copy(shape.Params, params)
			shapes = append(shapes, shape)
			return
		}
		v := vars[i]
		if !v.Array {
			params[i] = Param{Variable: v, Kind: v.Kind}
			walk(i + 1)
			return
		}
		for _, kind := range listKinds(v) {
			params[i] = Param{Variable: v, Kind: kind}
			walk(i + 1)
		}
	}
	walk(0)
	return shapes
}

func listKinds(v binding.Variable) []binding.Kind {
	if v.Kind == binding.KindText {
		return []binding.Kind{binding.KindText}
	}
	return []binding.Kind{binding.KindRenderable, binding.KindText}
}
