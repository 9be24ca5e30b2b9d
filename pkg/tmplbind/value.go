package tmplbind

import "github.com/opencode-ai/tmplbind/pkg/binding"

// Renderer is implemented by anything that renders itself to text,
// including *Template bound to its values and generated template types.
type Renderer interface {
	Render() (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func() (string, error)

// Render calls f.
func (f RendererFunc) Render() (string, error) { return f() }

// Value is a single bound value. It is either Text or Node.
type Value interface {
	Kind() binding.Kind
	text() (string, error)
}

// Text is a value that is already a string.
type Text string

// Kind reports KindText.
func (Text) Kind() binding.Kind { return binding.KindText }

func (t Text) text() (string, error) { return string(t), nil }

// Node is a value that renders itself.
type Node struct {
	Renderer Renderer
}

// Kind reports KindRenderable.
func (Node) Kind() binding.Kind { return binding.KindRenderable }

func (n Node) text() (string, error) {
	if n.Renderer == nil {
		return "", nil
	}
	return n.Renderer.Render()
}

// Binding is the value supplied for one variable: a scalar or a list.
type Binding struct {
	values []Value
	list   bool
}

// Scalar binds a single value.
func Scalar(v Value) Binding {
	return Binding{values: []Value{v}}
}

// String binds a single string.
func String(s string) Binding {
	return Scalar(Text(s))
}

// Nested binds a single renderer. A nil renderer binds nothing, so a
// required variable bound to nil fails with ErrMissingBinding.
func Nested(r Renderer) Binding {
	if r == nil {
		return Binding{}
	}
	return Scalar(Node{Renderer: r})
}

// List binds a list of values. An empty list is present but renders as "".
func List(values ...Value) Binding {
	if values == nil {
		values = []Value{}
	}
	return Binding{values: values, list: true}
}

// Strings binds a list of strings.
func Strings(items ...string) Binding {
	values := make([]Value, len(items))
	for i, item := range items {
		values[i] = Text(item)
	}
	return List(values...)
}

// Nodes binds a list of renderers.
func Nodes(items ...Renderer) Binding {
	values := make([]Value, len(items))
	for i, item := range items {
		values[i] = Node{Renderer: item}
	}
	return List(values...)
}

// IsList reports whether b binds a list.
func (b Binding) IsList() bool { return b.list }

// Values returns the bound values.
func (b Binding) Values() []Value {
	out := make([]Value, len(b.values))
	copy(out, b.values)
	return out
}

// Append returns b with more values. A scalar binding becomes a list.
func (b Binding) Append(values ...Value) Binding {
	merged := make([]Value, 0, len(b.values)+len(values))
	merged = append(merged, b.values...)
	merged = append(merged, values...)
	return List(merged...)
}

// Bindings maps variable names to their values.
type Bindings map[string]Binding
