package binding

import (
	"fmt"
	"strings"

	"github.com/opencode-ai/tmplbind/pkg/placeholder"
)

// OptionalMode selects how optional markers of repeated names combine.
type OptionalMode string

const (
	// OptionalAll makes a variable optional only when every occurrence
	// carries the "?" marker. A single bare occurrence makes it required.
	OptionalAll OptionalMode = "all"
	// OptionalStrict requires every occurrence to agree on the marker.
	OptionalStrict OptionalMode = "strict"
)

// ParseOptionalMode parses a mode name. The empty string yields OptionalAll.
func ParseOptionalMode(value string) (OptionalMode, error) {
	switch OptionalMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", OptionalAll:
		return OptionalAll, nil
	case OptionalStrict:
		return OptionalStrict, nil
	default:
		return "", fmt.Errorf("unknown optional mode %q", value)
	}
}

type options struct {
	defaultKind  Kind
	optionalMode OptionalMode
	declarations map[string][]Kind
}

// Option configures Resolve.
type Option func(*options)

// WithDefaultKind sets the kind of variables without a declaration.
func WithDefaultKind(kind Kind) Option {
	return func(o *options) {
		if kind != KindUnset {
			o.defaultKind = kind
		}
	}
}

// WithOptionalMode sets how optional markers combine.
func WithOptionalMode(mode OptionalMode) Option {
	return func(o *options) {
		if mode != "" {
			o.optionalMode = mode
		}
	}
}

// WithDeclarations adds kind declarations. Declarations with KindUnset are ignored.
func WithDeclarations(decls ...Declaration) Option {
	return func(o *options) {
		for _, d := range decls {
			if d.Kind == KindUnset {
				continue
			}
			o.declarations[d.Name] = append(o.declarations[d.Name], d.Kind)
		}
	}
}

type group struct {
	name      string
	arrays    []bool
	optionals []bool
	spans     []placeholder.Span
}

// Resolve groups occurrences by name and unifies each group into one
// Variable. Output order follows the first occurrence of each name.
//
// The first conflict in that order is returned and no variables are.
func Resolve(occurrences []placeholder.Occurrence, opts ...Option) ([]Variable, error) {
	o := options{
		defaultKind:  KindRenderable,
		optionalMode: OptionalAll,
		declarations: make(map[string][]Kind),
	}
	for _, opt := range opts {
		opt(&o)
	}

	index := make(map[string]int)
	var groups []*group
	for _, occ := range occurrences {
		i, ok := index[occ.Name]
		if !ok {
			i = len(groups)
			index[occ.Name] = i
			groups = append(groups, &group{name: occ.Name})
		}
		g := groups[i]
		g.arrays = append(g.arrays, occ.Array)
		g.optionals = append(g.optionals, occ.Optional)
		g.spans = append(g.spans, occ.Span)
	}

	vars := make([]Variable, 0, len(groups))
	for _, g := range groups {
		v, err := unify(g, o)
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	return vars, nil
}

func unify(g *group, o options) (Variable, error) {
	if len(distinct(g.arrays)) > 1 {
		return Variable{}, &ConflictError{Name: g.name, Kind: ConflictShape, Spans: g.spans}
	}

	kind := o.defaultKind
	if declared := distinct(o.declarations[g.name]); len(declared) > 1 {
		return Variable{}, &ConflictError{Name: g.name, Kind: ConflictType, Kinds: declared, Spans: g.spans}
	} else if len(declared) == 1 {
		kind = declared[0]
	}

	optional := true
	for _, marked := range g.optionals {
		optional = optional && marked
	}
	if o.optionalMode == OptionalStrict && len(distinct(g.optionals)) > 1 {
		return Variable{}, &ConflictError{Name: g.name, Kind: ConflictOptionality, Spans: g.spans}
	}

	return Variable{
		Name:     g.name,
		Kind:     kind,
		Array:    g.arrays[0],
		Optional: optional,
	}, nil
}

func distinct[T comparable](values []T) []T {
	seen := make(map[T]struct{}, len(values))
	var out []T
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// UnusedDeclarations returns the declared names that no variable uses, in
// declaration order.
func UnusedDeclarations(vars []Variable, decls []Declaration) []string {
	used := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		used[v.Name] = struct{}{}
	}
	seen := make(map[string]struct{})
	var unused []string
	for _, d := range decls {
		if _, ok := used[d.Name]; ok {
			continue
		}
		if _, ok := seen[d.Name]; ok {
			continue
		}
		seen[d.Name] = struct{}{}
		unused = append(unused, d.Name)
	}
	return unused
}
