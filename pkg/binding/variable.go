// Package binding unifies placeholder occurrences into typed variables.
package binding

import (
	"fmt"
	"strings"
)

// Kind describes how a bound value becomes text.
type Kind string

const (
	// KindUnset marks a declaration that does not constrain the kind.
	KindUnset Kind = ""
	// KindText values are already strings.
	KindText Kind = "text"
	// KindRenderable values render themselves.
	KindRenderable Kind = "renderable"
)

// ParseKind parses a kind name. The empty string yields KindUnset.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return KindUnset, nil
	case "text", "string", "plain":
		return KindText, nil
	case "renderable", "template", "node":
		return KindRenderable, nil
	default:
		return KindUnset, fmt.Errorf("unknown variable kind %q", value)
	}
}

// Variable is the unified record for one placeholder name.
type Variable struct {
	Name     string `json:"name" yaml:"name"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	Array    bool   `json:"array" yaml:"array"`
	Optional bool   `json:"optional" yaml:"optional"`
}

// String renders the variable as name, shape and optionality, e.g. "items: renderable[]?".
func (v Variable) String() string {
	var b strings.Builder
	b.WriteString(v.Name)
	b.WriteString(": ")
	b.WriteString(string(v.Kind))
	if v.Array {
		b.WriteString("[]")
	}
	if v.Optional {
		b.WriteString("?")
	}
	return b.String()
}

// Declaration constrains the kind of a variable from outside the text.
type Declaration struct {
	Name string
	Kind Kind
}

// Counts summarises a manifest.
type Counts struct {
	Scalars  int
	Arrays   int
	Optional int
}

// Count tallies the shapes of vars.
func Count(vars []Variable) Counts {
	var c Counts
	for _, v := range vars {
		if v.Array {
			c.Arrays++
		} else {
			c.Scalars++
		}
		if v.Optional {
			c.Optional++
		}
	}
	return c
}

// Lookup returns the variable named name.
func Lookup(vars []Variable, name string) (Variable, bool) {
	for _, v := range vars {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}
