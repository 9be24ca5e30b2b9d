package binding

import (
	"errors"
	"fmt"

	"github.com/opencode-ai/tmplbind/pkg/placeholder"
)

// Compile-time conflicts.
var (
	ErrShapeConflict       = errors.New("shape conflict")
	ErrTypeConflict        = errors.New("type conflict")
	ErrOptionalityConflict = errors.New("optionality conflict")
)

// ConflictKind identifies which property of a variable disagrees.
type ConflictKind string

const (
	ConflictShape       ConflictKind = "shape"
	ConflictType        ConflictKind = "type"
	ConflictOptionality ConflictKind = "optionality"
)

// ConflictError reports occurrences of one name that cannot be unified.
type ConflictError struct {
	Name  string
	Kind  ConflictKind
	Kinds []Kind             // for type conflicts, the declared kinds in order
	Spans []placeholder.Span // occurrences of the name in the text
}

func (e *ConflictError) Error() string {
	switch e.Kind {
	case ConflictShape:
		return fmt.Sprintf("%q is used both as array and non array", e.Name)
	case ConflictType:
		return fmt.Sprintf("%q is used with multiple kinds %v", e.Name, e.Kinds)
	case ConflictOptionality:
		return fmt.Sprintf("%q is used both as optional and required", e.Name)
	default:
		return fmt.Sprintf("%q cannot be unified", e.Name)
	}
}

// Unwrap maps the conflict onto its sentinel.
func (e *ConflictError) Unwrap() error {
	switch e.Kind {
	case ConflictShape:
		return ErrShapeConflict
	case ConflictType:
		return ErrTypeConflict
	case ConflictOptionality:
		return ErrOptionalityConflict
	default:
		return nil
	}
}
