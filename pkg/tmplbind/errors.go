package tmplbind

import (
	"errors"
	"fmt"
)

// Render errors.
var (
	ErrMissingBinding     = errors.New("missing binding")
	ErrUnknownPlaceholder = errors.New("unknown placeholder")
	ErrBindingShape       = errors.New("binding shape mismatch")
	ErrBindingKind        = errors.New("binding kind mismatch")
)

// RenderError reports the variable a render failed on.
type RenderError struct {
	Name string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %q: %v", e.Name, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
