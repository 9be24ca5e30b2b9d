// Package placeholder finds {{name}} placeholders in template text.
//
// A placeholder is "{{", optional whitespace, an optional ".." array marker,
// an identifier matching [a-zA-Z]\w*, an optional "?" marker, optional
// whitespace and "}}". Whitespace inside the braces may include newlines.
// Text that does not match is literal and is never reported.
package placeholder

import (
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strings"
)

// Expr is the placeholder grammar used by Default.
const Expr = `\{\{\s*(\.{2})?([a-zA-Z]\w*)(\?)?\s*\}\}`

// Capture groups every pattern must expose, in order.
const (
	groupArray    = 1
	groupName     = 2
	groupOptional = 3
	groupCount    = 3
)

// ErrInvalidPattern is returned when a pattern does not expose the
// array, name and optional capture groups.
var ErrInvalidPattern = errors.New("invalid placeholder pattern")

// Default is the process-wide placeholder pattern. It is never mutated.
var Default = MustCompile(Expr)

// Span is the byte range [Start, End) a placeholder occupies in its text.
type Span struct {
	Start int
	End   int
}

// Occurrence is one textual appearance of a placeholder.
type Occurrence struct {
	Name     string
	Array    bool
	Optional bool
	Span     Span
}

// Pattern matches placeholders.
type Pattern struct {
	re *regexp.Regexp
}

// Compile builds a pattern from a regular expression exposing three capture
// groups: the array marker, the identifier and the optional marker.
func Compile(expr string) (*Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	if re.NumSubexp() != groupCount {
		return nil, fmt.Errorf("%w: expected %d capture groups, got %d", ErrInvalidPattern, groupCount, re.NumSubexp())
	}
	return &Pattern{re: re}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the source expression.
func (p *Pattern) String() string {
	return p.re.String()
}

// Occurrences returns the placeholders of text in left-to-right order.
// The sequence is lazy and can be ranged over any number of times.
func (p *Pattern) Occurrences(text string) iter.Seq[Occurrence] {
	return func(yield func(Occurrence) bool) {
		offset := 0
		for offset <= len(text) {
			loc := p.re.FindStringSubmatchIndex(text[offset:])
			if loc == nil {
				return
			}
			if loc[1] == 0 {
				// empty match from a custom pattern
				offset++
				continue
			}
			occ := p.occurrence(text[offset:], loc)
			occ.Span.Start += offset
			occ.Span.End += offset
			if !yield(occ) {
				return
			}
			offset += loc[1]
		}
	}
}

// Extract collects every occurrence in text.
func (p *Pattern) Extract(text string) []Occurrence {
	var out []Occurrence
	for occ := range p.Occurrences(text) {
		out = append(out, occ)
	}
	return out
}

// Names returns the distinct placeholder names of text in first-seen order.
func (p *Pattern) Names(text string) []string {
	seen := make(map[string]struct{})
	var names []string
	for occ := range p.Occurrences(text) {
		if _, ok := seen[occ.Name]; ok {
			continue
		}
		seen[occ.Name] = struct{}{}
		names = append(names, occ.Name)
	}
	return names
}

// Replace substitutes every placeholder of text with the string fn returns
// for it, in a single left-to-right pass. Literal text is copied unchanged.
// The first error from fn stops the pass and is returned.
func (p *Pattern) Replace(text string, fn func(Occurrence) (string, error)) (string, error) {
	var out strings.Builder
	out.Grow(len(text))

	last := 0
	for occ := range p.Occurrences(text) {
		value, err := fn(occ)
		if err != nil {
			return "", err
		}
		out.WriteString(text[last:occ.Span.Start])
		out.WriteString(value)
		last = occ.Span.End
	}
	out.WriteString(text[last:])
	return out.String(), nil
}

func (p *Pattern) occurrence(text string, loc []int) Occurrence {
	return Occurrence{
		Name:     text[loc[2*groupName]:loc[2*groupName+1]],
		Array:    loc[2*groupArray] >= 0,
		Optional: loc[2*groupOptional] >= 0,
		Span:     Span{Start: loc[0], End: loc[1]},
	}
}

// Extract collects every occurrence in text using Default.
func Extract(text string) []Occurrence {
	return Default.Extract(text)
}

// Position converts a byte offset of text into a 1-based line and column.
func Position(text string, offset int) (line, column int) {
	if offset > len(text) {
		offset = len(text)
	}
	if offset < 0 {
		offset = 0
	}
	prefix := text[:offset]
	line = strings.Count(prefix, "\n") + 1
	column = offset - strings.LastIndex(prefix, "\n")
	return line, column
}
