package codegen

import (
	"errors"
	"fmt"
	"go/token"
	"go/types"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/opencode-ai/tmplbind/pkg/tmplbind"
)

// ErrInvalidIdentifier is returned when a logical name cannot become a Go
// identifier.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// reserved names are used inside generated constructors and must not be
// taken by parameters.
var reserved = map[string]struct{}{
	"tmplbind": {},
	"binding":  {},
	"bindings": {},
}

func words(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// TypeName derives the Go type name of a template from its logical name:
// "list-item" becomes ListItem, or listItem when unexported.
func TypeName(name string, exported bool) (string, error) {
	parts := words(name)
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: %q has no letters or digits", ErrInvalidIdentifier, name)
	}
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(upperFirst(part))
	}
	ident := b.String()
	if unicode.IsDigit([]rune(ident)[0]) {
		return "", fmt.Errorf("%w: %q starts with a digit", ErrInvalidIdentifier, name)
	}
	if !exported {
		ident = lowerFirst(ident)
	}
	if !token.IsIdentifier(ident) {
		return "", fmt.Errorf("%w: %q is a Go keyword", ErrInvalidIdentifier, ident)
	}
	if shadows(ident, "") {
		return "", fmt.Errorf("%w: %q is predeclared or used by generated code", ErrInvalidIdentifier, ident)
	}
	return ident, nil
}

func constructorPrefix(typeName string) string {
	if token.IsExported(typeName) {
		return "New" + typeName
	}
	return "new" + upperFirst(typeName)
}

func compiledName(typeName string) string {
	return lowerFirst(typeName) + "Compiled"
}

// Identifiers returns every package-level identifier emitted for a
// template, including one constructor per shape, for collision checks
// across a package.
func Identifiers(name string, exported bool, shapes []tmplbind.InputShape) ([]string, error) {
	typeName, err := TypeName(name, exported)
	if err != nil {
		return nil, err
	}
	idents := []string{
		typeName,
		typeName + "Template",
		typeName + "Variables",
		compiledName(typeName),
	}
	for _, shape := range shapes {
		idents = append(idents, ConstructorName(typeName, shape))
	}
	return idents, nil
}

// paramName maps a variable name to a constructor parameter that cannot
// shadow anything the constructor uses: keywords, predeclared identifiers
// such as make, nil and string, the package names and the type itself.
func paramName(name, typeName string, taken map[string]struct{}) string {
	candidate := name
	if shadows(candidate, typeName) {
		candidate += "Value"
	}
	base := candidate
	for i := 2; ; i++ {
		if _, exists := taken[candidate]; !exists {
			break
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
	taken[candidate] = struct{}{}
	return candidate
}

func shadows(name, typeName string) bool {
	if _, bad := reserved[name]; bad {
		return true
	}
	return name == typeName || token.IsKeyword(name) || types.Universe.Lookup(name) != nil
}

// FileName returns the generated file name for a logical name, e.g.
// "list-item" with suffix "_tmplbind.go" gives list_item_tmplbind.go.
func FileName(name, suffix string) string {
	base := strings.ToLower(strings.Join(words(name), "_"))
	if base == "" {
		base = "template"
	}
	return filepath.Clean(base + suffix)
}
