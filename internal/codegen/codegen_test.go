package codegen

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/tmplbind/pkg/binding"
	"github.com/opencode-ai/tmplbind/pkg/tmplbind"
)

func generate(t *testing.T, name, text string, opts Options, compileOpts ...tmplbind.CompileOption) string {
	t.Helper()
	tmpl, err := tmplbind.Compile(text, compileOpts...)
	require.NoError(t, err)
	if opts.Package == "" {
		opts.Package = "templates"
	}
	src, err := Generate(Input{Name: name, Source: name + ".html", Template: tmpl}, opts)
	require.NoError(t, err)
	return string(src)
}

// funcs parses src and returns its top-level function names in order.
func funcs(t *testing.T, src string) []string {
	t.Helper()
	file, err := parser.ParseFile(token.NewFileSet(), "gen.go", src, parser.ParseComments)
	require.NoError(t, err)
	var names []string
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Recv == nil {
			names = append(names, fn.Name.Name)
		}
	}
	return names
}

func TestGenerateList(t *testing.T) {
	src := generate(t, "list", "<ul>{{..items}}</ul>", Options{Exported: true})

	require.True(t, strings.HasPrefix(src, "// Code generated by tmplbind from list.html. DO NOT EDIT.\n"))
	require.Contains(t, src, "package templates\n")
	require.Contains(t, src, `const ListTemplate = "<ul>{{..items}}</ul>"`)
	require.Contains(t, src, `{Name: "items", Kind: binding.KindRenderable, Array: true, Optional: false},`)
	require.Contains(t, src, "var listCompiled = tmplbind.FromManifest(ListTemplate, ListVariables)")
	require.Contains(t, src, "func NewList(items ...tmplbind.Renderer) *List {")
	require.Contains(t, src, "func NewListWithItemsText(items ...string) *List {")
	require.Contains(t, src, `bindings["items"] = tmplbind.Strings(items...)`)
	require.Contains(t, src, "func (t *List) Render() (string, error) {")
	require.Equal(t, []string{"NewList", "NewListWithItemsText"}, funcs(t, src))
}

func TestGenerateConstructorPerShape(t *testing.T) {
	src := generate(t, "page", "{{..a}} {{b}} {{..c?}}", Options{Exported: false})

	require.Equal(t, []string{
		"newPage",
		"newPageWithCText",
		"newPageWithAText",
		"newPageWithATextCText",
	}, funcs(t, src))
	require.Contains(t, src, "func newPageWithATextCText(a []string, b tmplbind.Renderer, c []string) *page {")
	require.Contains(t, src, "\tif c != nil {\n")
	require.Contains(t, src, "type page struct {")
}

func TestGenerateScalars(t *testing.T) {
	src := generate(t, "name", "<p>Hello {{firstName}} {{lastName}}{{suffix?}}</p>", Options{Exported: true},
		tmplbind.WithDefaultKind(binding.KindText))

	require.Equal(t, []string{"NewName"}, funcs(t, src))
	require.Contains(t, src, "func NewName(firstName string, lastName string, suffix *string) *Name {")
	require.Contains(t, src, `bindings["suffix"] = tmplbind.String(*suffix)`)
	require.Contains(t, src, "Kind: binding.KindText")
}

func TestGenerateDeclaredTextListHasSingleConstructor(t *testing.T) {
	src := generate(t, "tags", "{{..tags}}", Options{Exported: true},
		tmplbind.WithDeclarations(binding.Declaration{Name: "tags", Kind: binding.KindText}))

	require.Equal(t, []string{"NewTags"}, funcs(t, src))
	require.Contains(t, src, "func NewTags(tags ...string) *Tags {")
}

func TestGenerateEmptyManifest(t *testing.T) {
	src := generate(t, "static", "<hr/>", Options{Exported: true})

	require.Equal(t, []string{"NewStatic"}, funcs(t, src))
	require.Contains(t, src, "return &Static{}")
	require.Contains(t, src, "var StaticVariables = []binding.Variable{}")
}

func TestGenerateEscapesParams(t *testing.T) {
	src := generate(t, "kw", "{{type}} {{tmplbind}}", Options{Exported: true})
	require.Contains(t, src, "func NewKw(typeValue tmplbind.Renderer, tmplbindValue tmplbind.Renderer) *Kw {")
	require.Contains(t, src, `bindings["type"] = tmplbind.Nested(typeValue)`)
}

func TestGenerateQuotesRawText(t *testing.T) {
	src := generate(t, "quote", "say \"{{word}}\"\n\tdone", Options{Exported: true})
	require.Contains(t, src, `const QuoteTemplate = "say \"{{word}}\"\n\tdone"`)
}

func TestGenerateHeaderAndDocs(t *testing.T) {
	tmpl := tmplbind.MustCompile("{{it}}")
	src, err := Generate(Input{
		Name:        "list-item",
		Description: "Single   list entry.",
		Template:    tmpl,
		Describe: func(name string) string {
			if name == "it" {
				return "Entry content."
			}
			return ""
		},
	}, Options{Package: "views", Exported: true, Header: "Copyright Example\n// second line"})
	require.NoError(t, err)

	out := string(src)
	require.Contains(t, out, "from list-item. DO NOT EDIT.")
	require.Contains(t, out, "// Copyright Example\n// second line\n")
	require.Contains(t, out, "// ListItem renders ListItemTemplate. Single list entry.")
	require.Contains(t, out, "// it: Entry content.")
	require.Contains(t, out, "package views")
}

func TestGenerateErrors(t *testing.T) {
	_, err := Generate(Input{Name: "x"}, Options{Package: "p"})
	require.Error(t, err)

	tmpl := tmplbind.MustCompile("{{a}}")
	_, err = Generate(Input{Name: "x", Template: tmpl}, Options{Package: "bad-pkg"})
	require.True(t, errors.Is(err, ErrInvalidIdentifier))

	_, err = Generate(Input{Name: "type", Template: tmpl}, Options{Package: "p"})
	require.True(t, errors.Is(err, ErrInvalidIdentifier))
}

func TestTypeName(t *testing.T) {
	cases := []struct {
		name     string
		exported bool
		want     string
	}{
		{"list-item", true, "ListItem"},
		{"list-item", false, "listItem"},
		{"user_card.v2", true, "UserCardV2"},
		{"Name", false, "name"},
	}
	for _, tc := range cases {
		got, err := TypeName(tc.name, tc.exported)
		require.NoError(t, err, tc.name)
		require.Equal(t, tc.want, got)
	}

	for _, bad := range []string{"", "--", "1st", "func", "string", "error", "bindings", "tmplbind"} {
		_, err := TypeName(bad, false)
		require.ErrorIs(t, err, ErrInvalidIdentifier, bad)
	}
}

func TestIdentifiersCollide(t *testing.T) {
	exported, err := Identifiers("list", true, nil)
	require.NoError(t, err)
	unexported, err := Identifiers("list", false, nil)
	require.NoError(t, err)
	require.Contains(t, exported, "listCompiled")
	require.Contains(t, unexported, "listCompiled")
}

func TestIdentifiersIncludeConstructors(t *testing.T) {
	shapes := tmplbind.MustCompile("<ul>{{..items}}</ul>").Shapes()
	list, err := Identifiers("list", true, shapes)
	require.NoError(t, err)
	require.Contains(t, list, "NewList")
	require.Contains(t, list, "NewListWithItemsText")

	newList, err := Identifiers("new-list", true, nil)
	require.NoError(t, err)
	require.Equal(t, "NewList", newList[0])
}

func TestFileName(t *testing.T) {
	require.Equal(t, "list_item_tmplbind.go", FileName("list-item", "_tmplbind.go"))
	require.Equal(t, "name.gen.go", FileName("Name", ".gen.go"))
}
