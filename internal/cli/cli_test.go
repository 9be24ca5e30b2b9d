package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/tmplbind/internal/templates"
	"github.com/opencode-ai/tmplbind/pkg/tmplbind"
)

func resetFlags() {
	configFile, projectDir = "", ""
	jsonOutput, jsonlOutput = false, false
	logLevel, logFormat = "", ""
	noColor, noProgress, nonInteractive, yesFlag = false, false, false, false
	appConfig = nil

	renderSets, renderItems = nil, nil
	renderInteractive, renderSanitize, renderOutput = false, false, ""
	inspectYAML, inspectCode = false, false
	listTags, listBuiltinOnly = nil, false
	generateForce, generateDryRun, generatePrune, generateJobs, generatePattern = false, false, false, 0, ""
	eventsType, eventsTemplate, eventsSince, eventsLimit = "", "", 0, 50
	initForce, initGlobal = false, false
}

// newProject creates a project directory with templates/ files and an
// isolated user environment.
func newProject(t *testing.T, files map[string]string) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("TMPLBIND_NO_PROGRESS", "1")

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func executeCommand(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--project", dir, "--non-interactive", "--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRenderCommand(t *testing.T) {
	dir := newProject(t, map[string]string{
		"templates/name.html": "<p>Hello {{firstName}} {{lastName}}</p>",
	})

	out, err := executeCommand(t, dir, "render", "name", "--set", "firstName=Bob", "--set", "lastName=Smith")
	require.NoError(t, err)
	require.Equal(t, "<p>Hello Bob Smith</p>\n", out)
}

func TestRenderCommandBuiltinList(t *testing.T) {
	dir := newProject(t, nil)

	out, err := executeCommand(t, dir, "render", "list", "--item", "items=alpha", "--item", "items=omega")
	require.NoError(t, err)
	require.Equal(t, "<ul>alpha omega</ul>\n", out)

	out, err = executeCommand(t, dir, "render", "optional")
	require.NoError(t, err)
	require.Equal(t, "\n", out)
}

func TestRenderCommandMissingBinding(t *testing.T) {
	dir := newProject(t, map[string]string{"templates/name.html": "{{firstName}}"})

	_, err := executeCommand(t, dir, "render", "name")
	var preflight *PreflightError
	require.True(t, errors.As(err, &preflight), "got %v", err)
	require.Contains(t, preflight.Hint, "--set firstName=value")
}

func TestRenderCommandSanitize(t *testing.T) {
	dir := newProject(t, map[string]string{
		"templates/post.html": `<p onclick="steal()">{{body}}</p>`,
	})

	out, err := executeCommand(t, dir, "render", "post", "--sanitize", "--set", "body=<script>alert(1)</script>hi")
	require.NoError(t, err)
	require.NotContains(t, out, "script")
	require.NotContains(t, out, "onclick")
	require.Contains(t, out, "hi")
}

func TestRenderCommandFromFile(t *testing.T) {
	dir := newProject(t, map[string]string{"snippets/card.txt": "[{{title}}]"})

	out, err := executeCommand(t, dir, "render", filepath.Join(dir, "snippets", "card.txt"), "--set", "title=x")
	require.NoError(t, err)
	require.Equal(t, "[x]\n", out)
}

func TestInspectCommandJSON(t *testing.T) {
	dir := newProject(t, nil)

	out, err := executeCommand(t, dir, "--json", "inspect", "list")
	require.NoError(t, err)

	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, "List", report.Type)
	require.Len(t, report.Variables, 1)
	require.True(t, report.Variables[0].Array)
	require.Len(t, report.Shapes, 2)
	require.Equal(t, "NewList", report.Shapes[0].Constructor)
	require.Equal(t, "NewListWithItemsText", report.Shapes[1].Constructor)
	require.True(t, report.Shapes[0].Variadic)
}

func TestInspectCommandTableAndCode(t *testing.T) {
	dir := newProject(t, nil)

	out, err := executeCommand(t, dir, "inspect", "name")
	require.NoError(t, err)
	require.Contains(t, out, "VARIABLE")
	require.Contains(t, out, "firstName")
	require.Contains(t, out, "NewName")

	out, err = executeCommand(t, dir, "inspect", "name", "--code")
	require.NoError(t, err)
	require.Contains(t, out, "func NewName(firstName string, lastName string) *Name {")
}

func TestInspectCommandConflict(t *testing.T) {
	dir := newProject(t, map[string]string{"templates/bad.html": "{{a}} {{..a}}"})

	_, err := executeCommand(t, dir, "inspect", "bad")
	require.Error(t, err)
	require.Contains(t, err.Error(), "is used both as array and non array")
}

func TestGenerateCommand(t *testing.T) {
	dir := newProject(t, map[string]string{
		"templates/card.html": "<div>{{title}}{{..rows?}}</div>",
	})

	out, err := executeCommand(t, dir, "--json", "generate")
	require.NoError(t, err)

	var summary generateSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Equal(t, 1, summary.Compiled)
	require.Len(t, summary.Results, 1)
	require.Equal(t, 2, summary.Results[0].Shapes)

	_, err = os.Stat(filepath.Join(dir, "templates", "card_tmplbind.go"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, ".tmplbind", "cache.db"))
	require.NoError(t, err)

	out, err = executeCommand(t, dir, "--json", "generate")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	require.Equal(t, 1, summary.Skipped)

	out, err = executeCommand(t, dir, "--json", "events", "--type", "template.skipped")
	require.NoError(t, err)
	require.Contains(t, out, `"entity_id": "card"`)
}

func TestGenerateCommandFailure(t *testing.T) {
	dir := newProject(t, map[string]string{"templates/bad.html": "{{a}} {{a?}}"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmplbind.yaml"), []byte("optional_mode: strict\n"), 0o644))

	out, err := executeCommand(t, dir, "generate")
	require.Error(t, err)
	require.Contains(t, out, "ERR failed")
}

func TestListCommand(t *testing.T) {
	dir := newProject(t, map[string]string{
		"templates/page.html": "{{title}}",
	})

	out, err := executeCommand(t, dir, "--json", "list")
	require.NoError(t, err)

	var entries []listEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	require.Equal(t, "page", names[0], "configured sources come first")
	require.Contains(t, names, "list-item")

	out, err = executeCommand(t, dir, "--json", "list", "--builtin")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	for _, e := range entries {
		require.Equal(t, templates.SourceBuiltin, e.Source)
	}
}

func TestInitCommand(t *testing.T) {
	dir := newProject(t, map[string]string{".gitignore": "bin/\n"})

	out, err := executeCommand(t, dir, "init")
	require.NoError(t, err)
	require.Contains(t, out, "Project config")

	for _, path := range []string{"tmplbind.yaml", "templates/greeting.html"} {
		_, err := os.Stat(filepath.Join(dir, path))
		require.NoError(t, err, path)
	}

	out, err = executeCommand(t, dir, "render", "greeting", "--set", "firstName=Ada", "--set", "lastName=Lovelace")
	require.NoError(t, err)
	require.Equal(t, "<p>Hello Ada Lovelace</p>\n\n", out)
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, t.TempDir(), "version")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "tmplbind "))
}

func TestBuildBindings(t *testing.T) {
	tmpl := tmplbind.MustCompile("{{title}} {{..tags}}")

	bindings, err := buildBindings(tmpl, []string{"title=a=b"}, []string{"tags=x", "tags=y"})
	require.NoError(t, err)
	out, err := tmpl.Render(bindings)
	require.NoError(t, err)
	require.Equal(t, "a=b x y", out)

	cases := []struct {
		name  string
		sets  []string
		items []string
	}{
		{"missing equals", []string{"title"}, nil},
		{"unknown variable", []string{"nope=1"}, nil},
		{"set on list", []string{"tags=1"}, nil},
		{"item on scalar", nil, []string{"title=1"}},
		{"empty name", nil, []string{"=1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildBindings(tmpl, tc.sets, tc.items)
			require.Error(t, err)
		})
	}
}

type fakePrompter struct {
	inputs   map[string]string
	lines    map[string][]string
	asked    []string
	optional []string
	confirm  bool
}

func (f *fakePrompter) Input(message, help string, required bool) (string, error) {
	f.asked = append(f.asked, message)
	if !required {
		f.optional = append(f.optional, message)
	}
	return f.inputs[message], nil
}

func (f *fakePrompter) Lines(message, help string) ([]string, error) {
	f.asked = append(f.asked, message)
	return f.lines[message], nil
}

func (f *fakePrompter) Confirm(message string, def bool) (bool, error) {
	return f.confirm, nil
}

func TestPromptMissing(t *testing.T) {
	src := &templates.Template{Name: "card", Body: "{{title}} {{..tags}} {{note?}} {{bound}}"}
	tmpl, err := src.Compile()
	require.NoError(t, err)

	p := &fakePrompter{
		inputs: map[string]string{"title": "Hello"},
		lines:  map[string][]string{"tags": {"a", "b"}},
	}
	bindings := tmplbind.Bindings{"bound": tmplbind.String("!")}
	require.NoError(t, promptMissing(p, src, tmpl, bindings))
	require.Equal(t, []string{"title", "tags"}, p.asked, "optional and bound variables are not prompted")
	require.Empty(t, p.optional, "required variables must not accept an empty answer")

	out, err := tmpl.Render(bindings)
	require.NoError(t, err)
	require.Equal(t, "Hello a b  !", out)
}

func TestFilterTemplates(t *testing.T) {
	items := []*templates.Template{
		{Name: "a", Tags: []string{"html", "mail"}},
		{Name: "b", Tags: []string{"text"}},
		{Name: "c", Tags: []string{"HTML"}},
		{Name: "d", Tags: nil},
	}

	tests := []struct {
		name     string
		tags     []string
		expected int
	}{
		{"no filter", nil, 4},
		{"filter html", []string{"html"}, 2},
		{"filter text", []string{"text"}, 1},
		{"filter multiple", []string{"mail", "text"}, 2},
		{"filter nonexistent", []string{"nonexistent"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := filterTemplates(items, tt.tags)
			if len(result) != tt.expected {
				t.Errorf("filterTemplates() = %d items, want %d", len(result), tt.expected)
			}
		})
	}
}

func TestWriteOutputJSONL(t *testing.T) {
	resetFlags()
	t.Cleanup(resetFlags)
	jsonlOutput = true

	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, []map[string]int{{"a": 1}, {"b": 2}}))
	require.Equal(t, "{\"a\":1}\n{\"b\":2}\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteOutput(&buf, map[string]int{"c": 3}))
	require.Equal(t, "{\"c\":3}\n", buf.String())
}

func TestWriteTableAligns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, []string{"NAME", "KIND"}, [][]string{{"items", "renderable"}, {"x", "text"}}))
	require.Equal(t, "NAME   KIND\nitems  renderable\nx      text\n", buf.String())
}

func TestPreflightError(t *testing.T) {
	err := &PreflightError{Message: "boom", Hint: "try this", NextStep: "tmplbind list"}
	require.Equal(t, "boom\nHint: try this\nNext: tmplbind list", err.Error())
}
