package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestCreateConfigFile(t *testing.T) {
	tempDir := t.TempDir()

	originalFunc := configDirFunc
	configDirFunc = func() string {
		return tempDir
	}
	defer func() {
		configDirFunc = originalFunc
	}()

	originalForce := initForce
	initForce = true
	defer func() {
		initForce = originalForce
	}()

	result := createConfigFile()

	if result.status != "done" {
		t.Errorf("expected status 'done', got %q: %s", result.status, result.message)
	}

	configPath := filepath.Join(tempDir, "config.yaml")
	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}

	if !strings.Contains(string(content), "# tmplbind configuration") {
		t.Error("config file doesn't contain expected header")
	}
	if !strings.Contains(string(content), "default_kind: renderable") {
		t.Error("config file doesn't contain expected default")
	}
}

func TestCreateConfigFile_ExistingNoForce(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("existing"), 0644); err != nil {
		t.Fatalf("failed to create existing config: %v", err)
	}

	originalFunc := configDirFunc
	configDirFunc = func() string {
		return tempDir
	}
	defer func() {
		configDirFunc = originalFunc
	}()

	originalForce := initForce
	initForce = false
	defer func() {
		initForce = originalForce
	}()
	originalNonInteractive := nonInteractive
	nonInteractive = true
	defer func() {
		nonInteractive = originalNonInteractive
	}()

	result := createConfigFile()

	if result.status != "skipped" {
		t.Errorf("expected status 'skipped', got %q: %s", result.status, result.message)
	}

	content, _ := os.ReadFile(configPath)
	if string(content) != "existing" {
		t.Error("existing config was modified")
	}
}

func TestConfigTemplate(t *testing.T) {
	if !strings.HasPrefix(configTemplate, "# tmplbind configuration") {
		t.Error("config template doesn't have expected header")
	}

	var parsed map[string]any
	if err := yaml.Unmarshal([]byte(configTemplate), &parsed); err != nil {
		t.Fatalf("config template is not valid YAML: %v", err)
	}

	sections := []string{
		"package",
		"visibility",
		"default_kind",
		"optional_mode",
		"sources",
		"output",
		"generate",
		"database",
		"logging",
	}
	for _, section := range sections {
		if _, ok := parsed[section]; !ok {
			t.Errorf("config template missing section: %s", section)
		}
	}
}

func TestUpdateGitignore(t *testing.T) {
	dir := t.TempDir()

	if result := updateGitignore(dir); result.status != "skipped" {
		t.Fatalf("expected skipped without .gitignore, got %q", result.status)
	}

	path := filepath.Join(dir, ".gitignore")
	if err := os.WriteFile(path, []byte("bin/"), 0644); err != nil {
		t.Fatalf("write .gitignore: %v", err)
	}
	if result := updateGitignore(dir); result.status != "done" {
		t.Fatalf("expected done, got %q: %s", result.status, result.message)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "bin/\n.tmplbind/\n" {
		t.Fatalf("unexpected .gitignore: %q", content)
	}

	if result := updateGitignore(dir); result.status != "skipped" {
		t.Fatalf("expected second run to skip, got %q", result.status)
	}
}

func TestInitResult_Structure(t *testing.T) {
	results := []initResult{
		{name: "Step 1", status: "done", message: "OK"},
		{name: "Step 2", status: "skipped", message: "Already exists"},
		{name: "Step 3", status: "failed", message: "Something went wrong"},
	}

	validStatuses := map[string]bool{"done": true, "skipped": true, "failed": true}
	for i, r := range results {
		if r.name == "" {
			t.Errorf("result %d has empty name", i)
		}
		if !validStatuses[r.status] {
			t.Errorf("result %d has invalid status: %s", i, r.status)
		}
	}
}
