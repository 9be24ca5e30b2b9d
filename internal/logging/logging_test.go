package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})

	Component("generator").Debug().Str("template", "Name").Msg("compiled")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["component"] != "generator" {
		t.Fatalf("expected component generator, got %v", entry["component"])
	}
	if entry["template"] != "Name" || entry["message"] != "compiled" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestInitLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})

	Logger().Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	Logger().Warn().Msg("shown")
	if buf.Len() == 0 {
		t.Fatalf("expected warn to be written")
	}
}

func TestInitUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "loud", Format: "json", Output: &buf})
	Logger().Info().Msg("visible")
	if buf.Len() == 0 {
		t.Fatalf("expected info to be written")
	}
}

func TestUseConsole(t *testing.T) {
	var buf bytes.Buffer
	if !useConsole("console", &buf) {
		t.Fatalf("console format must force console output")
	}
	if useConsole("auto", &buf) {
		t.Fatalf("non-file writers are never terminals")
	}
}
