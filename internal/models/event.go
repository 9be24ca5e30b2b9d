// Package models defines the records tmplbind persists.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType categorizes events in the system.
type EventType string

const (
	// Template events
	EventTypeTemplateCompiled EventType = "template.compiled"
	EventTypeTemplateSkipped  EventType = "template.skipped"
	EventTypeTemplateFailed   EventType = "template.failed"

	// Generator events
	EventTypeGenerateCompleted EventType = "generate.completed"
)

// EntityType identifies the type of entity an event relates to.
type EntityType string

const (
	EntityTypeTemplate EntityType = "template"
	EntityTypeRun      EntityType = "run"
)

// Event represents an append-only log entry.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of entity this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the ID of the related entity: a template's logical name
	// or a run ID.
	EntityID string `json:"entity_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Metadata contains additional context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate checks if the event is valid.
func (e *Event) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(string(e.Type)) == "" {
		validation.AddMessage("type", "event type is required")
	}
	if strings.TrimSpace(string(e.EntityType)) == "" {
		validation.AddMessage("entity_type", "entity_type is required")
	}
	if strings.TrimSpace(e.EntityID) == "" {
		validation.AddMessage("entity_id", "entity_id is required")
	}
	return validation.Err()
}

// TemplateCompiledPayload is the payload for template.compiled events.
type TemplateCompiledPayload struct {
	RunID      string `json:"run_id"`
	SourcePath string `json:"source_path"`
	OutputPath string `json:"output_path"`
	Variables  int    `json:"variables"`
	Shapes     int    `json:"shapes"`
}

// TemplateSkippedPayload is the payload for template.skipped events.
type TemplateSkippedPayload struct {
	RunID      string `json:"run_id"`
	SourcePath string `json:"source_path"`
	Reason     string `json:"reason"`
}

// TemplateFailedPayload is the payload for template.failed events.
type TemplateFailedPayload struct {
	RunID      string `json:"run_id"`
	SourcePath string `json:"source_path"`
	Error      string `json:"error"`
}

// GenerateCompletedPayload is the payload for generate.completed events.
type GenerateCompletedPayload struct {
	Compiled int    `json:"compiled"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	Duration string `json:"duration"`
}
