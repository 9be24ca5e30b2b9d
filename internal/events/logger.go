// Package events provides helper functions for recording generator events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opencode-ai/tmplbind/internal/models"
)

// Repository is the minimal interface needed to write events.
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
}

// LogTemplateCompiled records a successful generation of a template.
func LogTemplateCompiled(ctx context.Context, repo Repository, name string, payload models.TemplateCompiledPayload) error {
	return logEvent(ctx, repo, models.EventTypeTemplateCompiled, models.EntityTypeTemplate, name, payload)
}

// LogTemplateSkipped records a template left untouched because its output is current.
func LogTemplateSkipped(ctx context.Context, repo Repository, name string, payload models.TemplateSkippedPayload) error {
	return logEvent(ctx, repo, models.EventTypeTemplateSkipped, models.EntityTypeTemplate, name, payload)
}

// LogTemplateFailed records a template that could not be compiled or written.
func LogTemplateFailed(ctx context.Context, repo Repository, name string, payload models.TemplateFailedPayload) error {
	return logEvent(ctx, repo, models.EventTypeTemplateFailed, models.EntityTypeTemplate, name, payload)
}

// LogGenerateCompleted records the summary of a generator run.
func LogGenerateCompleted(ctx context.Context, repo Repository, runID string, compiled, skipped, failed int, took time.Duration) error {
	return logEvent(ctx, repo, models.EventTypeGenerateCompleted, models.EntityTypeRun, runID, models.GenerateCompletedPayload{
		Compiled: compiled,
		Skipped:  skipped,
		Failed:   failed,
		Duration: took.String(),
	})
}

func logEvent(ctx context.Context, repo Repository, eventType models.EventType, entityType models.EntityType, entityID string, payload any) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if entityID == "" {
		return fmt.Errorf("%s id is required", entityType)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	return repo.Create(ctx, &models.Event{
		Type:       eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    data,
	})
}
