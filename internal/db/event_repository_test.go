package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opencode-ai/tmplbind/internal/models"
)

func TestEventRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(openTestDB(t))

	event := &models.Event{
		Type:       models.EventTypeTemplateCompiled,
		EntityType: models.EntityTypeTemplate,
		EntityID:   "Name",
		Payload:    []byte(`{"variables":2}`),
		Metadata:   map[string]string{"package": "pages"},
	}
	if err := repo.Create(ctx, event); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if event.ID == "" || event.Timestamp.IsZero() {
		t.Fatalf("expected ID and timestamp to be set: %+v", event)
	}

	got, err := repo.Get(ctx, event.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Type != models.EventTypeTemplateCompiled || got.EntityID != "Name" {
		t.Fatalf("unexpected event: %+v", got)
	}
	if string(got.Payload) != `{"variables":2}` {
		t.Fatalf("unexpected payload: %s", got.Payload)
	}
	if got.Metadata["package"] != "pages" {
		t.Fatalf("unexpected metadata: %v", got.Metadata)
	}
	if !got.Timestamp.Equal(event.Timestamp) {
		t.Fatalf("timestamp did not round-trip: %v vs %v", got.Timestamp, event.Timestamp)
	}
}

func TestEventRepositoryInvalid(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(openTestDB(t))

	if err := repo.Create(ctx, &models.Event{Type: models.EventTypeTemplateFailed}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestEventRepositoryQueryPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(openTestDB(t))

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < 5; i++ {
		eventType := models.EventTypeTemplateCompiled
		if i%2 == 1 {
			eventType = models.EventTypeTemplateSkipped
		}
		if err := repo.Create(ctx, &models.Event{
			Timestamp:  base.Add(time.Duration(i) * time.Millisecond),
			Type:       eventType,
			EntityType: models.EntityTypeTemplate,
			EntityID:   "T",
		}); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}

	page, err := repo.Query(ctx, EventQuery{Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(page.Events) != 2 || page.NextCursor == "" {
		t.Fatalf("expected a full first page with cursor, got %d events cursor=%q", len(page.Events), page.NextCursor)
	}

	seen := len(page.Events)
	for page.NextCursor != "" {
		page, err = repo.Query(ctx, EventQuery{Limit: 2, Cursor: page.NextCursor})
		if err != nil {
			t.Fatalf("Query next: %v", err)
		}
		seen += len(page.Events)
	}
	if seen != 5 {
		t.Fatalf("expected to page through 5 events, got %d", seen)
	}

	skipped := models.EventTypeTemplateSkipped
	page, err = repo.Query(ctx, EventQuery{Type: &skipped})
	if err != nil {
		t.Fatalf("Query by type: %v", err)
	}
	if len(page.Events) != 2 {
		t.Fatalf("expected 2 skipped events, got %d", len(page.Events))
	}

	events, err := repo.ListByEntity(ctx, models.EntityTypeTemplate, "T", 0)
	if err != nil {
		t.Fatalf("ListByEntity: %v", err)
	}
	if len(events) != 5 || !events[0].Timestamp.Equal(base) {
		t.Fatalf("unexpected entity events: %d", len(events))
	}
}
