package db

import (
	"context"
	"errors"
	"testing"

	"github.com/opencode-ai/tmplbind/internal/models"
	"github.com/opencode-ai/tmplbind/pkg/binding"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if _, err := database.MigrateUp(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	database := openTestDB(t)

	applied, err := database.MigrateUp(context.Background())
	if err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected no pending migrations, got %d", applied)
	}
}

func TestArtifactRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewArtifactRepository(openTestDB(t))

	artifact := &models.Artifact{
		LogicalName: "Name",
		SourcePath:  "/project/templates/Name.html",
		SourceHash:  "abc",
		OutputPath:  "/project/templates/name_tmplbind.go",
		OutputHash:  "def",
		Variables: []binding.Variable{
			{Name: "firstName", Kind: binding.KindRenderable},
			{Name: "items", Kind: binding.KindText, Array: true, Optional: true},
		},
	}
	if err := repo.Upsert(ctx, artifact); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if artifact.ID == "" {
		t.Fatal("expected ID to be set")
	}
	firstID := artifact.ID

	got, err := repo.GetBySource(ctx, artifact.SourcePath)
	if err != nil {
		t.Fatalf("GetBySource: %v", err)
	}
	if got.SourceHash != "abc" || got.LogicalName != "Name" {
		t.Fatalf("unexpected artifact: %+v", got)
	}
	if len(got.Variables) != 2 || !got.Variables[1].Array || got.Variables[1].Kind != binding.KindText {
		t.Fatalf("unexpected variables: %+v", got.Variables)
	}
	if got.GeneratedAt.IsZero() {
		t.Fatal("expected generated_at to round-trip")
	}

	update := &models.Artifact{
		LogicalName: "Name",
		SourcePath:  artifact.SourcePath,
		SourceHash:  "xyz",
		OutputPath:  artifact.OutputPath,
		OutputHash:  "uvw",
	}
	if err := repo.Upsert(ctx, update); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}
	if update.ID != firstID {
		t.Fatalf("expected existing ID %s to be kept, got %s", firstID, update.ID)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].SourceHash != "xyz" {
		t.Fatalf("unexpected artifacts after update: %+v", all)
	}
}

func TestArtifactRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewArtifactRepository(openTestDB(t))

	if _, err := repo.GetBySource(ctx, "/missing"); !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
	if err := repo.DeleteBySource(ctx, "/missing"); !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
	if err := repo.Upsert(ctx, &models.Artifact{}); !errors.Is(err, ErrInvalidArtifact) {
		t.Fatalf("expected ErrInvalidArtifact, got %v", err)
	}
}

func TestArtifactRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewArtifactRepository(openTestDB(t))

	artifact := &models.Artifact{LogicalName: "A", SourcePath: "/a.html", SourceHash: "1", OutputPath: "/a.go", OutputHash: "2"}
	if err := repo.Upsert(ctx, artifact); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.DeleteBySource(ctx, "/a.html"); err != nil {
		t.Fatalf("DeleteBySource: %v", err)
	}
	if _, err := repo.GetBySource(ctx, "/a.html"); !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("expected artifact to be gone, got %v", err)
	}
}
