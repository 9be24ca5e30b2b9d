package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opencode-ai/tmplbind/internal/models"
)

// Artifact repository errors.
var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrInvalidArtifact  = errors.New("invalid artifact")
)

const artifactColumns = `id, logical_name, source_path, source_hash, output_path, output_hash, variables_json, generated_at`

// ArtifactRepository stores the last generation of each template source.
type ArtifactRepository struct {
	db *DB
}

// NewArtifactRepository creates a new ArtifactRepository.
func NewArtifactRepository(db *DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Upsert inserts or replaces the artifact for its source path. The ID of an
// existing row is kept.
func (r *ArtifactRepository) Upsert(ctx context.Context, artifact *models.Artifact) error {
	if artifact == nil || artifact.SourcePath == "" || artifact.LogicalName == "" {
		return ErrInvalidArtifact
	}
	if artifact.ID == "" {
		artifact.ID = uuid.New().String()
	}
	if artifact.GeneratedAt.IsZero() {
		artifact.GeneratedAt = time.Now().UTC()
	}

	variablesJSON, err := json.Marshal(artifact.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal variables: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO artifacts (`+artifactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_path) DO UPDATE SET
			logical_name = excluded.logical_name,
			source_hash = excluded.source_hash,
			output_path = excluded.output_path,
			output_hash = excluded.output_hash,
			variables_json = excluded.variables_json,
			generated_at = excluded.generated_at
		RETURNING id
	`,
		artifact.ID,
		artifact.LogicalName,
		artifact.SourcePath,
		artifact.SourceHash,
		artifact.OutputPath,
		artifact.OutputHash,
		string(variablesJSON),
		artifact.GeneratedAt.UTC().Format(timeFormat),
	)
	if err := row.Scan(&artifact.ID); err != nil {
		return fmt.Errorf("failed to upsert artifact: %w", err)
	}
	return nil
}

// GetBySource returns the artifact generated from sourcePath.
func (r *ArtifactRepository) GetBySource(ctx context.Context, sourcePath string) (*models.Artifact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE source_path = ?`, sourcePath)
	return r.scan(row)
}

// List returns all artifacts ordered by logical name and source path.
func (r *ArtifactRepository) List(ctx context.Context) ([]*models.Artifact, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+artifactColumns+` FROM artifacts ORDER BY logical_name, source_path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*models.Artifact
	for rows.Next() {
		artifact, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artifacts: %w", err)
	}
	return artifacts, nil
}

// DeleteBySource removes the artifact for sourcePath.
func (r *ArtifactRepository) DeleteBySource(ctx context.Context, sourcePath string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM artifacts WHERE source_path = ?`, sourcePath)
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	if n == 0 {
		return ErrArtifactNotFound
	}
	return nil
}

func (r *ArtifactRepository) scan(row rowScanner) (*models.Artifact, error) {
	var artifact models.Artifact
	var variablesJSON, generatedAt string

	if err := row.Scan(
		&artifact.ID,
		&artifact.LogicalName,
		&artifact.SourcePath,
		&artifact.SourceHash,
		&artifact.OutputPath,
		&artifact.OutputHash,
		&variablesJSON,
		&generatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to scan artifact: %w", err)
	}

	if err := json.Unmarshal([]byte(variablesJSON), &artifact.Variables); err != nil {
		r.db.logger.Warn().Err(err).Str("source", artifact.SourcePath).Msg("failed to parse artifact variables")
	}
	if t, err := time.Parse(timeFormat, generatedAt); err == nil {
		artifact.GeneratedAt = t
	}
	return &artifact, nil
}
