package models

import (
	"time"

	"github.com/opencode-ai/tmplbind/pkg/binding"
)

// Artifact records the last successful generation of one template.
type Artifact struct {
	ID          string             `json:"id"`
	LogicalName string             `json:"logical_name"`
	SourcePath  string             `json:"source_path"`
	SourceHash  string             `json:"source_hash"`
	OutputPath  string             `json:"output_path"`
	OutputHash  string             `json:"output_hash"`
	Variables   []binding.Variable `json:"variables"`
	GeneratedAt time.Time          `json:"generated_at"`
}
