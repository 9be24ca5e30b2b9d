package cli

import (
	"fmt"
	"strings"

	"github.com/opencode-ai/tmplbind/internal/generator"
)

func formatResultStatus(status generator.Status) string {
	label, r := statusLabelForResult(status)
	return colorize(formatStatusLabel(label, string(status)), r)
}

func statusLabelForResult(status generator.Status) (string, role) {
	switch status {
	case generator.StatusCompiled:
		return "OK", roleSuccess
	case generator.StatusSkipped:
		return "SKIP", roleMuted
	case generator.StatusFailed:
		return "ERR", roleError
	default:
		return "WARN", roleWarning
	}
}

func formatStatusLabel(label, status string) string {
	normalized := strings.TrimSpace(status)
	if normalized != "" {
		normalized = strings.ReplaceAll(normalized, "_", " ")
	}
	if normalized == "" {
		return label
	}
	return fmt.Sprintf("%s %s", label, normalized)
}
