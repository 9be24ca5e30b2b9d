package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// paletteTokens defines the semantic color roles of terminal output.
type paletteTokens struct {
	Text      string
	TextMuted string
	Accent    string
	Success   string
	Warning   string
	Error     string
	Info      string
}

var palettes = map[string]paletteTokens{
	"default": {
		Text:      "#E6EDF3",
		TextMuted: "#8B9AAE",
		Accent:    "#5B8DEF",
		Success:   "#3FB950",
		Warning:   "#D29922",
		Error:     "#F85149",
		Info:      "#58A6FF",
	},
	"high-contrast": {
		Text:      "#FFFFFF",
		TextMuted: "#C0C0C0",
		Accent:    "#00A2FF",
		Success:   "#00FF5A",
		Warning:   "#FFB000",
		Error:     "#FF4040",
		Info:      "#66CCFF",
	},
}

type role int

const (
	roleTitle role = iota
	roleMuted
	roleAccent
	roleSuccess
	roleWarning
	roleError
	roleInfo
)

type outputStyles map[role]lipgloss.Style

func buildStyles(tokens paletteTokens) outputStyles {
	return outputStyles{
		roleTitle:   lipgloss.NewStyle().Foreground(lipgloss.Color(tokens.Text)).Bold(true),
		roleMuted:   lipgloss.NewStyle().Foreground(lipgloss.Color(tokens.TextMuted)),
		roleAccent:  lipgloss.NewStyle().Foreground(lipgloss.Color(tokens.Accent)),
		roleSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color(tokens.Success)),
		roleWarning: lipgloss.NewStyle().Foreground(lipgloss.Color(tokens.Warning)),
		roleError:   lipgloss.NewStyle().Foreground(lipgloss.Color(tokens.Error)).Bold(true),
		roleInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color(tokens.Info)),
	}
}

// currentStyles picks the palette named by TMPLBIND_THEME.
func currentStyles() outputStyles {
	name := strings.ToLower(strings.TrimSpace(os.Getenv("TMPLBIND_THEME")))
	tokens, ok := palettes[name]
	if !ok {
		tokens = palettes["default"]
	}
	return buildStyles(tokens)
}

func colorEnabled() bool {
	if noColor || IsJSONOutput() || IsJSONLOutput() {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return hasTTY()
}

func colorize(text string, r role) string {
	if !colorEnabled() {
		return text
	}
	return currentStyles()[r].Render(text)
}
