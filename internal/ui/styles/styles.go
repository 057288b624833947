// Package styles contains Lip Gloss color definitions shared by the editor.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Semantic color names - Text hierarchy
	TextPrimaryColor     = lipgloss.AdaptiveColor{Light: "#1F1F1F", Dark: "#CCCCCC"} // Buffer text
	TextSecondaryColor   = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BBBBBB"} // Status line info
	TextMutedColor       = lipgloss.AdaptiveColor{Light: "#9A9A9A", Dark: "#696969"} // Line numbers, filler rows
	TextDescriptionColor = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"} // Debug log lines

	// Semantic color names - Border
	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#696969"}

	// Semantic color names - Status
	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"} // Mode indicator
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"} // Recording indicator
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"} // Errors

	// Cell decorations
	SelectionBgColor = lipgloss.AdaptiveColor{Light: "#C8D6E5", Dark: "#3A3A3A"}
	MatchBgColor     = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#D7AF00"}
	MatchFgColor     = lipgloss.AdaptiveColor{Light: "#1F1F1F", Dark: "#080808"}
)
