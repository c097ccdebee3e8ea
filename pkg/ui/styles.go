package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#1F5FAF", Dark: "#7AB8FF"})
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#1B7F3B", Dark: "#5FD787"})
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#FFD75F"})
	errorStyle = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#B42318", Dark: "#FF6B6B"})
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#6E7781", Dark: "#8B949E"})
)

// Title styles a heading.
func Title(s string) string { return titleStyle.Render(s) }

// OK styles a success message.
func OK(s string) string { return okStyle.Render(s) }

// Warn styles a warning.
func Warn(s string) string { return warnStyle.Render(s) }

// Error styles an error message.
func Error(s string) string { return errorStyle.Render(s) }

// Muted styles secondary text.
func Muted(s string) string { return mutedStyle.Render(s) }
