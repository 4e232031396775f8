package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-commander/core/tasks"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#01cdfe"))
	keywordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))
	hintStyle    = lipgloss.NewStyle().Faint(true)
)

// banner lists the voice commands the commander listens for.
func banner(table *tasks.Table, stopKeywords []string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Available voice commands:"))
	b.WriteString("\n")
	for _, d := range table.Descriptors() {
		fmt.Fprintf(&b, "  %s -> %s\n", keywordStyle.Render("'"+d.Key+"'"), d.Name)
	}
	if len(stopKeywords) > 0 {
		fmt.Fprintf(&b, "  %s -> Stop current task\n", keywordStyle.Render("'"+stopKeywords[0]+"'"))
	}
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("Press Ctrl+C to quit"))
	return b.String()
}
