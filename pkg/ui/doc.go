// Package ui renders the CLI's human-facing output with lipgloss styles.
// Diagnostics go through the logger; the printer is for the short status
// lines and the final summary panel.
package ui
