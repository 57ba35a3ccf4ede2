package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Row is a label/value pair shown in a panel
type Row struct {
	Label string
	Value string
}

// Printer writes styled status lines for the CLI. A quiet printer only
// writes errors.
type Printer struct {
	out   io.Writer
	err   io.Writer
	quiet bool
}

// NewPrinter creates a printer writing to out and errors to errOut
func NewPrinter(out, errOut io.Writer, quiet bool) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{out: out, err: errOut, quiet: quiet}
}

// PrintInfo prints a label and value
func (p *Printer) PrintInfo(label, value string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "%s: %s\n", labelStyle.Render(label), valueStyle.Render(value))
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(msg string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, successStyle.Render(msg))
}

// PrintWarning prints a warning message
func (p *Printer) PrintWarning(msg string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, warningStyle.Render(msg))
}

// PrintError prints an error message, optionally followed by its cause
func (p *Printer) PrintError(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintln(p.err, errorStyle.Render(msg))
}

// PrintPanel prints rows inside a bordered panel headed by title
func (p *Printer) PrintPanel(title string, rows []Row) {
	if p.quiet {
		return
	}

	width := 0
	for _, r := range rows {
		if len(r.Label) > width {
			width = len(r.Label)
		}
	}

	lines := []string{titleStyle.Render(title)}
	for _, r := range rows {
		label := labelStyle.Render(r.Label + strings.Repeat(" ", width-len(r.Label)))
		lines = append(lines, label+"  "+valueStyle.Render(r.Value))
	}

	fmt.Fprintln(p.out, panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
}

// PrintDim prints secondary information
func (p *Printer) PrintDim(msg string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, dimStyle.Render(msg))
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// FormatBytes formats bytes in a human-readable way
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
