package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jamesainslie/pgtuner/pkg/pgtuner/types"
)

// scoreBarWidth is the width of the longest score bar.
const scoreBarWidth = 24

// PrettyFormatter formats the report with colors and styling using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Report) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	if len(r.Scores) > 0 {
		w.WriteString(f.formatScores(r))
		w.WriteString("\n")
	}

	w.WriteString(f.formatSettings(r))
	w.WriteString(f.formatFooter(r))

	if len(r.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Warnings))
	}

	return nil
}

// formatHeader builds the header box with run metadata.
func (f *PrettyFormatter) formatHeader(r *Report) string {
	var lines []string

	if r.Input != "" {
		lines = append(lines, field("Input:", r.Input))
	}
	if r.Source != "" {
		lines = append(lines, field("Metrics:", r.Source))
	}

	memory := types.FormatMemory(r.MemoryMB)
	if r.MemoryDetected {
		memory += MutedStyle.Render(" (detected)")
	}
	lines = append(lines, field("Memory:", memory))

	archetype := SelectedStyle.Render(r.Archetype.String())
	if r.Forced {
		archetype += MutedStyle.Render(" (forced)")
	} else if best, ok := r.Best(); ok {
		archetype += MutedStyle.Render(fmt.Sprintf(" (score %.3f)", best.Value))
	}
	lines = append(lines, LabelStyle.Render("Workload:")+" "+archetype)

	if r.DryRun {
		lines = append(lines, WarningStyle.Bold(true).Render("Dry run: nothing written"))
	}

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatScores renders one bar per archetype, scaled to the largest
// absolute score.
func (f *PrettyFormatter) formatScores(r *Report) string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Scores"))
	sb.WriteString("\n")

	var maxAbs float64
	for _, s := range r.Scores {
		if abs := absFloat(s.Value); abs > maxAbs {
			maxAbs = abs
		}
	}

	for _, s := range r.Scores {
		width := 0
		if maxAbs > 0 {
			width = int(absFloat(s.Value) / maxAbs * scoreBarWidth)
		}
		bar := strings.Repeat("█", width)
		name := padRight(s.Archetype.String(), 8)
		value := fmt.Sprintf("%7.3f", s.Value)

		style := ValueStyle
		if s.Archetype == r.Archetype {
			style = SelectedStyle
		}
		sb.WriteString(fmt.Sprintf("  %s %s %s\n", style.Render(name), style.Render(value), MutedStyle.Render(bar)))
	}

	return sb.String()
}

// formatSettings builds the KEY / VALUE / LINE table.
func (f *PrettyFormatter) formatSettings(r *Report) string {
	if len(r.Settings) == 0 && len(r.Skipped) == 0 {
		return MutedStyle.Render("  No settings computed\n")
	}

	keyWidth := len("SETTING")
	for _, s := range r.Settings {
		keyWidth = max(keyWidth, len(s.Key))
	}
	for _, k := range r.Skipped {
		keyWidth = max(keyWidth, len(k))
	}
	valueWidth := 8
	for _, s := range r.Settings {
		valueWidth = max(valueWidth, len(s.String()))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
		TableHeaderStyle.Render(padRight("SETTING", keyWidth)),
		TableHeaderStyle.Render(padLeft("VALUE", valueWidth)),
		TableHeaderStyle.Render("LINE")))

	for _, s := range r.Settings {
		var status string
		switch line, ok := r.Applied[s.Key]; {
		case ok:
			status = SuccessStyle.Render(fmt.Sprintf("%d", line))
		case contains(r.Unmatched, s.Key):
			status = WarningStyle.Render("unmatched")
		default:
			status = MutedStyle.Render("-")
		}
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
			ValueStyle.Render(padRight(s.Key, keyWidth)),
			SelectedStyle.Render(padLeft(s.String(), valueWidth)),
			status))
	}

	for _, k := range r.Skipped {
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n",
			MutedStyle.Render(padRight(k, keyWidth)),
			MutedStyle.Render(padLeft("-", valueWidth)),
			WarningStyle.Render("skipped")))
	}

	return sb.String()
}

// formatFooter builds the footer box with the write summary.
func (f *PrettyFormatter) formatFooter(r *Report) string {
	var parts []string

	parts = append(parts, field("Applied:", fmt.Sprintf("%d", len(r.Applied))))
	if len(r.Unmatched) > 0 {
		parts = append(parts, LabelStyle.Render("Unmatched:")+" "+
			WarningStyle.Render(fmt.Sprintf("%d (%s)", len(r.Unmatched), r.Policy)))
	}
	if r.Output != "" && !r.DryRun {
		parts = append(parts, field("Wrote:", r.Output))
	}
	if r.Duration > 0 {
		parts = append(parts, field("Took:", formatDuration(r.Duration.Seconds())))
	}
	if r.HistoryID != "" {
		parts = append(parts, MutedStyle.Render("run "+shortID(r.HistoryID)))
	}

	return FooterBox.Render(strings.Join(parts, "  "))
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
	sb.WriteString("\n")

	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

func field(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
}

// padLeft pads a string with spaces on the left to achieve the desired width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// padRight pads a string with spaces on the right to achieve the desired width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// formatDuration formats seconds in a human-friendly way.
func formatDuration(sec float64) string {
	if sec < 1 {
		return fmt.Sprintf("%.0fms", sec*1000)
	}
	if sec < 60 {
		return fmt.Sprintf("%.1fs", sec)
	}
	return fmt.Sprintf("%dm %ds", int(sec)/60, int(sec)%60)
}

// shortID returns the first block of a UUID.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
