package ui

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/linuxmatters/jadepulse/internal/processor"
)

// Color palette
var (
	jadeColor  = lipgloss.Color("#00A86B")
	amberColor = lipgloss.Color("#FFA500")
	errorColor = lipgloss.Color("#C0392B")
	mutedColor = lipgloss.Color("#888888")
)

// renderProcessingView renders the main processing view
func renderProcessingView(m Model) string {
	var b strings.Builder

	b.WriteString(renderHeader(m))
	b.WriteString("\n\n")

	b.WriteString(renderFileQueue(m))
	b.WriteString("\n\n")

	b.WriteString(renderOverallProgress(m))

	return b.String()
}

// renderHeader renders the application header
func renderHeader(m Model) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(jadeColor).
		Render("JadePulse - Pulse Interval Detector")

	subtitle := lipgloss.NewStyle().
		Foreground(mutedColor).
		Italic(true).
		Render(fmt.Sprintf("Processing %d recording(s)", m.TotalFiles))

	return title + "\n" + subtitle
}

// renderFileQueue renders the list of files with their status
func renderFileQueue(m Model) string {
	var b strings.Builder

	for _, file := range m.Files {
		b.WriteString(renderFileEntry(file))
		b.WriteString("\n")
	}

	return b.String()
}

// renderFileEntry renders a single file entry in the queue
func renderFileEntry(file FileProgress) string {
	fileName := filepath.Base(file.InputPath)

	switch {
	case file.Status == StatusComplete:
		icon := lipgloss.NewStyle().Foreground(jadeColor).Render("✓")
		return fmt.Sprintf(" %s %s\n   %s", icon, fileName, summariseFile(file))

	case file.Active():
		icon := lipgloss.NewStyle().Foreground(amberColor).Render("⚙")
		return fmt.Sprintf(" %s %s\n%s", icon, fileName, renderFileDetails(file))

	case file.Status == StatusError:
		icon := lipgloss.NewStyle().Foreground(errorColor).Render("✗")
		return fmt.Sprintf(" %s %s\n   Error: %v", icon, fileName, file.Error)

	default:
		icon := lipgloss.NewStyle().Foreground(mutedColor).Render("○")
		return fmt.Sprintf(" %s %s\n   Queued...", icon, fileName)
	}
}

// summariseFile gives the one-line result of a completed file
func summariseFile(file FileProgress) string {
	if file.Pulses < 2 || math.IsNaN(file.MeanInterval) {
		return fmt.Sprintf("%d pulse(s) | no intervals", file.Pulses)
	}
	return fmt.Sprintf("%d pulses | mean interval %.1f ms | CV %.2f",
		file.Pulses, file.MeanInterval, file.CV)
}

// renderFileDetails renders detailed progress for the active file
func renderFileDetails(file FileProgress) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(jadeColor).
		Padding(0, 1).
		Width(60)

	var content strings.Builder

	passName := file.PassName
	if passName == "" {
		passName = processor.PassNames[processor.PassDecode]
	}
	pass := max(file.CurrentPass, 1)
	content.WriteString(fmt.Sprintf("Pass %d/%d: %s\n", pass, len(processor.PassNames), passName))

	content.WriteString(renderProgressBar(file.Progress, 40))
	content.WriteString("\n\n")

	content.WriteString(fmt.Sprintf("⏱  Elapsed: %.1fs", file.ElapsedTime.Seconds()))

	if m := file.Measurements; m != nil {
		content.WriteString(fmt.Sprintf("\n📊 RMS: %.1f dBFS | Peak: %.1f dBFS", m.RMSDB, m.PeakDB))
		if m.ClippedSamples > 0 {
			content.WriteString(fmt.Sprintf(" | %d clipped", m.ClippedSamples))
		}
	}

	return box.Render(content.String())
}

// renderProgressBar renders a progress bar
func renderProgressBar(progress float64, width int) string {
	progress = math.Max(0, math.Min(1, progress))
	filled := int(progress * float64(width))
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	percentage := int(progress * 100)

	return fmt.Sprintf("%s %d%%", bar, percentage)
}

// renderOverallProgress renders the overall progress footer
func renderOverallProgress(m Model) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(mutedColor).
		Padding(0, 1).
		Width(60)

	var content string
	if m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Files) {
		content = fmt.Sprintf("Processing file %d of %d (%d complete, %d pulses)",
			m.CurrentIndex+1, m.TotalFiles, m.CompletedFiles, m.TotalPulses)
	} else {
		content = fmt.Sprintf("Overall Progress: %d/%d complete", m.CompletedFiles, m.TotalFiles)
	}

	return box.Render(content)
}

// renderCompletionSummary renders the final completion summary
func renderCompletionSummary(m Model) string {
	var b strings.Builder

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(jadeColor).
		Render("✨ Detection Complete!")
	b.WriteString(header)
	b.WriteString("\n\n")

	for _, file := range m.Files {
		switch file.Status {
		case StatusComplete:
			b.WriteString(renderCompletedFile(file))
			b.WriteString("\n")
		case StatusError:
			b.WriteString(renderFileEntry(file))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 60))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%d of %d recording(s) processed, %d pulse(s) detected",
		m.CompletedFiles, m.TotalFiles, m.TotalPulses))
	if m.FailedFiles > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf(", %d failed", m.FailedFiles)))
	}
	b.WriteString("\n")

	return b.String()
}

// renderCompletedFile renders a summary for a completed file
func renderCompletedFile(file FileProgress) string {
	icon := lipgloss.NewStyle().Foreground(jadeColor).Render("✓")

	exports := make([]string, len(file.Exports))
	for i, e := range file.Exports {
		exports[i] = filepath.Base(e)
	}
	out := fmt.Sprintf(" %s %s\n   %s", icon, filepath.Base(file.InputPath), summariseFile(file))
	if len(exports) > 0 {
		out += "\n   → " + strings.Join(exports, ", ")
	}
	return out
}
