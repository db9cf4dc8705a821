// Package logging writes the per-recording outputs: DAT interval reports,
// text analysis reports and the console summary.
// This file holds the aligned table formatting shared by the reports.

package logging

import (
	"fmt"
	"math"
	"strings"
)

// MetricRow is one labelled row of a MetricTable.
// Values are pre-formatted so a row can mix precisions.
type MetricRow struct {
	Label          string   // e.g. "Mean interval"
	Values         []string // one per header
	Unit           string   // "ms", "dBFS", "" for unitless
	Interpretation string   // optional trailing note
}

// MetricTable renders rows of values under right-aligned column headers
type MetricTable struct {
	Headers []string
	Rows    []MetricRow
}

// NewMetricTable creates a table with the given value column headers.
// With no headers a single "Value" column is used.
func NewMetricTable(headers ...string) *MetricTable {
	if len(headers) == 0 {
		headers = []string{"Value"}
	}
	return &MetricTable{Headers: headers}
}

// AddRow appends a row of pre-formatted values
func (t *MetricTable) AddRow(label string, values []string, unit string, interpretation string) {
	t.Rows = append(t.Rows, MetricRow{
		Label:          label,
		Values:         values,
		Unit:           unit,
		Interpretation: interpretation,
	})
}

// AddMetricRow appends a row of numbers formatted with formatMetric.
// NaN marks a missing value.
func (t *MetricTable) AddMetricRow(label string, values []float64, decimals int, unit string, interpretation string) {
	formatted := make([]string, len(values))
	for i, v := range values {
		formatted[i] = formatMetric(v, decimals)
	}
	t.AddRow(label, formatted, unit, interpretation)
}

// String renders the table. Labels and units are left-aligned, values are
// right-aligned, and the interpretation column appears only when used.
func (t *MetricTable) String() string {
	if len(t.Rows) == 0 {
		return ""
	}

	labelWidth, unitWidth := 0, 0
	hasNotes := false
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		labelWidth = max(labelWidth, len(row.Label))
		unitWidth = max(unitWidth, len(row.Unit))
		hasNotes = hasNotes || row.Interpretation != ""
		for i := range widths {
			widths[i] = max(widths[i], len(cell(row.Values, i)))
		}
	}

	var sb, header strings.Builder

	header.WriteString(strings.Repeat(" ", labelWidth+2))
	for i, h := range t.Headers {
		fmt.Fprintf(&header, "%*s  ", widths[i], h)
	}
	if hasNotes {
		if unitWidth > 0 {
			header.WriteString(strings.Repeat(" ", unitWidth+1))
		}
		header.WriteString("Interpretation")
	}
	sb.WriteString(strings.TrimRight(header.String(), " "))
	sb.WriteString("\n")

	for _, row := range t.Rows {
		var line strings.Builder
		fmt.Fprintf(&line, "%-*s  ", labelWidth, row.Label)
		for i := range t.Headers {
			fmt.Fprintf(&line, "%*s  ", widths[i], cell(row.Values, i))
		}
		if unitWidth > 0 {
			fmt.Fprintf(&line, "%-*s ", unitWidth, row.Unit)
		}
		line.WriteString(row.Interpretation)
		sb.WriteString(strings.TrimRight(line.String(), " "))
		sb.WriteString("\n")
	}

	return sb.String()
}

// cell returns the i'th value or MissingValue
func cell(values []string, i int) string {
	if i < len(values) && values[i] != "" {
		return values[i]
	}
	return MissingValue
}

// MissingValue is shown for unavailable measurements
const MissingValue = "-"

// SilenceFloorDB is the dBFS level reported as digital silence
const SilenceFloorDB = -120.0

// formatMetric formats value to decimals places. Tiny non-zero values switch
// to scientific notation; NaN and Inf become MissingValue.
func formatMetric(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	if value != 0 && math.Abs(value) < 0.0001 {
		return fmt.Sprintf("%.2e", value)
	}
	return fmt.Sprintf("%.*f", decimals, value)
}

// formatMetricDB formats a dBFS level, showing "< -120" at the silence floor
func formatMetricDB(value float64, decimals int) string {
	switch {
	case math.IsNaN(value) || math.IsInf(value, 1):
		return MissingValue
	case math.IsInf(value, -1) || value <= SilenceFloorDB:
		return "< -120"
	}
	return fmt.Sprintf("%.*f", decimals, value)
}

// formatMetricSigned always shows the sign, e.g. "+0.0012"
func formatMetricSigned(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return MissingValue
	}
	return fmt.Sprintf("%+.*f", decimals, value)
}

// formatMetricPercent formats a 0-1 ratio as a percentage
func formatMetricPercent(ratio float64, decimals int) string {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return MissingValue
	}
	return fmt.Sprintf("%.*f%%", decimals, ratio*100)
}

// formatMetricWithUnit joins a formatted value and its unit
func formatMetricWithUnit(value float64, decimals int, unit string) string {
	formatted := formatMetric(value, decimals)
	if formatted == MissingValue || unit == "" {
		return formatted
	}
	return formatted + " " + unit
}
