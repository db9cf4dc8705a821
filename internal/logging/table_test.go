package logging

import (
	"math"
	"strings"
	"testing"
)

func TestFormatMetric(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		decimals int
		want     string
	}{
		{"zero", 0.0, 2, "0.00"},
		{"interval", 412.638, 1, "412.6"},
		{"negative", -16.5, 1, "-16.5"},
		{"tiny_scientific", 0.00001, 2, "1.00e-05"},
		{"tiny_negative", -0.00001, 2, "-1.00e-05"},
		{"nan", math.NaN(), 2, MissingValue},
		{"inf", math.Inf(1), 2, MissingValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatMetric(tt.value, tt.decimals); got != tt.want {
				t.Errorf("formatMetric(%v, %d) = %q, want %q", tt.value, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestFormatMetricVariants(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"db", formatMetricDB(-6.02, 1), "-6.0"},
		{"db_floor", formatMetricDB(-120, 1), "< -120"},
		{"db_neg_inf", formatMetricDB(math.Inf(-1), 1), "< -120"},
		{"db_nan", formatMetricDB(math.NaN(), 1), MissingValue},
		{"signed_positive", formatMetricSigned(0.0012, 4), "+0.0012"},
		{"signed_negative", formatMetricSigned(-1.2, 1), "-1.2"},
		{"signed_nan", formatMetricSigned(math.NaN(), 1), MissingValue},
		{"percent", formatMetricPercent(0.253, 1), "25.3%"},
		{"percent_nan", formatMetricPercent(math.NaN(), 1), MissingValue},
		{"with_unit", formatMetricWithUnit(300, 1, "ms"), "300.0 ms"},
		{"no_unit", formatMetricWithUnit(12, 0, ""), "12"},
		{"nan_with_unit", formatMetricWithUnit(math.NaN(), 1, "ms"), MissingValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestMetricTableString(t *testing.T) {
	t.Run("single_column", func(t *testing.T) {
		table := NewMetricTable()
		table.AddRow("Pulses", []string{"12"}, "", "")
		table.AddRow("Mean interval", []string{"300.0"}, "ms", "")

		lines := strings.Split(strings.TrimRight(table.String(), "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
		}
		if lines[0] != strings.Repeat(" ", 15)+"Value" {
			t.Errorf("header = %q", lines[0])
		}
		if lines[1] != "Pulses"+strings.Repeat(" ", 12)+"12" {
			t.Errorf("row 1 = %q", lines[1])
		}
		if lines[2] != "Mean interval  300.0  ms" {
			t.Errorf("row 2 = %q", lines[2])
		}
	})

	t.Run("with_interpretation", func(t *testing.T) {
		table := NewMetricTable()
		table.AddRow("Mains hum", []string{"42.0%"}, "", "strong hum at 50 Hz")

		output := table.String()
		if !strings.Contains(output, "Interpretation") {
			t.Error("header should include Interpretation when a row has one")
		}
		if !strings.Contains(output, "strong hum at 50 Hz") {
			t.Error("interpretation text missing")
		}
	})

	t.Run("missing_values", func(t *testing.T) {
		table := NewMetricTable("First", "Second")
		table.AddRow("Metric", []string{"1.0"}, "", "")

		lines := strings.Split(table.String(), "\n")
		if !strings.HasSuffix(lines[1], " -") {
			t.Errorf("missing value should render as dash: %q", lines[1])
		}
	})

	t.Run("add_metric_row_nan", func(t *testing.T) {
		table := NewMetricTable("A", "B")
		table.AddMetricRow("Test", []float64{1.25, math.NaN()}, 2, "", "")

		lines := strings.Split(table.String(), "\n")
		if !strings.Contains(lines[1], "1.25") || !strings.HasSuffix(lines[1], " -") {
			t.Errorf("unexpected row %q", lines[1])
		}
	})

	t.Run("empty_table", func(t *testing.T) {
		if got := NewMetricTable().String(); got != "" {
			t.Errorf("empty table should render nothing, got %q", got)
		}
	})
}

func TestMetricTableAlignment(t *testing.T) {
	table := NewMetricTable("Count")
	table.AddRow("Short", []string{"1"}, "", "")
	table.AddRow("Much Longer Label", []string{"100"}, "", "")

	lines := strings.Split(strings.TrimRight(table.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}

	// right-aligned values end in the same column
	if len(lines[1]) != len(lines[2]) {
		t.Errorf("rows not aligned:\n%q\n%q", lines[1], lines[2])
	}
	if !strings.HasPrefix(lines[2], "Much Longer Label  ") {
		t.Errorf("label column too narrow: %q", lines[2])
	}
}
