// This file provides the console output used when the TUI is disabled.

package logging

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/linuxmatters/jadepulse/internal/processor"
)

// DisplayResult prints a short summary of one processed recording
func DisplayResult(w io.Writer, r *processor.ProcessingResult) {
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "PULSES: %s\n", filepath.Base(r.InputPath))
	fmt.Fprintln(w, strings.Repeat("=", 70))

	fmt.Fprintf(w, "Duration:    %s\n", formatDuration(r.Buffer.Duration()))
	fmt.Fprintf(w, "Sample Rate: %.0f Hz\n", r.Buffer.SampleRate)
	if r.Metadata != nil {
		fmt.Fprintf(w, "Channels:    %s\n", channelName(r.Metadata.Channels))
	}
	fmt.Fprintln(w)

	writeAnalysisSection(w, "DETECTION")
	fmt.Fprintf(w, "  Multiplier:     %.2f (threshold %s)\n", r.Config.ThresholdMultiplier, formatMetric(r.Threshold, 5))
	fmt.Fprintf(w, "  Min length:     %.3fs (%d samples)\n", r.Config.MinLength, r.MinDistance)
	fmt.Fprintf(w, "  Pulses:         %d\n", len(r.Peaks))
	if r.Stats.Count > 0 {
		fmt.Fprintf(w, "  Mean interval:  %s ± %s\n",
			formatMetricWithUnit(r.Stats.Mean, 1, "ms"), formatMetricWithUnit(r.Stats.StdDev, 1, "ms"))
		fmt.Fprintf(w, "  Range:          %s - %s\n",
			formatMetricWithUnit(r.Stats.Min, 1, "ms"), formatMetricWithUnit(r.Stats.Max, 1, "ms"))
	}
	fmt.Fprintln(w)

	if m := r.Measurements; m != nil {
		writeAnalysisSection(w, "SIGNAL")
		fmt.Fprintf(w, "  Peak / RMS:     %s / %s dBFS\n", formatMetricDB(m.PeakDB, 1), formatMetricDB(m.RMSDB, 1))
		if m.HumHz > 0 {
			fmt.Fprintf(w, "  Mains hum:      %s (%s)\n", formatMetricPercent(m.HumRatio, 1), interpretHum(m.HumRatio, m.HumHz))
		}
		fmt.Fprintln(w)
	}

	if tips := GenerateRecordingTips(r); len(tips) > 0 {
		writeAnalysisSection(w, "TIPS")
		for _, tip := range tips {
			fmt.Fprintf(w, "  - %s\n", wrapText(tip.Message, 66, "    "))
		}
		fmt.Fprintln(w)
	}
}

// DisplayBatchSummary prints the closing line of a batch run
func DisplayBatchSummary(w io.Writer, processed, failed, pulses int) {
	fmt.Fprintf(w, "Processed %d file(s), %d pulse(s) detected", processed, pulses)
	if failed > 0 {
		fmt.Fprintf(w, ", %d failed", failed)
	}
	fmt.Fprintln(w)
}

// writeAnalysisSection writes a section header for console output.
func writeAnalysisSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
}
