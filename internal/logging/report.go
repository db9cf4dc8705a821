package logging

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/linuxmatters/jadepulse/internal/processor"
)

// ============================================================================
// Interpretation helpers
// ============================================================================

// interpretCV describes how regular the interval series is
func interpretCV(cv float64) string {
	switch {
	case math.IsNaN(cv):
		return ""
	case cv < 0.05:
		return "very regular"
	case cv < 0.2:
		return "regular"
	case cv <= irregularCV:
		return "variable"
	default:
		return "irregular, check for missed or doubled pulses"
	}
}

// interpretCrest describes how far pulses stand above the background.
// Click trains are very peaky; a low crest means the pulses are buried.
func interpretCrest(db float64) string {
	switch {
	case db <= 0:
		return ""
	case db < 10:
		return "pulses barely above background"
	case db < 20:
		return "moderate pulse contrast"
	default:
		return "sharp, well separated pulses"
	}
}

func interpretHum(ratio float64, hz int) string {
	switch {
	case hz == 0:
		return "not measured"
	case ratio > humRatioAudible:
		return fmt.Sprintf("strong %d Hz hum", hz)
	case ratio > humRatioAudible/4:
		return fmt.Sprintf("some %d Hz hum", hz)
	default:
		return "clean"
	}
}

func interpretDCOffset(dc float64) string {
	if math.Abs(dc) > dcOffsetLimit {
		return "offset present"
	}
	return ""
}

// =============================================================================
// Report
// =============================================================================

// writeSection writes a title with a dashed underline of the same length
func writeSection(w io.Writer, title string) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("-", len(title)))
}

// ReportData contains everything needed to write an analysis report
type ReportData struct {
	InputPath string
	StartTime time.Time
	EndTime   time.Time
	Result    *processor.ProcessingResult
	Exports   []string // files written alongside the report
}

// ReportPath returns the report location for an output base:
// /data/rec1 → /data/rec1-analysis.txt
func ReportPath(base string) string {
	return base + "-analysis.txt"
}

// GenerateReport writes the analysis report to path.
//
// Report structure:
// 1. Header - file info and timestamp
// 2. Recording - format details
// 3. Detection Parameters - user parameters and the values derived from them
// 4. Signal Measurements - level, clipping, DC and hum table
// 5. Pulse Intervals - summary statistics
// 6. Pulse Listing - time and interval of every detected pulse
// 7. Recording Tips
func GenerateReport(path string, data ReportData) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}

	if err := WriteReport(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteReport renders the report to w
func WriteReport(w io.Writer, data ReportData) error {
	if data.Result == nil {
		return fmt.Errorf("no processing result for %s", data.InputPath)
	}
	r := data.Result

	writeReportHeader(w, data)
	writeRecordingInfo(w, r)
	writeDetectionParameters(w, r)
	writeMeasurementsTable(w, r.Measurements)
	writeIntervalSummary(w, r)
	writePulseListing(w, r)
	writeTips(w, GenerateRecordingTips(r))

	if len(data.Exports) > 0 {
		writeSection(w, "Exports")
		for _, p := range data.Exports {
			fmt.Fprintf(w, "  %s\n", filepath.Base(p))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeReportHeader(w io.Writer, data ReportData) {
	fmt.Fprintln(w, "JadePulse Analysis Report")
	fmt.Fprintln(w, "=========================")
	fmt.Fprintf(w, "File: %s\n", filepath.Base(data.InputPath))
	fmt.Fprintf(w, "Processed: %s\n", data.EndTime.Format("2006-01-02 15:04:05 MST"))
	if !data.StartTime.IsZero() && data.EndTime.After(data.StartTime) {
		fmt.Fprintf(w, "Processing time: %s\n", formatDuration(data.EndTime.Sub(data.StartTime)))
	}
	fmt.Fprintln(w)
}

func writeRecordingInfo(w io.Writer, r *processor.ProcessingResult) {
	writeSection(w, "Recording")

	if m := r.Metadata; m != nil {
		fmt.Fprintf(w, "Format:      %d-bit %s\n", m.BitDepth, m.SampleFmt)
		fmt.Fprintf(w, "Sample rate: %d Hz\n", m.SampleRate)
		channels := channelName(m.Channels)
		if m.Channels > 1 {
			channels += " (first channel analysed)"
		}
		fmt.Fprintf(w, "Channels:    %s\n", channels)
	} else if r.Buffer != nil {
		fmt.Fprintf(w, "Sample rate: %.0f Hz\n", r.Buffer.SampleRate)
	}
	fmt.Fprintf(w, "Duration:    %s (%d samples)\n", formatDuration(r.Buffer.Duration()), r.Buffer.Len())
	fmt.Fprintln(w)
}

func writeDetectionParameters(w io.Writer, r *processor.ProcessingResult) {
	writeSection(w, "Detection Parameters")

	table := NewMetricTable()
	table.AddMetricRow("Threshold multiplier", []float64{r.Config.ThresholdMultiplier}, 2, "", "x mean |amplitude|")
	table.AddRow("Threshold", []string{formatMetric(r.Threshold, 5)}, "", "absolute amplitude")
	table.AddMetricRow("Minimum pulse length", []float64{r.Config.MinLength}, 3, "s", "")
	table.AddRow("Minimum distance", []string{fmt.Sprintf("%d", r.MinDistance)}, "samples", "")
	fmt.Fprint(w, table.String())
	fmt.Fprintln(w)
}

func writeMeasurementsTable(w io.Writer, m *processor.AudioMeasurements) {
	writeSection(w, "Signal Measurements")
	if m == nil {
		fmt.Fprintln(w, "Not measured")
		fmt.Fprintln(w)
		return
	}

	table := NewMetricTable()
	table.AddMetricRow("Mean |amplitude|", []float64{m.MeanAbs}, 5, "", "")
	table.AddRow("Peak level", []string{formatMetricDB(m.PeakDB, 1)}, "dBFS", "")
	table.AddRow("RMS level", []string{formatMetricDB(m.RMSDB, 1)}, "dBFS", "")
	table.AddMetricRow("Crest factor", []float64{m.CrestDB}, 1, "dB", interpretCrest(m.CrestDB))
	table.AddRow("DC offset", []string{formatMetricSigned(m.DCOffset, 4)}, "", interpretDCOffset(m.DCOffset))
	table.AddRow("Clipped samples", []string{fmt.Sprintf("%d", m.ClippedSamples)}, "", "")

	hum := MissingValue
	if m.HumHz > 0 {
		hum = formatMetricPercent(m.HumRatio, 1)
	}
	table.AddRow("Mains hum", []string{hum}, "", interpretHum(m.HumRatio, m.HumHz))

	fmt.Fprint(w, table.String())
	fmt.Fprintln(w)
}

func writeIntervalSummary(w io.Writer, r *processor.ProcessingResult) {
	writeSection(w, "Pulse Intervals")

	fmt.Fprintf(w, "Pulses detected: %d\n", len(r.Peaks))
	if r.Stats.Count == 0 {
		fmt.Fprintln(w, "Intervals:       none (fewer than two pulses)")
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "Intervals:       %d\n\n", r.Stats.Count)

	s := r.Stats
	table := NewMetricTable()
	table.AddMetricRow("Mean", []float64{s.Mean}, 1, "ms", "")
	table.AddMetricRow("Std deviation", []float64{s.StdDev}, 1, "ms", "")
	table.AddMetricRow("Median", []float64{s.Median}, 1, "ms", "")
	table.AddMetricRow("Minimum", []float64{s.Min}, 1, "ms", "")
	table.AddMetricRow("Maximum", []float64{s.Max}, 1, "ms", "")
	table.AddMetricRow("Variation (CV)", []float64{s.CV}, 3, "", interpretCV(s.CV))
	fmt.Fprint(w, table.String())
	fmt.Fprintln(w)
}

func writePulseListing(w io.Writer, r *processor.ProcessingResult) {
	if len(r.Peaks) == 0 {
		return
	}
	writeSection(w, "Pulse Listing")

	amps := r.PeakAmplitudes()
	table := NewMetricTable("Sample", "Time", "Amplitude", "Interval")
	for i, p := range r.Peaks {
		interval := math.NaN()
		if i > 0 && i-1 < len(r.Intervals) {
			interval = r.Intervals[i-1]
		}
		table.AddRow(fmt.Sprintf("%d", i+1), []string{
			fmt.Sprintf("%d", p),
			formatMetric(r.Buffer.TimeAt(p), 4),
			formatMetric(amps[i], 4),
			formatMetric(interval, 1),
		}, "", "")
	}
	fmt.Fprint(w, table.String())
	fmt.Fprintln(w)
}

func writeTips(w io.Writer, tips []RecordingTip) {
	if len(tips) == 0 {
		return
	}
	writeSection(w, "Recording Tips")
	for i, tip := range tips {
		fmt.Fprintf(w, "%d. %s\n", i+1, wrapText(tip.Message, 72, "   "))
	}
	fmt.Fprintln(w)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}

// channelName returns a human-readable channel name
func channelName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", channels)
	}
}
