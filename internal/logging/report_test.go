package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/linuxmatters/jadepulse/internal/audio"
	"github.com/linuxmatters/jadepulse/internal/processor"
)

func processedClicks(t *testing.T) *processor.ProcessingResult {
	t.Helper()
	samples := make([]float64, 4000)
	for _, p := range []int{400, 1400, 2500, 3500} {
		samples[p] = 0.8
	}
	buf := &audio.SampleBuffer{Samples: samples, SampleRate: 1000}
	cfg := &processor.DetectionConfig{ThresholdMultiplier: 1.7, MinLength: 0.35, MainsHz: 50}

	r := processor.ProcessBuffer(buf, cfg)
	r.InputPath = filepath.Join("data", "rec7.wav")
	r.Metadata = &audio.Metadata{SampleRate: 1000, Channels: 2, BitDepth: 16, SampleFmt: "s16"}
	return r
}

func TestWriteReport(t *testing.T) {
	r := processedClicks(t)
	end := time.Date(2025, time.January, 2, 10, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	err := WriteReport(&buf, ReportData{
		InputPath: r.InputPath,
		StartTime: end.Add(-2 * time.Second),
		EndTime:   end,
		Result:    r,
		Exports:   []string{filepath.Join("out", "rec7.dat"), filepath.Join("out", "rec7.jpg")},
	})
	if err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"JadePulse Analysis Report",
		"File: rec7.wav",
		"Processed: 2025-01-02 10:00:00 UTC",
		"Processing time: 2.0s",
		"stereo (first channel analysed)",
		"Detection Parameters",
		"Minimum distance",
		"350  samples",
		"Pulses detected: 4",
		"Intervals:       3",
		"Pulse Listing",
		"1100.0",
		"rec7.dat",
		"rec7.jpg",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestWriteReportNoPulses(t *testing.T) {
	buf := &audio.SampleBuffer{Samples: make([]float64, 2000), SampleRate: 1000}
	r := processor.ProcessBuffer(buf, processor.DefaultDetectionConfig())
	r.InputPath = "silent.wav"

	var out bytes.Buffer
	if err := WriteReport(&out, ReportData{InputPath: r.InputPath, EndTime: time.Now(), Result: r}); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	if !strings.Contains(s, "none (fewer than two pulses)") {
		t.Error("report should explain the missing intervals")
	}
	if strings.Contains(s, "Pulse Listing") {
		t.Error("no pulse listing expected without pulses")
	}
	if !strings.Contains(s, "Recording Tips") {
		t.Error("a silent recording should produce tips")
	}
}

func TestWriteReportNilResult(t *testing.T) {
	if err := WriteReport(&bytes.Buffer{}, ReportData{InputPath: "x.wav"}); err == nil {
		t.Error("expected an error without a result")
	}
}

func TestGenerateReport(t *testing.T) {
	r := processedClicks(t)
	path := ReportPath(filepath.Join(t.TempDir(), "rec7"))
	if !strings.HasSuffix(path, "rec7-analysis.txt") {
		t.Fatalf("ReportPath() = %q", path)
	}

	if err := GenerateReport(path, ReportData{InputPath: r.InputPath, EndTime: time.Now(), Result: r}); err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("report is empty")
	}
}

func TestDisplayResult(t *testing.T) {
	r := processedClicks(t)

	var buf bytes.Buffer
	DisplayResult(&buf, r)
	out := buf.String()

	for _, want := range []string{"PULSES: rec7.wav", "Pulses:         4", "Mean interval:", "Channels:    stereo"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
}

func TestDisplayBatchSummary(t *testing.T) {
	var buf bytes.Buffer
	DisplayBatchSummary(&buf, 3, 1, 42)
	if got, want := buf.String(), "Processed 3 file(s), 42 pulse(s) detected, 1 failed\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	buf.Reset()
	DisplayBatchSummary(&buf, 2, 0, 5)
	if strings.Contains(buf.String(), "failed") {
		t.Errorf("no failures should not be mentioned: %q", buf.String())
	}
}

func TestInterpretCV(t *testing.T) {
	tests := []struct {
		cv   float64
		want string
	}{
		{0.01, "very regular"},
		{0.1, "regular"},
		{0.4, "variable"},
		{0.9, "irregular, check for missed or doubled pulses"},
	}
	for _, tt := range tests {
		if got := interpretCV(tt.cv); got != tt.want {
			t.Errorf("interpretCV(%v) = %q, want %q", tt.cv, got, tt.want)
		}
	}
}
