package processor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/linuxmatters/jadepulse/internal/audio"
)

// Processing passes reported to the progress callback
const (
	PassDecode  = 1
	PassMeasure = 2
	PassDetect  = 3
)

// PassNames maps pass numbers to display names
var PassNames = map[int]string{
	PassDecode:  "Decoding",
	PassMeasure: "Measuring",
	PassDetect:  "Detecting",
}

// ProgressFunc receives progress updates. progress runs 0.0 to 1.0 within a
// pass; level is the recording RMS in dBFS once known (0 before that).
type ProgressFunc func(pass int, passName string, progress float64, level float64, measurements *AudioMeasurements)

// ProcessingResult holds everything derived from one recording
type ProcessingResult struct {
	InputPath string
	Metadata  *audio.Metadata
	Buffer    *audio.SampleBuffer
	Config    DetectionConfig // copy of the parameters used

	Threshold   float64 // absolute amplitude
	MinDistance int     // samples

	Peaks      []int     // sample indices
	PulseTimes []float64 // seconds
	Intervals  []float64 // milliseconds
	Stats      IntervalStats

	Measurements *AudioMeasurements
}

// PeakAmplitudes returns the sample value at each detected peak
func (r *ProcessingResult) PeakAmplitudes() []float64 {
	amps := make([]float64, len(r.Peaks))
	for i, p := range r.Peaks {
		amps[i] = r.Buffer.Samples[p]
	}
	return amps
}

// Stem returns the input file name without directory or extension
func (r *ProcessingResult) Stem() string {
	name := filepath.Base(r.InputPath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// OutputBase returns the path prefix for exports: the input path without its
// extension, or the stem inside outputDir when one is given.
// Example: /data/rec1.wav → /data/rec1
func (r *ProcessingResult) OutputBase(outputDir string) string {
	if outputDir == "" {
		return strings.TrimSuffix(r.InputPath, filepath.Ext(r.InputPath))
	}
	return filepath.Join(outputDir, r.Stem())
}

// ProcessAudio runs the full pipeline on one WAV file:
// - Pass 1: decode to mono (first channel)
// - Pass 2: measure level, DC offset, clipping and mains hum
// - Pass 3: derive threshold and window, detect peaks, compute intervals
//
// A decode failure is returned as an error and affects only this file.
// If progress is not nil, it is called at the start and end of every pass.
func ProcessAudio(ctx context.Context, inputPath string, config *DetectionConfig, progress ProgressFunc) (*ProcessingResult, error) {
	report := func(pass int, p float64, level float64, m *AudioMeasurements) {
		if progress != nil {
			progress(pass, PassNames[pass], p, level, m)
		}
	}

	report(PassDecode, 0.0, 0.0, nil)
	buf, metadata, err := audio.LoadMono(inputPath)
	if err != nil {
		return nil, fmt.Errorf("Pass 1 failed: %w", err)
	}
	report(PassDecode, 1.0, 0.0, nil)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := processBuffer(ctx, buf, config, report)
	if err != nil {
		return nil, err
	}
	result.InputPath = inputPath
	result.Metadata = metadata

	return result, nil
}

// ProcessBuffer runs measurement and detection on an already decoded buffer.
// Used when only the parameters change.
func ProcessBuffer(buf *audio.SampleBuffer, config *DetectionConfig) *ProcessingResult {
	// background context never cancels, so the error is always nil
	result, _ := processBuffer(context.Background(), buf, config, func(int, float64, float64, *AudioMeasurements) {})
	return result
}

func processBuffer(ctx context.Context, buf *audio.SampleBuffer, config *DetectionConfig, report func(pass int, p float64, level float64, m *AudioMeasurements)) (*ProcessingResult, error) {
	report(PassMeasure, 0.0, 0.0, nil)
	measurements := AnalyzeSamples(buf.Samples, buf.SampleRate, config.MainsHz)
	report(PassMeasure, 1.0, measurements.RMSDB, measurements)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report(PassDetect, 0.0, measurements.RMSDB, measurements)
	threshold := config.ThresholdMultiplier * measurements.MeanAbs
	minDistance := config.MinDistance(buf.SampleRate)
	result := detect(buf, *config, threshold, minDistance)
	result.Measurements = measurements
	report(PassDetect, 1.0, measurements.RMSDB, measurements)

	return result, nil
}

// detect runs the peak scan and derives times, intervals and statistics
func detect(buf *audio.SampleBuffer, config DetectionConfig, threshold float64, minDistance int) *ProcessingResult {
	peaks := DetectPeaks(buf.Samples, threshold, minDistance)
	intervals := ComputeIntervals(peaks, buf.SampleRate)

	return &ProcessingResult{
		Buffer:      buf,
		Config:      config,
		Threshold:   threshold,
		MinDistance: minDistance,
		Peaks:       peaks,
		PulseTimes:  PulseTimes(peaks, buf.SampleRate),
		Intervals:   intervals,
		Stats:       SummariseIntervals(intervals),
	}
}
