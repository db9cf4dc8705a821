package ui

import (
	"github.com/linuxmatters/jadepulse/internal/processor"
)

// ProgressMsg represents a progress update from the processor
type ProgressMsg struct {
	Pass         int     // 1 to 3
	PassName     string  // "Decoding", "Measuring" or "Detecting"
	Progress     float64 // 0.0 to 1.0
	Level        float64 // RMS level in dBFS once measured
	Measurements *processor.AudioMeasurements
}

// FileStartMsg indicates a new file has started processing
type FileStartMsg struct {
	FileIndex int
	FileName  string
}

// FileCompleteMsg indicates a file has finished processing
type FileCompleteMsg struct {
	FileIndex    int
	Pulses       int
	MeanInterval float64 // ms, NaN with fewer than two pulses
	CV           float64
	Exports      []string
	Error        error
}

// AllCompleteMsg indicates all files have been processed
type AllCompleteMsg struct{}
