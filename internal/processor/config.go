package processor

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Default detection parameters, matching the JaDe lab tool
const (
	DefaultThresholdMultiplier = 1.7
	DefaultMinLength           = 0.35 // seconds
)

// DetectionConfig holds the two user-facing tuning parameters. The absolute
// threshold and the minimum peak distance are derived per recording.
type DetectionConfig struct {
	// ThresholdMultiplier scales the mean absolute amplitude of the recording
	// to give the detection threshold
	ThresholdMultiplier float64

	// MinLength is the suppression window after each peak, in seconds
	MinLength float64

	// MainsHz is the mains frequency probed for hum (0 disables the probe)
	MainsHz int
}

// DefaultDetectionConfig returns the stock parameters
func DefaultDetectionConfig() *DetectionConfig {
	return &DetectionConfig{
		ThresholdMultiplier: DefaultThresholdMultiplier,
		MinLength:           DefaultMinLength,
		MainsHz:             50,
	}
}

// Threshold returns multiplier × mean(|samples|)
func (c *DetectionConfig) Threshold(samples []float64) float64 {
	return c.ThresholdMultiplier * MeanAbs(samples)
}

// MinDistance returns the suppression window in samples, rounded to the
// nearest sample. Negative lengths give zero; windows too large for an int
// saturate at math.MaxInt.
func (c *DetectionConfig) MinDistance(sampleRate float64) int {
	d := math.Round(c.MinLength * sampleRate)
	if d < 0 || math.IsNaN(d) {
		return 0
	}
	if d >= math.MaxInt {
		return math.MaxInt
	}
	return int(d)
}

// MeanAbs returns the mean absolute amplitude; an empty signal gives 0
func MeanAbs(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return floats.Norm(samples, 1) / float64(len(samples))
}

// MultiplierForThreshold converts an absolute threshold back into a
// multiplier of the mean absolute amplitude, rounded to two decimals.
// Detection is re-run from the rounded multiplier, so the effective threshold
// snaps to the value a user would see in the parameter field.
func MultiplierForThreshold(threshold, meanAbs float64) float64 {
	if meanAbs == 0 {
		return 0
	}
	return math.Round(threshold/meanAbs*100) / 100
}
