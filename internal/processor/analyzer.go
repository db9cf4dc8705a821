// Package processor handles pulse detection and signal analysis
package processor

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// Analysis constants
const (
	// ClipLevel is the absolute amplitude treated as a clipped sample
	ClipLevel = 0.999

	// maxHumWindow caps the FFT length used for the hum probe
	maxHumWindow = 1 << 16

	// minHumWindow is the shortest signal we bother probing for hum
	minHumWindow = 1 << 10

	// humHarmonics is the number of mains harmonics (fundamental included) summed
	humHarmonics = 3
)

// AudioMeasurements contains whole-recording statistics gathered before detection.
// The detection threshold is derived from MeanAbs; the rest feeds the report and tips.
type AudioMeasurements struct {
	MeanAbs        float64 `json:"mean_abs"`        // Mean absolute amplitude (linear)
	PeakAbs        float64 `json:"peak_abs"`        // Largest absolute sample (linear)
	RMS            float64 `json:"rms"`             // Root mean square (linear)
	PeakDB         float64 `json:"peak_db"`         // PeakAbs in dBFS
	RMSDB          float64 `json:"rms_db"`          // RMS in dBFS
	CrestDB        float64 `json:"crest_db"`        // PeakDB - RMSDB; pulse recordings are very peaky
	DCOffset       float64 `json:"dc_offset"`       // Signed mean (linear)
	ClippedSamples int     `json:"clipped_samples"` // Samples at or above ClipLevel

	// Mains hum probe
	HumHz    int     `json:"hum_hz"`    // Fundamental probed (0 when skipped)
	HumRatio float64 `json:"hum_ratio"` // Fraction of spectral energy at the mains harmonics (0-1)
}

// AnalyzeSamples measures a decoded mono signal. mainsHz selects the hum probe
// frequency; pass 0 to skip it.
func AnalyzeSamples(samples []float64, sampleRate float64, mainsHz int) *AudioMeasurements {
	m := &AudioMeasurements{
		PeakDB: LinearToDb(0),
		RMSDB:  LinearToDb(0),
	}
	n := len(samples)
	if n == 0 {
		return m
	}

	m.MeanAbs = MeanAbs(samples)
	m.PeakAbs = math.Max(floats.Max(samples), -floats.Min(samples))
	m.RMS = floats.Norm(samples, 2) / math.Sqrt(float64(n))
	m.DCOffset = floats.Sum(samples) / float64(n)

	for _, s := range samples {
		if math.Abs(s) >= ClipLevel {
			m.ClippedSamples++
		}
	}

	m.PeakDB = LinearToDb(m.PeakAbs)
	m.RMSDB = LinearToDb(m.RMS)
	if m.RMS > 0 {
		m.CrestDB = m.PeakDB - m.RMSDB
	}

	if mainsHz > 0 {
		if ratio, ok := humRatio(samples, sampleRate, mainsHz); ok {
			m.HumHz = mainsHz
			m.HumRatio = ratio
		}
	}

	return m
}

// humRatio returns the share of spectral power in the bins around the mains
// fundamental and its harmonics. The window is the largest power of two that
// fits, capped at maxHumWindow samples from the start of the recording.
func humRatio(samples []float64, sampleRate float64, mainsHz int) (float64, bool) {
	if sampleRate <= 0 {
		return 0, false
	}

	n := 1
	for n*2 <= len(samples) && n*2 <= maxHumWindow {
		n *= 2
	}
	if n < minHumWindow {
		return 0, false
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, samples[:n])

	// skip DC; it is reported separately
	power := make([]float64, len(coeff))
	for k := 1; k < len(coeff); k++ {
		mag := cmplx.Abs(coeff[k])
		power[k] = mag * mag
	}
	total := floats.Sum(power)
	if total == 0 {
		return 0, false
	}

	var hum float64
	seen := make(map[int]bool)
	for h := 1; h <= humHarmonics; h++ {
		centre := int(math.Round(float64(h*mainsHz) * float64(n) / sampleRate))
		for k := centre - 1; k <= centre+1; k++ {
			if k < 1 || k >= len(power) || seen[k] {
				continue
			}
			seen[k] = true
			hum += power[k]
		}
	}

	return hum / total, true
}

// DbToLinear converts a decibel value to linear amplitude.
func DbToLinear(db float64) float64 {
	return math.Pow(10, db/20.0)
}

// LinearToDb converts linear amplitude to decibels.
// Inverse of DbToLinear.
func LinearToDb(linear float64) float64 {
	if linear <= 0 {
		return -120.0 // Practical floor for audio
	}
	return 20.0 * math.Log10(linear)
}
