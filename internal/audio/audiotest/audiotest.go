// Package audiotest generates synthetic WAV files for tests
package audiotest

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Options configures the synthetic recording to generate
type Options struct {
	SampleRate int       // default: 8000
	BitDepth   int       // 8, 16, 24 or 32 (default: 16)
	Channels   int       // default: 1; extra channels carry Other
	Other      []float64 // optional content for channels > 0 (defaults to silence)
}

// PulseTrain builds a mono signal of the given length with a single-sample
// click of the given amplitude at each position in pulses.
func PulseTrain(length int, amplitude float64, pulses ...int) []float64 {
	samples := make([]float64, length)
	for _, p := range pulses {
		if p >= 0 && p < length {
			samples[p] = amplitude
		}
	}
	return samples
}

// Burst writes a decaying sine burst of n samples starting at start.
// The burst peak lands on the first sample.
func Burst(samples []float64, start, n int, amplitude, freqHz, sampleRate float64) {
	for i := 0; i < n && start+i < len(samples); i++ {
		decay := math.Exp(-4 * float64(i) / float64(n))
		phase := 2 * math.Pi * freqHz * float64(i) / sampleRate
		samples[start+i] = amplitude * decay * math.Cos(phase)
	}
}

// WriteWAV encodes samples (range -1..1) into name inside t.TempDir() and
// returns the full path.
func WriteWAV(t testing.TB, name string, samples []float64, opts Options) string {
	t.Helper()

	if opts.SampleRate == 0 {
		opts.SampleRate = 8000
	}
	if opts.BitDepth == 0 {
		opts.BitDepth = 16
	}
	if opts.Channels == 0 {
		opts.Channels = 1
	}

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	data := make([]int, len(samples)*opts.Channels)
	for i, s := range samples {
		data[i*opts.Channels] = quantise(s, opts.BitDepth)
		for c := 1; c < opts.Channels; c++ {
			var other float64
			if i < len(opts.Other) {
				other = opts.Other[i]
			}
			data[i*opts.Channels+c] = quantise(other, opts.BitDepth)
		}
	}

	enc := wav.NewEncoder(f, opts.SampleRate, opts.BitDepth, opts.Channels, 1)
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: opts.Channels, SampleRate: opts.SampleRate},
		SourceBitDepth: opts.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav encoder: %v", err)
	}

	return path
}

// quantise maps a float sample onto the integer range of the bit depth
func quantise(v float64, bitDepth int) int {
	v = math.Max(-1, math.Min(v, 1))
	if bitDepth == 8 {
		return int(math.Round(v*127)) + 128
	}
	full := math.Exp2(float64(bitDepth - 1))
	q := int(math.Round(v * full))
	if q > int(full)-1 {
		q = int(full) - 1
	}
	return q
}
