package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/jadepulse/internal/audio/audiotest"
)

func TestLoadMono(t *testing.T) {
	samples := []float64{0, 0.5, -0.5, 0.25, 0}

	tests := []struct {
		name      string
		bitDepth  int
		tolerance float64
		wantFmt   string
	}{
		{"16-bit", 16, 1.0 / 32768, "s16"},
		{"24-bit", 24, 1.0 / 8388608, "s24"},
		{"8-bit unsigned", 8, 1.0 / 64, "u8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := audiotest.WriteWAV(t, "mono.wav", samples, audiotest.Options{
				SampleRate: 8000,
				BitDepth:   tt.bitDepth,
			})

			buf, meta, err := LoadMono(path)
			require.NoError(t, err)

			assert.Equal(t, 8000.0, buf.SampleRate)
			assert.Equal(t, 8000, meta.SampleRate)
			assert.Equal(t, 1, meta.Channels)
			assert.Equal(t, tt.bitDepth, meta.BitDepth)
			assert.Equal(t, tt.wantFmt, meta.SampleFmt)
			assert.Equal(t, len(samples), meta.Frames)

			require.Len(t, buf.Samples, len(samples))
			for i, want := range samples {
				assert.InDelta(t, want, buf.Samples[i], tt.tolerance, "sample %d", i)
			}
		})
	}
}

func TestLoadMonoKeepsFirstChannel(t *testing.T) {
	left := []float64{0.1, 0.2, 0.3, 0.4}
	right := []float64{-0.9, -0.9, -0.9, -0.9}

	path := audiotest.WriteWAV(t, "stereo.wav", left, audiotest.Options{
		Channels: 2,
		Other:    right,
	})

	buf, meta, err := LoadMono(path)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Channels)

	require.Len(t, buf.Samples, len(left))
	for i, want := range left {
		assert.InDelta(t, want, buf.Samples[i], 1e-4)
	}
}

func TestLoadMonoErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, _, err := LoadMono(filepath.Join(t.TempDir(), "nope.wav"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("not a wav", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.wav")
		require.NoError(t, os.WriteFile(path, []byte("this is not audio at all, just text"), 0o644))

		_, _, err := LoadMono(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidWAV)
	})

	t.Run("no data chunk", func(t *testing.T) {
		// RIFF/WAVE with a 16-bit mono fmt chunk and nothing after it
		var b bytes.Buffer
		b.WriteString("RIFF")
		require.NoError(t, binary.Write(&b, binary.LittleEndian, uint32(28)))
		b.WriteString("WAVEfmt ")
		for _, v := range []any{uint32(16), uint16(1), uint16(1), uint32(8000), uint32(16000), uint16(2), uint16(16)} {
			require.NoError(t, binary.Write(&b, binary.LittleEndian, v))
		}

		path := filepath.Join(t.TempDir(), "header-only.wav")
		require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))

		_, _, err := LoadMono(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoAudio)
	})
}

func TestLoadMonoZeroFrames(t *testing.T) {
	path := audiotest.WriteWAV(t, "empty.wav", nil, audiotest.Options{SampleRate: 8000})

	buf, _, err := LoadMono(path)
	require.NoError(t, err)
	assert.Empty(t, buf.Samples)
	assert.Equal(t, 8000.0, buf.SampleRate)
}

func TestSampleConverter(t *testing.T) {
	tests := []struct {
		name     string
		format   int
		bitDepth int
		raw      int
		want     float64
		wantErr  bool
	}{
		{"s16 full scale negative", formatPCM, 16, -32768, -1.0, false},
		{"s16 half", formatPCM, 16, 16384, 0.5, false},
		{"u8 centre", formatPCM, 8, 128, 0, false},
		{"u8 min", formatPCM, 8, 0, -1.0, false},
		{"s24 quarter", formatPCM, 24, 2097152, 0.25, false},
		{"float32 bits", formatIEEEFloat, 32, int(int32(0x3F000000)), 0.5, false},
		{"float64 unsupported", formatIEEEFloat, 64, 0, 0, true},
		{"12-bit unsupported", formatPCM, 12, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			convert, err := sampleConverter(tt.format, tt.bitDepth)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, convert(tt.raw), 1e-9)
		})
	}
}

func TestSampleBuffer(t *testing.T) {
	buf := &SampleBuffer{Samples: make([]float64, 4000), SampleRate: 8000}

	assert.Equal(t, 4000, buf.Len())
	assert.Equal(t, 0.5, buf.Duration().Seconds())
	assert.InDelta(t, 0.25, buf.TimeAt(2000), 1e-12)

	var nilBuf *SampleBuffer
	assert.Equal(t, 0, nilBuf.Len())
	assert.Zero(t, nilBuf.Duration())
}
