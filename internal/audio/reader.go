// Package audio provides WAV file decoding into mono sample buffers
package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVE format tags from the fmt chunk
const (
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatExtensible = 0xFFFE
)

var (
	// ErrInvalidWAV is returned when the file is not a RIFF/WAVE container.
	ErrInvalidWAV = errors.New("not a valid WAV file")
	// ErrUnsupportedFormat is returned for codecs or bit depths we cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported WAV sample format")
	// ErrNoAudio is returned when the container has no data chunk. A data
	// chunk holding zero frames is not an error.
	ErrNoAudio = errors.New("no audio data found")
)

// Reader wraps a go-audio WAV decoder for a single open file
type Reader struct {
	file    *os.File
	decoder *wav.Decoder
	path    string
}

// Metadata contains audio file metadata
type Metadata struct {
	Duration   float64 // seconds
	SampleRate int
	Channels   int
	SampleFmt  string
	BitDepth   int
	Frames     int
}

// OpenAudioFile opens a WAV file for reading and extracts its metadata
func OpenAudioFile(filename string) (*Reader, *Metadata, error) {
	f, err := os.Open(filename) // #nosec G304 - path supplied by the user
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input file: %w", err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", filename, ErrInvalidWAV)
	}

	format := int(dec.WavAudioFormat)
	bitDepth := int(dec.BitDepth)
	sampleFmt, err := describeFormat(format, bitDepth)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", filename, err)
	}

	// Header-derived estimate; LoadMono replaces it with the decoded length
	var duration float64
	if d, err := dec.Duration(); err == nil {
		duration = d.Seconds()
	}
	frames := int(math.Round(duration * float64(dec.SampleRate)))

	metadata := &Metadata{
		Duration:   duration,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		SampleFmt:  sampleFmt,
		BitDepth:   bitDepth,
		Frames:     frames,
	}

	return &Reader{file: f, decoder: dec, path: filename}, metadata, nil
}

// describeFormat validates the fmt chunk and returns a short sample format name
func describeFormat(format, bitDepth int) (string, error) {
	switch format {
	case formatPCM, formatExtensible:
		switch bitDepth {
		case 8:
			return "u8", nil
		case 16:
			return "s16", nil
		case 24:
			return "s24", nil
		case 32:
			return "s32", nil
		}
	case formatIEEEFloat:
		if bitDepth == 32 {
			return "flt", nil
		}
	}
	return "", fmt.Errorf("%w: format tag %d, %d bits", ErrUnsupportedFormat, format, bitDepth)
}

// ReadMono decodes all PCM data and keeps only the first channel.
// Integer samples are scaled to [-1, 1) by 2^(bits-1); 8-bit data is unsigned
// and centred on 128.
func (r *Reader) ReadMono() (*SampleBuffer, error) {
	// go-audio reports a missing data chunk as io.EOF
	if err := r.decoder.FwdToPCM(); err != nil || r.decoder.PCMChunk == nil {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", r.path, ErrNoAudio)
		}
		return nil, fmt.Errorf("failed to read PCM data from %s: %w", r.path, err)
	}

	buf, err := r.decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data from %s: %w", r.path, err)
	}
	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("%s: %w", r.path, ErrNoAudio)
	}

	convert, err := sampleConverter(int(r.decoder.WavAudioFormat), int(r.decoder.BitDepth))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}

	return &SampleBuffer{
		Samples:    firstChannel(buf, channels, convert),
		SampleRate: float64(buf.Format.SampleRate),
	}, nil
}

// firstChannel extracts channel 0 from interleaved integer PCM
func firstChannel(buf *goaudio.IntBuffer, channels int, convert func(int) float64) []float64 {
	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		samples[i] = convert(buf.Data[i*channels])
	}
	return samples
}

// sampleConverter returns the raw-int to float conversion for a WAV format
func sampleConverter(format, bitDepth int) (func(int) float64, error) {
	if format == formatIEEEFloat {
		if bitDepth != 32 {
			return nil, fmt.Errorf("%w: %d-bit float", ErrUnsupportedFormat, bitDepth)
		}
		// go-audio decodes 32-bit words as signed ints; reinterpret the bits
		return func(v int) float64 {
			return float64(math.Float32frombits(uint32(int32(v))))
		}, nil
	}

	switch bitDepth {
	case 8:
		return func(v int) float64 {
			return float64(v-128) / 128.0
		}, nil
	case 16, 24, 32:
		scale := math.Exp2(float64(bitDepth - 1))
		return func(v int) float64 {
			return float64(v) / scale
		}, nil
	default:
		return nil, fmt.Errorf("%w: %d bits", ErrUnsupportedFormat, bitDepth)
	}
}

// Close releases the underlying file handle
func (r *Reader) Close() {
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
}

// LoadMono opens, decodes and closes a WAV file in one call
func LoadMono(filename string) (*SampleBuffer, *Metadata, error) {
	reader, metadata, err := OpenAudioFile(filename)
	if err != nil {
		return nil, nil, err
	}
	defer reader.Close()

	buf, err := reader.ReadMono()
	if err != nil {
		return nil, nil, err
	}

	// The header frame count can disagree with truncated files
	metadata.Frames = buf.Len()
	metadata.Duration = buf.Duration().Seconds()

	return buf, metadata, nil
}

// SampleBuffer is a decoded mono signal. It is not modified after decoding.
type SampleBuffer struct {
	Samples    []float64
	SampleRate float64
}

// Len returns the number of frames in the buffer
func (b *SampleBuffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Samples)
}

// Duration returns the playback length of the buffer
func (b *SampleBuffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / b.SampleRate * float64(time.Second))
}

// TimeAt converts a sample index to seconds
func (b *SampleBuffer) TimeAt(index int) float64 {
	return float64(index) / b.SampleRate
}
