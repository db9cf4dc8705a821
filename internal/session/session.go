// Package session holds the state of an interactive pass over a set of
// recordings: which file is current, its decoded audio, and the detection
// parameters applied to it.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/linuxmatters/jadepulse/internal/processor"
)

// ErrNoFiles is returned when a session has nothing to work on
var ErrNoFiles = errors.New("no WAV files found")

// Loader decodes and processes one recording
type Loader func(ctx context.Context, path string, config *processor.DetectionConfig) (*processor.ProcessingResult, error)

// Session walks a list of recordings. Only the current recording is held in
// memory. A Session is not safe for concurrent use.
type Session struct {
	files  []string
	index  int
	config processor.DetectionConfig

	current *processor.ProcessingResult // nil until loaded
	load    Loader
	log     *zap.Logger
}

// Option configures a Session
type Option func(*Session)

// WithLoader replaces the default loader, processor.ProcessAudio
func WithLoader(l Loader) Option {
	return func(s *Session) { s.load = l }
}

// WithLogger sets the debug logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// New creates a session positioned on the first file
func New(files []string, config processor.DetectionConfig, opts ...Option) *Session {
	s := &Session{
		files:  files,
		config: config,
		load: func(ctx context.Context, path string, cfg *processor.DetectionConfig) (*processor.ProcessingResult, error) {
			return processor.ProcessAudio(ctx, path, cfg, nil)
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Files returns a copy of the recordings in session order
func (s *Session) Files() []string { return slices.Clone(s.files) }

// Len returns the number of recordings
func (s *Session) Len() int { return len(s.files) }

// Index returns the position of the current recording
func (s *Session) Index() int { return s.index }

// Config returns the parameters applied to every recording
func (s *Session) Config() processor.DetectionConfig { return s.config }

// Path returns the current recording's path, "" for an empty session
func (s *Session) Path() string {
	if len(s.files) == 0 {
		return ""
	}
	return s.files[s.index]
}

// Current returns the result for the current recording, decoding it on first
// use. A decode failure is not cached, so a later call retries.
func (s *Session) Current(ctx context.Context) (*processor.ProcessingResult, error) {
	if len(s.files) == 0 {
		return nil, ErrNoFiles
	}
	if s.current != nil {
		return s.current, nil
	}

	path := s.files[s.index]
	cfg := s.config
	result, err := s.load(ctx, path, &cfg)
	if err != nil {
		s.log.Warn("failed to load recording", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	s.log.Debug("loaded recording",
		zap.String("path", path),
		zap.Int("pulses", len(result.Peaks)),
		zap.Float64("threshold", result.Threshold),
		zap.Int("min_distance", result.MinDistance))
	s.current = result
	return result, nil
}

// Next moves to the following recording. It reports false, and stays put,
// on the last one.
func (s *Session) Next() bool {
	if s.index >= len(s.files)-1 {
		return false
	}
	s.index++
	s.current = nil
	return true
}

// Prev moves to the preceding recording. It reports false on the first one.
func (s *Session) Prev() bool {
	if s.index <= 0 {
		return false
	}
	s.index--
	s.current = nil
	return true
}

// Seek jumps to recording i
func (s *Session) Seek(i int) error {
	if i < 0 || i >= len(s.files) {
		return fmt.Errorf("recording %d out of range [0, %d)", i, len(s.files))
	}
	if i != s.index {
		s.index = i
		s.current = nil
	}
	return nil
}

// Apply sets new parameters and re-runs detection on the cached audio
// without decoding the file again. It returns the updated result, or nil
// when nothing is loaded yet.
func (s *Session) Apply(config processor.DetectionConfig) *processor.ProcessingResult {
	s.config = config
	if s.current == nil {
		return nil
	}

	prev := s.current
	cfg := config
	result := processor.ProcessBuffer(prev.Buffer, &cfg)
	result.InputPath = prev.InputPath
	result.Metadata = prev.Metadata

	s.log.Debug("parameters applied",
		zap.String("path", prev.InputPath),
		zap.Float64("multiplier", config.ThresholdMultiplier),
		zap.Float64("min_length", config.MinLength),
		zap.Int("pulses", len(result.Peaks)))
	s.current = result
	return result
}

// SetThreshold converts an absolute amplitude into a multiplier of the
// current recording's mean level, rounded to two decimals, and applies it.
// The effective threshold is the one implied by the rounded multiplier.
func (s *Session) SetThreshold(ctx context.Context, threshold float64) (*processor.ProcessingResult, error) {
	current, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	cfg := s.config
	cfg.ThresholdMultiplier = processor.MultiplierForThreshold(threshold, current.Measurements.MeanAbs)
	return s.Apply(cfg), nil
}

// Discover lists the WAV files directly inside dir, sorted by name.
// The extension match ignores case.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	// os.ReadDir sorts by filename
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// Collect expands command line arguments into recordings: directories are
// searched with Discover, files are taken as given. No arguments means the
// working directory.
func Collect(args ...string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := Discover(arg)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	return files, nil
}
