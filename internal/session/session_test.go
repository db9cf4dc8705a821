package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/jadepulse/internal/audio"
	"github.com/linuxmatters/jadepulse/internal/audio/audiotest"
	"github.com/linuxmatters/jadepulse/internal/processor"
)

// fakeLoader serves a fixed click train for every path and counts decodes
type fakeLoader struct {
	calls map[string]int
	fail  map[string]error
}

func (f *fakeLoader) load(_ context.Context, path string, cfg *processor.DetectionConfig) (*processor.ProcessingResult, error) {
	f.calls[path]++
	if err := f.fail[path]; err != nil {
		return nil, err
	}
	samples := make([]float64, 100)
	samples[10], samples[40], samples[45], samples[80] = 1, 1, 0.5, 1
	r := processor.ProcessBuffer(&audio.SampleBuffer{Samples: samples, SampleRate: 100}, cfg)
	r.InputPath = path
	return r, nil
}

func newFake() *fakeLoader {
	return &fakeLoader{calls: map[string]int{}, fail: map[string]error{}}
}

func TestNavigation(t *testing.T) {
	s := New([]string{"a.wav", "b.wav", "c.wav"}, *processor.DefaultDetectionConfig())

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 0, s.Index())
	assert.Equal(t, "a.wav", s.Path())

	files := s.Files()
	assert.Equal(t, []string{"a.wav", "b.wav", "c.wav"}, files)
	files[0] = "changed.wav"
	assert.Equal(t, "a.wav", s.Path(), "Files returns a copy")

	assert.False(t, s.Prev(), "prev on the first file does not wrap")
	assert.Equal(t, 0, s.Index())

	assert.True(t, s.Next())
	assert.True(t, s.Next())
	assert.Equal(t, "c.wav", s.Path())
	assert.False(t, s.Next(), "next on the last file does not wrap")
	assert.Equal(t, 2, s.Index())

	assert.True(t, s.Prev())
	assert.Equal(t, 1, s.Index())

	require.NoError(t, s.Seek(0))
	assert.Equal(t, 0, s.Index())
	assert.Error(t, s.Seek(3))
	assert.Error(t, s.Seek(-1))
}

func TestEmptySession(t *testing.T) {
	s := New(nil, *processor.DefaultDetectionConfig())

	assert.False(t, s.Next())
	assert.False(t, s.Prev())
	assert.Equal(t, "", s.Path())

	_, err := s.Current(context.Background())
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestCurrentCachesUntilMove(t *testing.T) {
	fake := newFake()
	s := New([]string{"a.wav", "b.wav"}, *processor.DefaultDetectionConfig(), WithLoader(fake.load))
	ctx := context.Background()

	r1, err := s.Current(ctx)
	require.NoError(t, err)
	r2, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Same(t, r1, r2)
	assert.Equal(t, 1, fake.calls["a.wav"])

	s.Next()
	r3, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b.wav", r3.InputPath)

	s.Prev()
	_, err = s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.calls["a.wav"], "only the current recording is kept")
}

func TestCurrentErrorIsNotCached(t *testing.T) {
	fake := newFake()
	boom := errors.New("corrupt")
	fake.fail["a.wav"] = boom
	s := New([]string{"a.wav"}, *processor.DefaultDetectionConfig(), WithLoader(fake.load))

	_, err := s.Current(context.Background())
	assert.ErrorIs(t, err, boom)

	delete(fake.fail, "a.wav")
	_, err = s.Current(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, fake.calls["a.wav"])
}

func TestApplyReusesBuffer(t *testing.T) {
	fake := newFake()
	cfg := processor.DetectionConfig{ThresholdMultiplier: 1, MinLength: 0.01}
	s := New([]string{"a.wav"}, cfg, WithLoader(fake.load))
	ctx := context.Background()

	// nothing loaded yet: the config is stored for the first load
	assert.Nil(t, s.Apply(cfg))

	first, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 40, 45, 80}, first.Peaks)

	wider := cfg
	wider.MinLength = 0.1 // 10 samples swallows the pulse at 45
	updated := s.Apply(wider)
	require.NotNil(t, updated)
	assert.Equal(t, []int{10, 40, 80}, updated.Peaks)
	assert.Same(t, first.Buffer, updated.Buffer)
	assert.Equal(t, "a.wav", updated.InputPath)
	assert.Equal(t, wider, s.Config())
	assert.Equal(t, 1, fake.calls["a.wav"], "apply must not decode again")

	again, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Same(t, updated, again)
}

func TestSetThreshold(t *testing.T) {
	fake := newFake()
	s := New([]string{"a.wav"}, processor.DetectionConfig{ThresholdMultiplier: 1, MinLength: 0.01}, WithLoader(fake.load))

	r, err := s.SetThreshold(context.Background(), 0.6)
	require.NoError(t, err)

	// mean |x| is 3.5/100, so 0.6 is a multiplier of 17.142... rounded to 17.14
	assert.InDelta(t, 17.14, s.Config().ThresholdMultiplier, 1e-9)
	assert.InDelta(t, 17.14*0.035, r.Threshold, 1e-9)
	assert.Equal(t, []int{10, 40, 80}, r.Peaks)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.wav", "A.WAV", "c.Wav", "notes.txt", "d.wav.bak"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.wav"), 0o755))

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "A.WAV"),
		filepath.Join(dir, "b.wav"),
		filepath.Join(dir, "c.Wav"),
	}, files)

	_, err = Discover(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.wav"), nil, 0o644))
	loose := audiotest.WriteWAV(t, "loose.wav", audiotest.PulseTrain(100, 0.5, 10), audiotest.Options{})

	files, err := Collect(dir, loose)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "one.wav"), loose}, files)

	_, err = Collect(t.TempDir())
	assert.ErrorIs(t, err, ErrNoFiles)

	_, err = Collect(filepath.Join(dir, "nope.wav"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSessionWithRealFiles(t *testing.T) {
	a := audiotest.WriteWAV(t, "a.wav", audiotest.PulseTrain(8000, 0.9, 1000, 5000), audiotest.Options{})
	b := audiotest.WriteWAV(t, "b.wav", audiotest.PulseTrain(8000, 0.9, 2000), audiotest.Options{})

	s := New([]string{a, b}, *processor.DefaultDetectionConfig())
	ctx := context.Background()

	r, err := s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1000, 5000}, r.Peaks)
	require.Len(t, r.Intervals, 1)
	assert.InDelta(t, 500.0, r.Intervals[0], 1e-9)

	require.True(t, s.Next())
	r, err = s.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2000}, r.Peaks)
	assert.Empty(t, r.Intervals)
}
