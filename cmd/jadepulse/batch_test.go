package main

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linuxmatters/jadepulse/internal/audio/audiotest"
	"github.com/linuxmatters/jadepulse/internal/export"
	"github.com/linuxmatters/jadepulse/internal/processor"
	"github.com/linuxmatters/jadepulse/internal/ui"
)

type msgLog struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (l *msgLog) send(msg tea.Msg) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func newBatch(t *testing.T, files ...string) (*batch, string, *msgLog) {
	t.Helper()
	outDir := t.TempDir()
	msgs := &msgLog{}
	b := &batch{
		files:  files,
		params: *processor.DefaultDetectionConfig(),
		exporter: &export.Exporter{
			OutputDir:    outDir,
			Subject:      "Subject",
			Experimenter: "Experimenter",
			Location:     time.UTC,
			Now:          func() time.Time { return time.Date(2026, time.May, 1, 14, 30, 0, 0, time.UTC) },
		},
		log:  zap.NewNop(),
		send: msgs.send,
	}
	return b, outDir, msgs
}

func TestBatchRun(t *testing.T) {
	samples := audiotest.PulseTrain(8000, 0.9, 1000, 4000, 6400, 7200)
	good := audiotest.WriteWAV(t, "clicks.wav", samples, audiotest.Options{})

	bad := filepath.Join(t.TempDir(), "notes.wav")
	require.NoError(t, os.WriteFile(bad, []byte("not audio"), 0600))

	b, outDir, msgs := newBatch(t, good, bad)

	var seen []string
	b.done = func(i int, path string, r *processor.ProcessingResult, out *export.Outputs, err error) {
		seen = append(seen, filepath.Base(path))
		if i == 0 {
			assert.NoError(t, err)
			assert.NotNil(t, r)
		} else {
			assert.Error(t, err)
			assert.Nil(t, r)
		}
	}

	stats, err := b.run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad)
	assert.Equal(t, batchStats{processed: 1, failed: 1, pulses: 3}, stats)
	assert.Equal(t, []string{"clicks.wav", "notes.wav"}, seen)

	dat, err := os.ReadFile(filepath.Join(outDir, "clicks.dat"))
	require.NoError(t, err)
	assert.Equal(t, "Subject\n\tExperimenter/clicks recorded with JaDe_V2 01/05/2026   14:30\n\n375\n400\n", string(dat))
	assert.FileExists(t, filepath.Join(outDir, "clicks.jpg"))
	assert.NoFileExists(t, filepath.Join(outDir, "notes.dat"))

	// UI messages: start, progress..., complete per file, then all complete
	require.NotEmpty(t, msgs.msgs)
	assert.Equal(t, ui.FileStartMsg{FileIndex: 0, FileName: good}, msgs.msgs[0])
	assert.IsType(t, ui.AllCompleteMsg{}, msgs.msgs[len(msgs.msgs)-1])

	var completes []ui.FileCompleteMsg
	progress := 0
	for _, m := range msgs.msgs {
		switch m := m.(type) {
		case ui.FileCompleteMsg:
			completes = append(completes, m)
		case ui.ProgressMsg:
			progress++
		}
	}
	// three passes with start and end for the good file, plus the decode
	// start of the bad one
	assert.Equal(t, 7, progress)
	require.Len(t, completes, 2)
	assert.Equal(t, 3, completes[0].Pulses)
	assert.InDelta(t, 387.5, completes[0].MeanInterval, 1e-9)
	assert.Len(t, completes[0].Exports, 2)
	assert.NoError(t, completes[0].Error)
	assert.Error(t, completes[1].Error)
}

func TestBatchRunCancelled(t *testing.T) {
	good := audiotest.WriteWAV(t, "clicks.wav", audiotest.PulseTrain(8000, 0.9, 1000), audiotest.Options{})
	b, _, msgs := newBatch(t, good)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := b.run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.processed)
	assert.Equal(t, []tea.Msg{ui.AllCompleteMsg{}}, msgs.msgs)
}

func TestBatchWithoutUI(t *testing.T) {
	good := audiotest.WriteWAV(t, "clicks.wav", audiotest.PulseTrain(8000, 0.9, 1000, 4000), audiotest.Options{})
	b, _, _ := newBatch(t, good)
	b.send = nil

	stats, err := b.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.pulses)
}

func TestProgressHandlerTimesPasses(t *testing.T) {
	msgs := &msgLog{}
	ph := &progressHandler{send: msgs.send, log: zap.NewNop()}

	ph.callback(processor.PassDecode, "Decoding", 0, 0, nil)
	ph.callback(processor.PassDecode, "Decoding", 1, 0, nil)

	_, ok := ph.passTime[processor.PassDecode]
	assert.True(t, ok)
	require.Len(t, msgs.msgs, 2)
	assert.Equal(t, ui.ProgressMsg{Pass: 1, PassName: "Decoding", Progress: 1}, msgs.msgs[1])
}
