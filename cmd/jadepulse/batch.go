package main

import (
	"context"
	"fmt"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/linuxmatters/jadepulse/internal/export"
	"github.com/linuxmatters/jadepulse/internal/processor"
	"github.com/linuxmatters/jadepulse/internal/ui"
)

// fileDoneFunc observes each finished recording. r is nil when processing
// failed; out may be partial when only an export failed.
type fileDoneFunc func(i int, path string, r *processor.ProcessingResult, out *export.Outputs, err error)

// batch processes recordings one after another and exports each result
type batch struct {
	files    []string
	params   processor.DetectionConfig
	exporter *export.Exporter
	log      *zap.Logger

	send func(tea.Msg) // TUI updates, nil without a TUI
	done fileDoneFunc  // optional
}

// batchStats counts outcomes across the batch
type batchStats struct {
	processed int
	failed    int
	pulses    int
}

// run processes every file. A failing file does not stop the batch; all
// failures are returned together.
func (b *batch) run(ctx context.Context) (batchStats, error) {
	var (
		mErr  *multierror.Error
		stats batchStats
	)

	for i, path := range b.files {
		if err := ctx.Err(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("batch cancelled: %w", err))
			break
		}

		r, out, err := b.processOne(ctx, i, path)
		if err != nil {
			stats.failed++
			mErr = multierror.Append(mErr, fmt.Errorf("%s: %w", path, err))
		} else {
			stats.processed++
		}
		if r != nil {
			stats.pulses += len(r.Peaks)
		}

		msg := ui.FileCompleteMsg{FileIndex: i, Error: err, MeanInterval: math.NaN()}
		if r != nil {
			msg.Pulses = len(r.Peaks)
			msg.MeanInterval = r.Stats.Mean
			msg.CV = r.Stats.CV
		}
		if out != nil {
			msg.Exports = out.Files
		}
		b.sendMsg(msg)

		if b.done != nil {
			b.done(i, path, r, out, err)
		}
	}

	b.log.Info("batch complete",
		zap.Int("processed", stats.processed),
		zap.Int("failed", stats.failed),
		zap.Int("pulses", stats.pulses))
	b.sendMsg(ui.AllCompleteMsg{})

	return stats, mErr.ErrorOrNil()
}

func (b *batch) processOne(ctx context.Context, i int, path string) (*processor.ProcessingResult, *export.Outputs, error) {
	start := time.Now()
	log := b.log.With(zap.String("file", path))
	b.sendMsg(ui.FileStartMsg{FileIndex: i, FileName: path})

	ph := &progressHandler{send: b.sendMsg, log: log}
	params := b.params
	r, err := processor.ProcessAudio(ctx, path, &params, ph.callback)
	if err != nil {
		log.Warn("processing failed", zap.Error(err))
		return nil, nil, err
	}
	log.Debug("processed",
		zap.Int("pulses", len(r.Peaks)),
		zap.Float64("threshold", r.Threshold),
		zap.Int("min_distance", r.MinDistance),
		zap.Duration("decode", ph.passTime[processor.PassDecode]),
		zap.Duration("elapsed", time.Since(start)))

	out, err := b.exporter.Export(ctx, r, start)
	return r, out, err
}

func (b *batch) sendMsg(msg tea.Msg) {
	if b.send != nil {
		b.send(msg)
	}
}

// progressHandler forwards processor progress to the UI and times each pass
type progressHandler struct {
	send      func(tea.Msg)
	log       *zap.Logger
	passStart map[int]time.Time
	passTime  map[int]time.Duration
}

func (ph *progressHandler) callback(pass int, passName string, progress float64, level float64, measurements *processor.AudioMeasurements) {
	if ph.passStart == nil {
		ph.passStart = make(map[int]time.Time)
		ph.passTime = make(map[int]time.Duration)
	}

	switch progress {
	case 0.0:
		ph.passStart[pass] = time.Now()
	case 1.0:
		ph.passTime[pass] = time.Since(ph.passStart[pass])
		ph.log.Debug("pass complete",
			zap.String("pass", passName),
			zap.Duration("took", ph.passTime[pass]),
			zap.Float64("level_db", level))
	}

	ph.send(ui.ProgressMsg{
		Pass:         pass,
		PassName:     passName,
		Progress:     progress,
		Level:        level,
		Measurements: measurements,
	})
}
