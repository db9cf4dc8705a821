package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/linuxmatters/jadepulse/internal/chart"
	"github.com/linuxmatters/jadepulse/internal/logging"
	"github.com/linuxmatters/jadepulse/internal/processor"
	"github.com/linuxmatters/jadepulse/internal/storage"
)

// Exporter writes the outputs for each processed recording: the DAT
// interval list and interval chart always, the waveform chart and analysis
// report on request. Rows go to Pulses and files to Publisher when set.
type Exporter struct {
	OutputDir    string // empty writes next to the recording
	Subject      string
	Experimenter string
	Waveform     bool
	Report       bool

	// Location is the zone of the DAT timestamp; nil means time.Local
	Location *time.Location
	Now      func() time.Time

	Pulses    *PulseWriter
	Publisher storage.Publisher
	Prefix    string // object key prefix for Publisher

	Log *zap.Logger
}

// Outputs lists what Export produced
type Outputs struct {
	Files     []string
	Published []string
}

func (e *Exporter) now() time.Time {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	loc := e.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

func (e *Exporter) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// Export writes every output for r. started is when processing of the
// recording began, for the report. The DAT file is required: if it cannot
// be written nothing else is attempted. Later failures are collected and
// returned together with whatever was written.
func (e *Exporter) Export(ctx context.Context, r *processor.ProcessingResult, started time.Time) (*Outputs, error) {
	log := e.logger().With(zap.String("file", r.InputPath))
	out := &Outputs{}

	if e.OutputDir != "" {
		if err := os.MkdirAll(e.OutputDir, 0750); err != nil {
			return out, fmt.Errorf("create output directory: %w", err)
		}
	}
	base := r.OutputBase(e.OutputDir)
	savedAt := e.now()

	datPath := logging.DATPath(base)
	header := logging.DATHeader{
		Subject:      e.Subject,
		Experimenter: e.Experimenter,
		Name:         r.Stem(),
		SavedAt:      savedAt,
	}
	if err := logging.SaveDAT(datPath, header, r.Intervals); err != nil {
		return out, err
	}
	out.Files = append(out.Files, datPath)
	log.Debug("wrote DAT", zap.String("path", datPath), zap.Int("intervals", len(r.Intervals)))

	var mErr *multierror.Error

	jpgPath := chart.IntervalsPath(base)
	if err := chart.SaveIntervals(jpgPath, r.Stem(), r.Intervals); err != nil {
		mErr = multierror.Append(mErr, err)
	} else {
		out.Files = append(out.Files, jpgPath)
	}

	if e.Waveform {
		wavePath := chart.WaveformPath(base)
		if err := chart.SaveWaveform(wavePath, r); err != nil {
			mErr = multierror.Append(mErr, err)
		} else {
			out.Files = append(out.Files, wavePath)
		}
	}

	if e.Pulses != nil {
		if err := e.Pulses.Append(filepath.Base(r.InputPath), r); err != nil {
			mErr = multierror.Append(mErr, err)
		}
	}

	if e.Report {
		reportPath := logging.ReportPath(base)
		data := logging.ReportData{
			InputPath: r.InputPath,
			StartTime: started,
			EndTime:   savedAt,
			Result:    r,
			Exports:   append([]string(nil), out.Files...),
		}
		if err := logging.GenerateReport(reportPath, data); err != nil {
			mErr = multierror.Append(mErr, err)
		} else {
			out.Files = append(out.Files, reportPath)
		}
	}

	if e.Publisher != nil {
		locs, err := storage.PublishFiles(ctx, e.Publisher, e.Prefix, out.Files)
		out.Published = locs
		if err != nil {
			mErr = multierror.Append(mErr, err)
		}
		log.Debug("published exports", zap.Strings("locations", locs))
	}

	if err := mErr.ErrorOrNil(); err != nil {
		log.Warn("export incomplete", zap.Error(err))
		return out, err
	}
	return out, nil
}
