// Package chart renders interval and waveform charts with gonum/plot.
package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/linuxmatters/jadepulse/internal/processor"
)

// Image geometry
const (
	IntervalWidth  = 1200 // px, matches the lab's historical exports
	IntervalHeight = 600
	WaveformWidth  = 1600
	WaveformHeight = 500

	dpi = 96

	// MaxWaveformPoints bounds the number of vertices drawn for a waveform
	MaxWaveformPoints = 4000

	// maxWindowShading skips the suppression windows on very dense results
	maxWindowShading = 500
)

var (
	blue      = color.RGBA{R: 0x1f, G: 0x4e, B: 0xc8, A: 0xff}
	red       = color.RGBA{R: 0xa4, A: 0xff}
	orange    = color.RGBA{R: 0xff, G: 0xa5, A: 0xff}
	windowRed = color.RGBA{R: 0xff, A: 0x1e}
)

// IntervalPlot builds a scatter of interval (ms) against interval number
func IntervalPlot(title string, intervals []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Interval #"
	p.Y.Label.Text = "Interval (ms)"
	p.Add(plotter.NewGrid())

	if len(intervals) == 0 {
		p.Title.Text = title + " (no intervals)"
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = 0, 1
		return p, nil
	}

	xys := make(plotter.XYs, len(intervals))
	for i, iv := range intervals {
		xys[i].X = float64(i)
		xys[i].Y = iv
	}

	s, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("failed to plot intervals: %w", err)
	}
	s.GlyphStyle = draw.GlyphStyle{Color: blue, Radius: vg.Points(3), Shape: draw.CircleGlyph{}}
	p.Add(s)

	return p, nil
}

// WaveformPlot draws the decimated waveform, the detection threshold, each
// detected peak and the window after it in which further peaks are ignored.
func WaveformPlot(r *processor.ProcessingResult) (*plot.Plot, error) {
	buf := r.Buffer
	p := plot.New()
	p.Title.Text = filepath.Base(r.InputPath)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Amplitude"

	if buf.Len() == 0 || buf.SampleRate <= 0 {
		p.X.Min, p.X.Max = 0, 1
		p.Y.Min, p.Y.Max = -1, 1
		return p, nil
	}
	end := buf.TimeAt(buf.Len() - 1)

	wave, err := plotter.NewLine(Decimate(buf.Samples, buf.SampleRate, MaxWaveformPoints))
	if err != nil {
		return nil, fmt.Errorf("failed to plot waveform: %w", err)
	}
	wave.LineStyle = draw.LineStyle{Color: blue, Width: vg.Points(0.5)}

	if len(r.Peaks) <= maxWindowShading {
		window := float64(r.MinDistance) / buf.SampleRate
		for _, peak := range r.Peaks {
			start := buf.TimeAt(peak)
			stop := math.Min(start+window, end)
			if stop <= start {
				continue
			}
			poly, err := plotter.NewPolygon(plotter.XYs{
				{X: start, Y: -1}, {X: stop, Y: -1}, {X: stop, Y: 1}, {X: start, Y: 1},
			})
			if err != nil {
				return nil, fmt.Errorf("failed to plot window: %w", err)
			}
			poly.Color = windowRed
			poly.LineStyle.Width = 0
			p.Add(poly)
		}
	}

	p.Add(wave)

	threshold, err := plotter.NewLine(plotter.XYs{{X: 0, Y: r.Threshold}, {X: end, Y: r.Threshold}})
	if err != nil {
		return nil, fmt.Errorf("failed to plot threshold: %w", err)
	}
	threshold.LineStyle = draw.LineStyle{Color: orange, Width: vg.Points(1), Dashes: []vg.Length{vg.Points(4), vg.Points(2)}}
	p.Add(threshold)

	if len(r.Peaks) > 0 {
		amps := r.PeakAmplitudes()
		marks := make(plotter.XYs, len(r.Peaks))
		for i, peak := range r.Peaks {
			marks[i].X = buf.TimeAt(peak)
			marks[i].Y = amps[i]
		}
		s, err := plotter.NewScatter(marks)
		if err != nil {
			return nil, fmt.Errorf("failed to plot peaks: %w", err)
		}
		s.GlyphStyle = draw.GlyphStyle{Color: red, Radius: vg.Points(2.5), Shape: draw.CircleGlyph{}}
		p.Add(s)
		p.Legend.Add("peaks", s)
	}
	p.Legend.Add("threshold", threshold)
	p.Legend.Top = true

	return p, nil
}

// Decimate reduces samples to at most maxPoints vertices by keeping the
// minimum and maximum of each bucket in time order, so narrow pulses
// survive. X values are seconds.
func Decimate(samples []float64, sampleRate float64, maxPoints int) plotter.XYs {
	n := len(samples)
	if n <= maxPoints || maxPoints < 2 {
		xys := make(plotter.XYs, n)
		for i, s := range samples {
			xys[i] = plotter.XY{X: float64(i) / sampleRate, Y: s}
		}
		return xys
	}

	buckets := maxPoints / 2
	size := (n + buckets - 1) / buckets
	xys := make(plotter.XYs, 0, 2*buckets)
	for start := 0; start < n; start += size {
		stop := min(start+size, n)
		lo, hi := start, start
		for i := start + 1; i < stop; i++ {
			if samples[i] < samples[lo] {
				lo = i
			}
			if samples[i] > samples[hi] {
				hi = i
			}
		}
		first, second := lo, hi
		if hi < lo {
			first, second = hi, lo
		}
		xys = append(xys, plotter.XY{X: float64(first) / sampleRate, Y: samples[first]})
		if second != first {
			xys = append(xys, plotter.XY{X: float64(second) / sampleRate, Y: samples[second]})
		}
	}
	return xys
}

// WriteImage renders p at the given pixel size. format is "jpg", "jpeg" or "png".
func WriteImage(w io.Writer, p *plot.Plot, format string, widthPx, heightPx int) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthPx)*vg.Inch/dpi, vg.Length(heightPx)*vg.Inch/dpi),
		vgimg.UseDPI(dpi),
	)
	p.Draw(draw.New(c))

	var wt io.WriterTo
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		wt = vgimg.JpegCanvas{Canvas: c}
	case "png":
		wt = vgimg.PngCanvas{Canvas: c}
	default:
		return fmt.Errorf("unsupported image format %q", format)
	}

	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return nil
}

// SaveIntervals writes the interval chart to path as a JPEG 1200 px wide
func SaveIntervals(path, title string, intervals []float64) error {
	p, err := IntervalPlot(title, intervals)
	if err != nil {
		return err
	}
	return save(path, p, "jpg", IntervalWidth, IntervalHeight)
}

// SaveWaveform writes the waveform chart to path as a PNG
func SaveWaveform(path string, r *processor.ProcessingResult) error {
	p, err := WaveformPlot(r)
	if err != nil {
		return err
	}
	return save(path, p, "png", WaveformWidth, WaveformHeight)
}

// IntervalsPath returns <base>.jpg
func IntervalsPath(base string) string { return base + ".jpg" }

// WaveformPath returns <base>-waveform.png
func WaveformPath(base string) string { return base + "-waveform.png" }

func save(path string, p *plot.Plot, format string, w, h int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteImage(f, p, format, w, h)
}
