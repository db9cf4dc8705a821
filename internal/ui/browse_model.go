package ui

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/floats"

	"github.com/linuxmatters/jadepulse/internal/processor"
	"github.com/linuxmatters/jadepulse/internal/session"
)

// Parameter steps for the browse keys
const (
	MultiplierStep = 0.1
	MinLengthStep  = 0.01 // seconds

	// fraction of the peak amplitude moved by [ and ]
	thresholdNudge = 0.05

	minMultiplier = 0.1
)

// Spinner frames for indeterminate progress
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Saver writes the exports for one result and returns the files written
type Saver func(ctx context.Context, r *processor.ProcessingResult) ([]string, error)

// BrowseModel steps through recordings one at a time, re-running detection
// as the parameters change and saving exports on request.
type BrowseModel struct {
	ctx  context.Context
	sess *session.Session
	save Saver

	Result *processor.ProcessingResult
	Err    error  // last load or save error
	Status string // last action

	busy         bool
	busyLabel    string
	busyStart    time.Time
	spinnerIndex int

	Width  int
	Height int
}

type loadedMsg struct {
	result *processor.ProcessingResult
	err    error
}

type savedMsg struct {
	recordings int
	files      []string
	err        error
}

type savedAllMsg struct {
	savedMsg
	result *processor.ProcessingResult // current recording, reloaded
}

// tickMsg is sent for spinner animation
type tickMsg time.Time

// NewBrowseModel creates a browser over sess. The session must not be used
// elsewhere while the program runs.
func NewBrowseModel(ctx context.Context, sess *session.Session, save Saver) BrowseModel {
	return BrowseModel{
		ctx:       ctx,
		sess:      sess,
		save:      save,
		busy:      true,
		busyLabel: "Loading",
		busyStart: time.Now(),
	}
}

// Init loads the first recording
func (m BrowseModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), tickCmd())
}

// tickCmd returns a command that sends a tick message every 100ms
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m BrowseModel) loadCmd() tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		r, err := sess.Current(ctx)
		return loadedMsg{result: r, err: err}
	}
}

func (m BrowseModel) saveCmd(r *processor.ProcessingResult) tea.Cmd {
	ctx, save := m.ctx, m.save
	return func() tea.Msg {
		files, err := save(ctx, r)
		return savedMsg{recordings: 1, files: files, err: err}
	}
}

// saveAllCmd runs every recording through the current parameters and saves
// it, then returns to the recording that was showing.
func (m BrowseModel) saveAllCmd() tea.Cmd {
	ctx, sess, save := m.ctx, m.sess, m.save
	return func() tea.Msg {
		var msg savedAllMsg
		orig := sess.Index()
		for i, path := range sess.Files() {
			if err := sess.Seek(i); err != nil {
				msg.err = err
				break
			}
			r, err := sess.Current(ctx)
			if err != nil {
				msg.err = fmt.Errorf("%s: %w", filepath.Base(path), err)
				continue
			}
			files, err := save(ctx, r)
			msg.files = append(msg.files, files...)
			if err != nil {
				msg.err = fmt.Errorf("%s: %w", filepath.Base(path), err)
				continue
			}
			msg.recordings++
		}
		if err := sess.Seek(orig); err == nil {
			msg.result, _ = sess.Current(ctx)
		}
		return msg
	}
}

func (m BrowseModel) startBusy(label string) BrowseModel {
	m.busy = true
	m.busyLabel = label
	m.busyStart = time.Now()
	m.Err = nil
	return m
}

// Update handles messages and updates the model
func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case tickMsg:
		if m.busy {
			m.spinnerIndex = (m.spinnerIndex + 1) % len(spinnerFrames)
		}
		return m, tickCmd()

	case loadedMsg:
		m.busy = false
		m.Result = msg.result
		m.Err = msg.err
		if msg.err == nil {
			m.Status = ""
		}

	case savedAllMsg:
		m.busy = false
		if msg.result != nil {
			m.Result = msg.result
		}
		m.Err = msg.err
		m.Status = fmt.Sprintf("Saved %d recording(s), %d file(s)", msg.recordings, len(msg.files))

	case savedMsg:
		m.busy = false
		m.Err = msg.err
		if msg.err == nil {
			names := make([]string, len(msg.files))
			for i, f := range msg.files {
				names[i] = filepath.Base(f)
			}
			m.Status = "Saved " + strings.Join(names, ", ")
		}
	}

	return m, nil
}

func (m BrowseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "q" || key == "ctrl+c" {
		return m, tea.Quit
	}
	// the session is owned by the running command until it reports back
	if m.busy {
		return m, nil
	}

	switch key {
	case "n":
		if m.sess.Next() {
			m = m.startBusy("Loading")
			m.Result = nil
			return m, m.loadCmd()
		}
		m.Status = "Already on the last recording"

	case "p":
		if m.sess.Prev() {
			m = m.startBusy("Loading")
			m.Result = nil
			return m, m.loadCmd()
		}
		m.Status = "Already on the first recording"

	case "up", "down":
		cfg := m.sess.Config()
		step := MultiplierStep
		if key == "down" {
			step = -step
		}
		cfg.ThresholdMultiplier = math.Max(minMultiplier, roundTo(cfg.ThresholdMultiplier+step, 2))
		m.apply(cfg)

	case "right", "left":
		cfg := m.sess.Config()
		step := MinLengthStep
		if key == "left" {
			step = -step
		}
		cfg.MinLength = math.Max(0, roundTo(cfg.MinLength+step, 3))
		m.apply(cfg)

	case "[", "]":
		if m.Result == nil || m.Result.Measurements == nil {
			return m, nil
		}
		delta := thresholdNudge * m.Result.Measurements.PeakAbs
		if key == "[" {
			delta = -delta
		}
		r, err := m.sess.SetThreshold(m.ctx, math.Max(0, m.Result.Threshold+delta))
		m.Err = err
		if r != nil {
			m.Result = r
		}

	case "s":
		if m.Result == nil {
			return m, nil
		}
		r := m.Result
		m = m.startBusy("Saving")
		return m, m.saveCmd(r)

	case "a":
		m = m.startBusy("Saving all")
		return m, m.saveAllCmd()

	case "r":
		if m.Err != nil && m.Result == nil {
			m = m.startBusy("Loading")
			return m, m.loadCmd()
		}
	}

	return m, nil
}

// apply pushes new parameters into the session; before the first load they
// are only stored
func (m *BrowseModel) apply(cfg processor.DetectionConfig) {
	if r := m.sess.Apply(cfg); r != nil {
		m.Result = r
	}
	m.Status = ""
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// View renders the UI
func (m BrowseModel) View() string {
	if m.Width == 0 {
		return "Initializing..."
	}

	var b strings.Builder

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(jadeColor).
		Render("JadePulse")

	subtitle := lipgloss.NewStyle().
		Foreground(mutedColor).
		Italic(true).
		Render("Browse Mode")

	b.WriteString(title + " " + subtitle)
	b.WriteString("\n\n")

	fileStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Bold(true)

	b.WriteString(fmt.Sprintf("[%d/%d] ", m.sess.Index()+1, m.sess.Len()))
	b.WriteString(fileStyle.Render(filepath.Base(m.sess.Path())))
	b.WriteString("\n\n")

	cfg := m.sess.Config()
	b.WriteString(fmt.Sprintf("Multiplier: %.2f   Min length: %.3fs\n", cfg.ThresholdMultiplier, cfg.MinLength))

	switch {
	case m.busy:
		spinner := lipgloss.NewStyle().Foreground(jadeColor).Render(spinnerFrames[m.spinnerIndex])
		b.WriteString(fmt.Sprintf("\n%s %s... [%s]\n", spinner, m.busyLabel, formatElapsed(time.Since(m.busyStart))))

	case m.Result != nil:
		b.WriteString(renderResult(m.Result, m.sparkWidth()))
	}

	if m.Err != nil {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(errorColor).Render("Error: " + m.Err.Error()))
		b.WriteString("\n")
	} else if m.Status != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(mutedColor).Render(m.Status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(mutedColor).Render(
		"n/p file  ↑/↓ multiplier  ←/→ min length  [/] threshold  s save  a save all  q quit"))
	b.WriteString("\n")

	return b.String()
}

func (m BrowseModel) sparkWidth() int {
	return max(10, min(m.Width-4, 120))
}

// renderResult shows the detection outcome for one recording
func renderResult(r *processor.ProcessingResult, width int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Threshold:  %.5f   Window: %d samples\n", r.Threshold, r.MinDistance))
	b.WriteString(fmt.Sprintf("Pulses:     %d\n", len(r.Peaks)))

	s := r.Stats
	if s.Count == 0 {
		b.WriteString("Intervals:  none\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Intervals:  %d  mean %.1f ms  sd %.1f  min %.1f  max %.1f  CV %.2f\n",
		s.Count, s.Mean, s.StdDev, s.Min, s.Max, s.CV))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(jadeColor).Render(Sparkline(r.Intervals, width)))
	b.WriteString("\n")
	return b.String()
}

// Sparkline draws values as block characters scaled between their minimum
// and maximum. More values than width are averaged into width buckets.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	if len(values) > width {
		buckets := make([]float64, width)
		for i := range buckets {
			lo := i * len(values) / width
			hi := (i + 1) * len(values) / width
			buckets[i] = floats.Sum(values[lo:hi]) / float64(hi-lo)
		}
		values = buckets
	}

	lo, hi := floats.Min(values), floats.Max(values)
	top := len(sparkBlocks) - 1

	var b strings.Builder
	for _, v := range values {
		level := 0
		if hi > lo {
			level = int(math.Round((v - lo) / (hi - lo) * float64(top)))
		}
		b.WriteRune(sparkBlocks[level])
	}
	return b.String()
}

// formatElapsed formats elapsed time as MM:SS or HH:MM:SS
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
