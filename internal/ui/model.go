// Package ui provides the Bubbletea terminal user interface for jadepulse
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/linuxmatters/jadepulse/internal/processor"
)

// FileStatus represents the processing state of a single file
type FileStatus int

const (
	StatusQueued FileStatus = iota
	StatusDecoding
	StatusMeasuring
	StatusDetecting
	StatusComplete
	StatusError
)

// statusForPass maps a processor pass to the file status shown while it runs
var statusForPass = map[int]FileStatus{
	processor.PassDecode:  StatusDecoding,
	processor.PassMeasure: StatusMeasuring,
	processor.PassDetect:  StatusDetecting,
}

// FileProgress tracks progress for a single recording
type FileProgress struct {
	InputPath string
	Status    FileStatus

	// Phase tracking
	CurrentPass int
	PassName    string

	Progress    float64 // 0.0 to 1.0 within the pass
	StartTime   time.Time
	ElapsedTime time.Duration

	// Measurements arrive at the end of the measuring pass
	Measurements *processor.AudioMeasurements
	Level        float64 // RMS in dBFS

	// Completion results
	Pulses       int
	MeanInterval float64
	CV           float64
	Exports      []string

	Error error
}

// Active reports whether the file is being worked on
func (fp FileProgress) Active() bool {
	return fp.Status >= StatusDecoding && fp.Status <= StatusDetecting
}

// Model is the Bubbletea model for batch processing
type Model struct {
	// File queue
	Files          []FileProgress
	CurrentIndex   int
	TotalFiles     int
	CompletedFiles int
	FailedFiles    int
	TotalPulses    int

	// Global state
	StartTime time.Time
	Done      bool
	Aborted   bool // user quit before the batch finished

	// Terminal dimensions
	Width  int
	Height int

	log *zap.Logger
}

// NewModel creates a new UI model with the given input files
func NewModel(inputFiles []string, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	files := make([]FileProgress, len(inputFiles))
	for i, path := range inputFiles {
		files[i] = FileProgress{
			InputPath: path,
			Status:    StatusQueued,
		}
	}

	return Model{
		Files:        files,
		CurrentIndex: -1, // No file processing yet
		TotalFiles:   len(inputFiles),
		StartTime:    time.Now(),
		log:          logger.Named("ui"),
	}
}

// Init initializes the model. Updates arrive through tea.Program.Send.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.Done {
				m.Aborted = true
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.log.Debug("window size", zap.Int("width", m.Width), zap.Int("height", m.Height))

	case ProgressMsg:
		if m.CurrentIndex >= 0 && m.CurrentIndex < len(m.Files) {
			m.Files[m.CurrentIndex] = updateFileProgress(m.Files[m.CurrentIndex], msg)
		}

	case FileStartMsg:
		m.log.Debug("file started", zap.Int("index", msg.FileIndex), zap.String("file", msg.FileName))
		if msg.FileIndex < 0 || msg.FileIndex >= len(m.Files) {
			return m, nil
		}
		m.CurrentIndex = msg.FileIndex
		m.Files[m.CurrentIndex].Status = StatusDecoding
		m.Files[m.CurrentIndex].StartTime = time.Now()

	case FileCompleteMsg:
		m.log.Debug("file complete", zap.Int("index", msg.FileIndex), zap.Error(msg.Error))
		if msg.FileIndex < 0 || msg.FileIndex >= len(m.Files) {
			return m, nil
		}
		fp := &m.Files[msg.FileIndex]
		fp.Pulses = msg.Pulses
		fp.MeanInterval = msg.MeanInterval
		fp.CV = msg.CV
		fp.Exports = msg.Exports
		fp.Error = msg.Error

		if msg.Error != nil {
			fp.Status = StatusError
			m.FailedFiles++
		} else {
			fp.Status = StatusComplete
			m.CompletedFiles++
			m.TotalPulses += msg.Pulses
		}

	case AllCompleteMsg:
		m.log.Debug("all files complete",
			zap.Int("completed", m.CompletedFiles), zap.Int("failed", m.FailedFiles))
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 {
		return fmt.Sprintf("Initializing...\nFiles: %d\n", len(m.Files))
	}

	if m.Done {
		return renderCompletionSummary(m)
	}

	return renderProcessingView(m)
}

// updateFileProgress updates a FileProgress based on a ProgressMsg
func updateFileProgress(fp FileProgress, msg ProgressMsg) FileProgress {
	// Reset the start time when transitioning to a new pass
	if msg.Pass != fp.CurrentPass {
		fp.StartTime = time.Now()
	}

	fp.Progress = msg.Progress
	fp.CurrentPass = msg.Pass
	fp.PassName = msg.PassName
	fp.ElapsedTime = time.Since(fp.StartTime)

	if msg.Measurements != nil {
		fp.Measurements = msg.Measurements
	}
	if msg.Level != 0 {
		fp.Level = msg.Level
	}

	if status, ok := statusForPass[msg.Pass]; ok {
		fp.Status = status
	}

	return fp
}
