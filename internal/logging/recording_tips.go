package logging

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/linuxmatters/jadepulse/internal/processor"
)

// RecordingTip is one piece of advice about a recording or the detection
// parameters used on it.
type RecordingTip struct {
	Priority int    // Higher = more important (1-10)
	Message  string // One or two sentences
	RuleID   string // e.g. "no_pulses"
}

// MaxRecordingTips caps the number of tips returned
const MaxRecordingTips = 5

// Tip thresholds
const (
	maxPlausiblePulseRate = 20.0  // pulses per second
	fewPulses             = 3     // fewer than this gives a meaningless interval series
	irregularCV           = 0.5   // interval coefficient of variation
	humRatioAudible       = 0.2   // share of spectral energy at mains harmonics
	dcOffsetLimit         = 0.01  // linear
	quietPeakDB           = -30.0 // dBFS
)

// GenerateRecordingTips inspects a processing result and returns prioritised
// suggestions, highest priority first.
func GenerateRecordingTips(result *processor.ProcessingResult) []RecordingTip {
	if result == nil || result.Measurements == nil {
		return nil
	}

	rules := []func(*processor.ProcessingResult) *RecordingTip{
		tipNoPulses,
		tipFewPulses,
		tipThresholdLow,
		tipIrregularIntervals,
		tipQuietRecording,
		tipClipping,
		tipMainsHum,
		tipDCOffset,
	}

	var tips []RecordingTip
	fired := make(map[string]bool)
	for _, rule := range rules {
		if tip := rule(result); tip != nil {
			tips = append(tips, *tip)
			fired[tip.RuleID] = true
		}
	}

	tips = applyExclusions(tips, fired)

	sort.SliceStable(tips, func(i, j int) bool {
		return tips[i].Priority > tips[j].Priority
	})

	if len(tips) > MaxRecordingTips {
		tips = tips[:MaxRecordingTips]
	}
	return tips
}

// applyExclusions drops tips already explained by another one. A threshold
// sitting in the noise floor makes the interval series irregular too.
func applyExclusions(tips []RecordingTip, fired map[string]bool) []RecordingTip {
	var kept []RecordingTip
	for _, tip := range tips {
		if tip.RuleID == "irregular_intervals" && fired["threshold_low"] {
			continue
		}
		kept = append(kept, tip)
	}
	return kept
}

// wrapText wraps text at word boundaries to maxWidth columns, prefixing
// continuation lines with indent.
func wrapText(text string, maxWidth int, indent string) string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) <= maxWidth:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"+indent)
}

func tipNoPulses(r *processor.ProcessingResult) *RecordingTip {
	if len(r.Peaks) > 0 {
		return nil
	}
	return &RecordingTip{
		Priority: 10,
		RuleID:   "no_pulses",
		Message: fmt.Sprintf("No pulses crossed the threshold - try a lower threshold multiplier than %.2f, or check the clicks are on the first channel.",
			r.Config.ThresholdMultiplier),
	}
}

func tipFewPulses(r *processor.ProcessingResult) *RecordingTip {
	if len(r.Peaks) == 0 || len(r.Peaks) >= fewPulses {
		return nil
	}
	return &RecordingTip{
		Priority: 8,
		RuleID:   "few_pulses",
		Message: fmt.Sprintf("Only %d pulse(s) detected, which gives at most one interval - a minimum pulse length of %.2fs may be swallowing pulses.",
			len(r.Peaks), r.Config.MinLength),
	}
}

// tipThresholdLow fires when detections arrive faster than any plausible
// pulse train, which means the threshold sits in the noise.
func tipThresholdLow(r *processor.ProcessingResult) *RecordingTip {
	duration := r.Buffer.Duration().Seconds()
	if duration <= 0 || len(r.Peaks) < 2 {
		return nil
	}
	rate := float64(len(r.Peaks)) / duration
	if rate <= maxPlausiblePulseRate {
		return nil
	}
	return &RecordingTip{
		Priority: 9,
		RuleID:   "threshold_low",
		Message: fmt.Sprintf("%.0f pulses per second is implausibly fast - the threshold is probably triggering on noise, try a multiplier above %.2f.",
			rate, r.Config.ThresholdMultiplier),
	}
}

func tipIrregularIntervals(r *processor.ProcessingResult) *RecordingTip {
	if r.Stats.Count < 2 || math.IsNaN(r.Stats.CV) || r.Stats.CV <= irregularCV {
		return nil
	}
	return &RecordingTip{
		Priority: 6,
		RuleID:   "irregular_intervals",
		Message: fmt.Sprintf("Intervals vary a lot (CV %.2f) - check the chart for missed or doubled pulses and adjust the minimum pulse length.",
			r.Stats.CV),
	}
}

func tipQuietRecording(r *processor.ProcessingResult) *RecordingTip {
	if r.Measurements.PeakDB >= quietPeakDB {
		return nil
	}
	return &RecordingTip{
		Priority: 7,
		RuleID:   "quiet_recording",
		Message: fmt.Sprintf("The loudest sample is only %.0f dBFS - raise the input gain so pulses stand clear of the noise floor.",
			r.Measurements.PeakDB),
	}
}

func tipClipping(r *processor.ProcessingResult) *RecordingTip {
	if r.Measurements.ClippedSamples == 0 {
		return nil
	}
	return &RecordingTip{
		Priority: 7,
		RuleID:   "clipping",
		Message: fmt.Sprintf("%d samples are clipped - flat-topped pulses make the peak position ambiguous, so lower the input gain.",
			r.Measurements.ClippedSamples),
	}
}

func tipMainsHum(r *processor.ProcessingResult) *RecordingTip {
	m := r.Measurements
	if m.HumHz == 0 || m.HumRatio <= humRatioAudible {
		return nil
	}
	return &RecordingTip{
		Priority: 6,
		RuleID:   "mains_hum",
		Message: fmt.Sprintf("%.0f%% of the signal energy is %d Hz mains hum, which raises the mean level and the threshold with it - check earthing and cable routing.",
			m.HumRatio*100, m.HumHz),
	}
}

func tipDCOffset(r *processor.ProcessingResult) *RecordingTip {
	if math.Abs(r.Measurements.DCOffset) <= dcOffsetLimit {
		return nil
	}
	return &RecordingTip{
		Priority: 4,
		RuleID:   "dc_offset",
		Message: fmt.Sprintf("The recording carries a DC offset of %+.3f, so one polarity of pulse crosses the threshold more easily.",
			r.Measurements.DCOffset),
	}
}
