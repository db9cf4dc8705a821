package processor

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// PulseTimes converts peak sample indices to seconds
func PulseTimes(peaks []int, sampleRate float64) []float64 {
	times := make([]float64, len(peaks))
	for i, p := range peaks {
		times[i] = float64(p) / sampleRate
	}
	return times
}

// ComputeIntervals returns the time between consecutive peaks in milliseconds.
// Fewer than two peaks yield an empty slice. A zero sampleRate is not guarded
// and produces Inf/NaN values.
func ComputeIntervals(peaks []int, sampleRate float64) []float64 {
	if len(peaks) < 2 {
		return []float64{}
	}

	times := PulseTimes(peaks, sampleRate)
	intervals := make([]float64, len(times)-1)
	for i := 1; i < len(times); i++ {
		intervals[i-1] = (times[i] - times[i-1]) * 1000
	}
	return intervals
}

// IntervalStats summarises an interval sequence (all values in ms)
type IntervalStats struct {
	Count  int
	Mean   float64
	StdDev float64 // sample standard deviation
	Min    float64
	Max    float64
	Median float64
	CV     float64 // coefficient of variation (StdDev / Mean)
}

// SummariseIntervals computes descriptive statistics for intervals.
// Empty input returns a zero-valued IntervalStats with NaN moments.
func SummariseIntervals(intervals []float64) IntervalStats {
	s := IntervalStats{Count: len(intervals)}
	if len(intervals) == 0 {
		s.Mean, s.StdDev, s.Median, s.CV = math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}

	s.Mean = stat.Mean(intervals, nil)
	if len(intervals) > 1 {
		s.StdDev = stat.StdDev(intervals, nil)
	}

	sorted := append([]float64(nil), intervals...)
	sort.Float64s(sorted)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	// mean of the middle one or two values; stat.Quantile never averages them
	mid := len(sorted) / 2
	s.Median = stat.Mean(sorted[mid-1+len(sorted)%2:mid+1], nil)

	if s.Mean != 0 {
		s.CV = s.StdDev / s.Mean
	}
	return s
}
