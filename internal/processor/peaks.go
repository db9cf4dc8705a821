package processor

// DetectPeaks finds pulse peaks in a mono signal with a single left-to-right scan.
//
// Every maximal run of samples strictly above threshold is reduced to the index of
// its maximum (ties keep the earliest sample). After each peak the scan resumes at
// peakIdx+minDistance, so a following run that starts inside that window is
// suppressed or only partially scanned. This jump is measured from the argmax,
// not from the end of the run, and the separation between reported peaks is
// therefore not a strict minDistance guarantee.
//
// A minDistance of zero (or less) resumes at the end of the run instead, since
// resuming at the argmax would detect the same peak again.
//
// The returned indices are strictly increasing and always in bounds.
func DetectPeaks(samples []float64, threshold float64, minDistance int) []int {
	var peaks []int

	i := 0
	for i < len(samples) {
		if samples[i] <= threshold {
			i++
			continue
		}

		peakVal := samples[i]
		peakIdx := i
		for i < len(samples) && samples[i] > threshold {
			if samples[i] > peakVal {
				peakVal = samples[i]
				peakIdx = i
			}
			i++
		}

		peaks = append(peaks, peakIdx)

		// i is now the run end
		if minDistance > 0 {
			// compare before adding so a huge window cannot overflow
			if minDistance >= len(samples)-peakIdx {
				break
			}
			i = peakIdx + minDistance
		}
	}

	return peaks
}
