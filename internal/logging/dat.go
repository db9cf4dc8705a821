package logging

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

// DATTool is the recorder name written into every DAT header. Downstream
// analysis scripts match on it, so it keeps the lab's historical value.
const DATTool = "JaDe_V2"

// datTimeLayout renders 02/01/2006   15:04 (three spaces before the time)
const datTimeLayout = "02/01/2006   15:04"

// DATHeader identifies the recording at the top of a DAT report
type DATHeader struct {
	Subject      string
	Experimenter string
	Name         string    // recording name without directory or extension
	SavedAt      time.Time // formatted in its own location
}

// WriteDAT writes the interval report:
//
//	<subject>
//	\t<experimenter>/<name> recorded with JaDe_V2 <dd/mm/YYYY   HH:MM>
//	<blank line>
//	<interval ms, rounded half to even, one per line>
func WriteDAT(w io.Writer, h DATHeader, intervals []float64) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s\n", h.Subject)
	fmt.Fprintf(bw, "\t%s/%s recorded with %s %s\n\n", h.Experimenter, h.Name, DATTool, h.SavedAt.Format(datTimeLayout))
	for _, iv := range intervals {
		fmt.Fprintf(bw, "%d\n", roundInterval(iv))
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write DAT report: %w", err)
	}
	return nil
}

// SaveDAT creates (or truncates) path and writes the report into it
func SaveDAT(path string, h DATHeader, intervals []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create DAT file: %w", err)
	}

	if err := WriteDAT(f, h, intervals); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// DATPath returns <base>.dat
func DATPath(base string) string {
	return base + ".dat"
}

// roundInterval rounds half to even; 2.5 → 2, 3.5 → 4
func roundInterval(ms float64) int64 {
	return int64(math.RoundToEven(ms))
}
