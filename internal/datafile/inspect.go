package datafile

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// Header comment grammar of the generated data sets. The generator writes
// the fit coefficients and the true shift point on the first comment lines;
// older sets carry neither.
var (
	paramsPattern = regexp.MustCompile(`^# a1 = ([-+.e\d]*), b1 = ([-+.e\d]*), a2 = ([-+.e\d]*), b2 = ([-+.e\d]*)$`)
	shiftPattern  = regexp.MustCompile(`^# Regime shift at minute (\d+)$`)
)

// LineParams carries the generator's two-segment line coefficients, verbatim
// from the "# a1 = ..." header line.
type LineParams struct {
	A1, B1, A2, B2 string
}

// Info summarizes one data file for display.
type Info struct {
	Rows        int         // data rows (non-comment, non-blank)
	Columns     int         // whitespace-separated fields in the first data row
	Params      *LineParams // nil when the coefficient header is absent
	ShiftMinute string      // "" when the shift header is absent
}

// Inspect reads path and returns row/column counts plus any generator
// headers. Comment and blank lines are skipped the same way the loader in
// the analysis tool skips them.
func Inspect(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info := &Info{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			if m := paramsPattern.FindStringSubmatch(line); m != nil {
				info.Params = &LineParams{A1: m[1], B1: m[2], A2: m[3], B2: m[4]}
			}
			if m := shiftPattern.FindStringSubmatch(line); m != nil {
				info.ShiftMinute = m[1]
			}
			continue
		}
		if info.Rows == 0 {
			info.Columns = len(strings.Fields(trimmed))
		}
		info.Rows++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return info, nil
}
