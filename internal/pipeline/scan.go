package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/regimelab/regimebatch/internal/config"
	"github.com/regimelab/regimebatch/internal/datafile"
	"github.com/regimelab/regimebatch/internal/logging"
	"github.com/regimelab/regimebatch/internal/term"
)

// dataRow holds the inspected per-file values for the scan table.
type dataRow struct {
	Name   string
	Rows   int
	Cols   int
	Params string // generator coefficients, or "-" when the header is absent
	Shift  string // true shift minute, or "-"
}

// Scan discovers data files, inspects each one, and prints a tabular
// inventory with row-count outlier highlighting. Truncated or concatenated
// series stand out against their siblings without running the tool once.
func Scan(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	files, err := Discover(cfg.Root)
	if err != nil {
		log.Error("File discovery failed: %v", err)
		return fmt.Errorf("discovering data files under %s: %w", cfg.Root, err)
	}
	if len(files) == 0 {
		log.Warn("No data files found in %s", cfg.Root)
		return nil
	}

	total := len(files)
	log.Info("Scanning %d data files in %s ...", total, cfg.Root)
	fmt.Println()

	isTTY := term.IsTerminal(os.Stdout)
	var rows []dataRow
	var skipped int
	var rowCounts []float64

	for i, path := range files {
		if ctx.Err() != nil {
			if isTTY {
				clearProgress()
			}
			log.Warn("Interrupted")
			return nil
		}

		printProgress(isTTY, i+1, total, skipped, filepath.Base(path))

		info, err := datafile.Inspect(path)
		if err != nil {
			skipped++
			if isTTY {
				clearProgress()
			}
			log.Warn("Skip (unreadable): %s", filepath.Base(path))
			continue
		}

		row := dataRow{
			Name:   filepath.Base(path),
			Rows:   info.Rows,
			Cols:   info.Columns,
			Params: "-",
			Shift:  "-",
		}
		if info.Params != nil {
			row.Params = fmt.Sprintf("a1=%s b1=%s a2=%s b2=%s",
				info.Params.A1, info.Params.B1, info.Params.A2, info.Params.B2)
		}
		if info.ShiftMinute != "" {
			row.Shift = info.ShiftMinute
		}

		rows = append(rows, row)
		if row.Rows > 0 {
			rowCounts = append(rowCounts, float64(row.Rows))
		}
	}

	if isTTY {
		clearProgress()
	}

	if len(rows) == 0 {
		log.Warn("No data files could be read")
		return nil
	}

	bounds := computeStats(rowCounts)
	printScanTable(rows, bounds)
	printScanSummary(log, rows, bounds)
	return nil
}

// iqrBounds holds the IQR-based thresholds for outlier classification.
type iqrBounds struct {
	q1, q3    float64
	outlierLo float64 // Q1 - 1.5*IQR
	outlierHi float64 // Q3 + 1.5*IQR
	extremeLo float64 // Q1 - 3.0*IQR
	extremeHi float64 // Q3 + 3.0*IQR
	valid     bool
}

func computeStats(vals []float64) iqrBounds {
	if len(vals) < 4 {
		return iqrBounds{}
	}

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1

	return iqrBounds{
		q1:        q1,
		q3:        q3,
		outlierLo: q1 - 1.5*iqr,
		outlierHi: q3 + 1.5*iqr,
		extremeLo: q1 - 3.0*iqr,
		extremeHi: q3 + 3.0*iqr,
		valid:     iqr > 0,
	}
}

// classify returns "" (normal), "outlier", or "extreme" for a value.
func (b *iqrBounds) classify(v float64) string {
	if !b.valid || v <= 0 {
		return ""
	}
	if v < b.extremeLo || v > b.extremeHi {
		return "extreme"
	}
	if v < b.outlierLo || v > b.outlierHi {
		return "outlier"
	}
	return ""
}

func printScanTable(rows []dataRow, bounds iqrBounds) {
	nameW := len("File")
	rowsW := len("Rows")
	colsW := len("Cols")
	paramsW := len("Generator Params")
	shiftW := len("Shift")

	for _, r := range rows {
		if len(r.Name) > nameW {
			nameW = len(r.Name)
		}
		if n := len(fmt.Sprintf("%d", r.Rows)); n > rowsW {
			rowsW = n
		}
		if n := len(fmt.Sprintf("%d", r.Cols)); n > colsW {
			colsW = n
		}
		if len(r.Params) > paramsW {
			paramsW = len(r.Params)
		}
		if len(r.Shift) > shiftW {
			shiftW = len(r.Shift)
		}
	}

	if nameW > 50 {
		nameW = 50
	}

	header := fmt.Sprintf("  %-*s  %-*s  %-*s  %-*s  %-*s",
		nameW, "File",
		rowsW, "Rows",
		colsW, "Cols",
		paramsW, "Generator Params",
		shiftW, "Shift",
	)
	separator := "  " + strings.Repeat("-", len(header)-2)

	fmt.Println(header)
	fmt.Println(separator)

	for _, r := range rows {
		name := r.Name
		if len(name) > nameW {
			name = name[:nameW-1] + "…"
		}

		class := bounds.classify(float64(r.Rows))

		// Pad the plain text first, then wrap in ANSI color. This avoids
		// the alignment bug where %-*s counts escape bytes as visible width.
		rowsCell := colorPad(fmt.Sprintf("%d", r.Rows), rowsW, class)

		fmt.Printf("  %-*s  %s  %-*s  %-*s  %-*s  %s\n",
			nameW, name,
			rowsCell,
			colsW, fmt.Sprintf("%d", r.Cols),
			paramsW, r.Params,
			shiftW, r.Shift,
			formatFlag(class),
		)
	}
	fmt.Println()
}

func printScanSummary(log *logging.Logger, rows []dataRow, bounds iqrBounds) {
	var outliers, extremes int
	var withParams, withShift int
	for _, r := range rows {
		switch bounds.classify(float64(r.Rows)) {
		case "extreme":
			extremes++
		case "outlier":
			outliers++
		}
		if r.Params != "-" {
			withParams++
		}
		if r.Shift != "-" {
			withShift++
		}
	}

	log.Info("Scanned %d data files", len(rows))
	log.Info("  Generator headers: %d with coefficients, %d with a shift marker", withParams, withShift)
	if bounds.valid {
		log.Info("  Row count IQR: %.0f - %.0f (outlier < %.0f or > %.0f)",
			bounds.q1, bounds.q3, bounds.outlierLo, bounds.outlierHi)
	}
	if outliers > 0 {
		log.Warn("  %d outlier(s) flagged [*]", outliers)
	}
	if extremes > 0 {
		log.Error("  %d extreme outlier(s) flagged [!]", extremes)
	}
	if outliers == 0 && extremes == 0 {
		log.Success("  No outliers detected")
	}
}

func formatFlag(class string) string {
	switch class {
	case "extreme":
		return term.Red + "[!]" + term.NC
	case "outlier":
		return term.Yellow + "[*]" + term.NC
	default:
		return ""
	}
}

// colorPad pads a plain string to width, then wraps in ANSI color. This
// ensures %-*s-style alignment works correctly regardless of escape sequences.
func colorPad(s string, width int, class string) string {
	padded := fmt.Sprintf("%-*s", width, s)
	switch class {
	case "extreme":
		return term.Red + padded + term.NC
	case "outlier":
		return term.Yellow + padded + term.NC
	default:
		return padded
	}
}

// printProgress shows a live scan counter. On a TTY it writes an
// inline \r-overwritten line; otherwise it is a no-op (the skip warnings
// already provide enough breadcrumbs in piped/logged output).
func printProgress(isTTY bool, current, total, skipped int, name string) {
	if !isTTY {
		return
	}
	pct := current * 100 / total
	status := fmt.Sprintf("  Scanning [%d/%d] %d%% ", current, total, pct)
	if skipped > 0 {
		status += fmt.Sprintf("(%d skipped) ", skipped)
	}

	maxName := 40
	if len(name) > maxName {
		name = name[:maxName-1] + "…"
	}
	status += name

	// Pad to 80 chars to overwrite previous longer lines, then \r.
	if len(status) < 80 {
		status += strings.Repeat(" ", 80-len(status))
	}
	fmt.Fprintf(os.Stdout, "\r%s", status)
}

// clearProgress erases the inline progress line on a TTY.
func clearProgress() {
	fmt.Fprintf(os.Stdout, "\r%s\r", strings.Repeat(" ", 80))
}

// percentile computes the p-th percentile using linear interpolation.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi || hi >= len(sorted) {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
