package naming

import (
	"regexp"
	"strings"
)

// dataFilePattern matches basenames the batch operates on: the literal
// prefix "xy_" followed by at least one ASCII digit. The tail is free form,
// so "xy_42_trial.dat.bak" qualifies and "xy_abc.dat" does not.
var dataFilePattern = regexp.MustCompile(`^xy_[0-9]`)

// MatchesDataFile reports whether basename names a generated data file.
// Matching is case-sensitive and applies to the basename only; directory
// components never influence selection.
func MatchesDataFile(basename string) bool {
	return dataFilePattern.MatchString(basename)
}

// DeriveOutputPath maps an input data path to its plot path by replacing the
// first occurrence of "xy" with "plot", then the first occurrence of "dat"
// with "png". Both substitutions act on the whole path string, not just the
// basename, and an absent substring leaves the path unchanged at that step.
//
// The replacements run in exactly this order with no token boundaries:
// "xy_001.datxy" becomes "plot_001.pngxy" (the overlapping tail "xy" has
// already been passed over when "dat" is rewritten), and a directory name
// containing "dat" absorbs the second substitution before the extension can.
// Existing result sets were produced with these names, so the mapping stays
// bit-exact with the original loop rather than anchoring on the extension.
func DeriveOutputPath(inputPath string) string {
	out := strings.Replace(inputPath, "xy", "plot", 1)
	return strings.Replace(out, "dat", "png", 1)
}
