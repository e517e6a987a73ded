// Package naming implements the data file selection and plot name derivation
// contract: which basenames the batch picks up, and the fixed substring
// substitution that maps each input path to its plot path. It also tracks
// which input claimed each derived output so duplicate targets can be
// surfaced before the tool overwrites them.
package naming
