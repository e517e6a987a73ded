// Package datafile inspects xy data files: it counts data rows and extracts
// the generator parameters that synthesis runs leave in comment headers.
// Inspection feeds the per-file display only; the analysis tool stays the
// sole authority on whether a file is actually fittable.
package datafile
