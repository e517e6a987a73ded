package pipeline

// ItemFailure records one failed input for the end-of-run summary.
type ItemFailure struct {
	Input  string
	Reason string
}

// RunStats tracks aggregate counters and byte totals across a batch run.
// Total is set after discovery; Current advances as items complete, so a
// fail-fast or interrupted run shows how far it got.
type RunStats struct {
	Total     int
	Current   int
	Plotted   int
	Skipped   int
	Failed    int
	PlotBytes int64 // bytes of plot files written across the batch
	Failures  []ItemFailure
}
