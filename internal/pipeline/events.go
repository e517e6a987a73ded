package pipeline

// ItemStatus is the terminal state of one processed data file.
type ItemStatus string

const (
	StatusPlotted ItemStatus = "plotted"
	StatusSkipped ItemStatus = "skipped"
	StatusFailed  ItemStatus = "failed"
)

// EventKind discriminates the progress notifications sent to an observer.
type EventKind int

const (
	// EventStart fires once after discovery, before the first item.
	EventStart EventKind = iota
	// EventItemStart fires when an item begins. With parallel jobs these
	// arrive from multiple workers and carry no stats snapshot.
	EventItemStart
	// EventItemDone fires when an item reaches a terminal status.
	EventItemDone
	// EventBatchDone fires exactly once on every exit path, including a
	// failed discovery. Observers can use it as their quit signal.
	EventBatchDone
)

// Event is one progress notification from the batch runner. Stats is a
// snapshot taken after the event's effect and is populated for every kind
// except EventItemStart.
type Event struct {
	Kind   EventKind
	Index  int // 1-based item index; zero for batch-level events
	Total  int
	Input  string
	Output string
	Status ItemStatus // terminal status, EventItemDone only
	Err    error      // non-nil only when Status is StatusFailed
	Stats  RunStats
}

// emit sends ev when an events channel is attached; no-op otherwise.
// Sends block, so an attached observer must drain until EventBatchDone.
func emit(events chan<- Event, ev Event) {
	if events != nil {
		events <- ev
	}
}
