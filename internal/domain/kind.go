package domain

// EventKind identifies a lifecycle transition reported to the webhook
// batcher (spec.md §4.10). Unlike ProcessStatus/FoundStatus these are not
// stored on the event row — they are ephemeral notifications about a
// transition that just happened.
type EventKind string

const (
	KindNew          EventKind = "New"
	KindHashMismatch EventKind = "HashMismatch"
	KindFound        EventKind = "Found"
	KindRetrying     EventKind = "Retrying"
	KindProcessed    EventKind = "Processed"
	KindFailed       EventKind = "Failed"
)

// kindPriority fixes the ordering a batch is sorted into before it is
// shipped to a sink: New < HashMismatch < Found < Retrying < Processed <
// Failed (§4.10).
var kindPriority = map[EventKind]int{
	KindNew:          0,
	KindHashMismatch: 1,
	KindFound:        2,
	KindRetrying:     3,
	KindProcessed:    4,
	KindFailed:       5,
}

// Priority returns the fixed sort rank for a kind. Unknown kinds sort last.
func (k EventKind) Priority() int {
	if p, ok := kindPriority[k]; ok {
		return p
	}
	return len(kindPriority)
}
