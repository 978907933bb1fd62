package service

import "time"

// Observer receives engine events for metrics. All methods must be safe for
// concurrent use.
type Observer interface {
	// CacheLookup reports a last_col or data cache lookup.
	CacheLookup(entry string, hit bool)

	// SyncDecision reports which branch GetChanges took.
	SyncDecision(decision string)

	// UpdateOutcome reports one evaluated update, by "accepted" or conflict reason.
	UpdateOutcome(result string)

	// RowsAppended reports the number of rows written by AppendRows.
	RowsAppended(n int)

	// Operation reports an engine call and its duration.
	Operation(op string, d time.Duration, err error)
}

// Sync decisions.
const (
	DecisionAllSynced = "all_synced"
	DecisionMismatch  = "mismatch"
	DecisionFullFetch = "full_fetch"
	DecisionWindow    = "window"
)

// Cache entry names.
const (
	EntryLastCol = "last_col"
	EntryData    = "data"
)

type nopObserver struct{}

func (nopObserver) CacheLookup(string, bool) {}
func (nopObserver) SyncDecision(string) {}
func (nopObserver) UpdateOutcome(string) {}
func (nopObserver) RowsAppended(int) {}
func (nopObserver) Operation(string, time.Duration, error) {}
