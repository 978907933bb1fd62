package domain

import "encoding/json"

// ConflictReason tags why an update was not applied.
type ConflictReason string

const (
	// ReasonPayloadVersionMismatch means value.a != expectedVersion+1.
	ReasonPayloadVersionMismatch ConflictReason = "payload-version-mismatch"

	// ReasonStaleExpectedVersion means the server's version differs from expectedVersion.
	ReasonStaleExpectedVersion ConflictReason = "stale-expected-version"
)

// Update is a proposed write of one data cell.
type Update struct {
	Row             int         `json:"dbrow"`
	Column          string      `json:"dbcol"`
	Value           CellPayload `json:"value"`
	LastModified    int64       `json:"last_modified"`
	ExpectedVersion int64       `json:"expected_version"`
}

// Outcome is the result of evaluating one Update. It is either Accepted or
// Conflict.
type Outcome interface {
	outcome()
	Target() Update
}

// Accepted marks an update that was written.
type Accepted struct {
	Update Update
}

func (Accepted) outcome() {}

// Target returns the evaluated update.
func (a Accepted) Target() Update { return a.Update }

// Conflict marks an update that was rejected. CurrentVersion and
// CurrentValue carry the server state for stale-expected-version conflicts.
type Conflict struct {
	Update         Update          `json:"update"`
	Reason         ConflictReason  `json:"reason"`
	CurrentVersion int64           `json:"current_version"`
	CurrentValue   json.RawMessage `json:"current_value,omitempty"`
}

func (Conflict) outcome() {}

// Target returns the evaluated update.
func (c Conflict) Target() Update { return c.Update }
