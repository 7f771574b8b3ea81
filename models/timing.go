package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Phase keys for the order timing table, in their fixed lifecycle order.
const (
	PhaseOrderReceived          = "order_received"
	PhaseAssignedToManufacturer = "assigned_to_manufacturer"
	PhaseStartedManufacturing   = "started_manufacturing"
	PhaseProduced               = "produced"
	PhaseReadyToTake            = "ready_to_take"
)

// Phase holds a timing-table key and its human-readable label.
type Phase struct {
	Key   string
	Label string
}

// Phases is the fixed lifecycle ordering. An entry for phase N+1 must never
// exist unless phase N's entry exists.
var Phases = []Phase{
	{PhaseOrderReceived, "Order Received"},
	{PhaseAssignedToManufacturer, "Assigned to Manufacturer"},
	{PhaseStartedManufacturing, "Started Manufacturing"},
	{PhaseProduced, "Produced"},
	{PhaseReadyToTake, "Ready to Take"},
}

// PhaseLabel returns the human-readable status label for a phase key.
func PhaseLabel(key string) string {
	for _, p := range Phases {
		if p.Key == key {
			return p.Label
		}
	}
	return key
}

// TimingEntry records who completed a lifecycle phase and when.
type TimingEntry struct {
	UserID    uint      `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
}

// TimingTable maps phase keys to at most one timing entry each. Presence of
// a key signals phase completion; absence signals "not yet reached". It is
// stored as a JSON column.
type TimingTable map[string]TimingEntry

// Value implements driver.Valuer for JSON storage
func (t TimingTable) Value() (driver.Value, error) {
	if t == nil {
		t = TimingTable{}
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner for JSON storage
func (t *TimingTable) Scan(value interface{}) error {
	if value == nil {
		*t = TimingTable{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("cannot scan %T into TimingTable", value)
	}
}

// Has reports whether the given phase has been completed.
func (t TimingTable) Has(key string) bool {
	_, ok := t[key]
	return ok
}

// With returns a copy of the table with the given entry added. The receiver
// is never mutated, so a stale read can be retried safely.
func (t TimingTable) With(key string, entry TimingEntry) TimingTable {
	out := make(TimingTable, len(t)+1)
	for k, v := range t {
		out[k] = v
	}
	out[key] = entry
	return out
}

// CurrentStep returns the 1-based index and label of the highest completed
// phase, defaulting to step 1. This is the single canonical derivation used
// by every listing and detail view.
func (t TimingTable) CurrentStep() (int, string) {
	step := 1
	label := Phases[0].Label
	for i, p := range Phases {
		if t.Has(p.Key) {
			step = i + 1
			label = p.Label
		}
	}
	return step, label
}

// NewTimingEntry builds a timing entry for the given phase, stamped now.
func NewTimingEntry(userID uint, phaseKey string) TimingEntry {
	return TimingEntry{
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Status:    PhaseLabel(phaseKey),
	}
}
