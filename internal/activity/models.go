package activity

import "time"

// Status classifies what the user is doing at a sample instant.
type Status string

const (
	StatusOnTask  Status = "on_task"
	StatusOffTask Status = "off_task"
	StatusBreak   Status = "break"
	StatusUnknown Status = "unknown"
)

// ParseStatus maps a classifier status string onto a known Status,
// falling back to unknown for anything unrecognized.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusOnTask, StatusOffTask, StatusBreak, StatusUnknown:
		return Status(s)
	default:
		return StatusUnknown
	}
}

// Result is a single classification produced by the analyzer.
type Result struct {
	Status      Status
	Description string
	Confidence  float64
	Reasoning   string
	Suggestion  string
	Timestamp   time.Time
}

// Record is the persisted projection of a Result. The JSON field names are
// the on-disk contract of the activity log and must not change.
type Record struct {
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"activity_description"`
	Status      Status    `json:"status"`
	Confidence  float64   `json:"confidence"`
}

func recordFrom(r Result) Record {
	return Record{
		Timestamp:   r.Timestamp,
		Description: r.Description,
		Status:      r.Status,
		Confidence:  r.Confidence,
	}
}

// TimeBudget caps cumulative minutes spent on activities whose description
// contains ActivityPattern (case-insensitive) within a rolling window of
// PerMinutes.
type TimeBudget struct {
	ActivityPattern string
	MaxMinutes      int
	PerMinutes      int
}
