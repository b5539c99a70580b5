package domain

import (
	"errors"
	"time"
)

// ErrGroupUnavailable marks a fetch that failed for one group only
// (bad HTTP status, unreadable body). Callers skip the group and keep
// going; anything not wrapping this sentinel is a systemic failure.
var ErrGroupUnavailable = errors.New("group unavailable")

// GroupCount is one smart group's resolved name and device count.
type GroupCount struct {
	GroupID string `json:"group_id" db:"group_id"`
	Name    string `json:"name" db:"name"`
	Count   int    `json:"count" db:"count"`
}

// Report holds the counts for one run, in the order the group IDs were
// configured. Total is always the sum of Results counts; groups whose
// fetch failed appear nowhere in it.
type Report struct {
	Results     []GroupCount `json:"results"`
	Total       int          `json:"total"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// VersionCount is one OS version and how many devices run it.
type VersionCount struct {
	Version string `json:"version"`
	Count   int    `json:"count"`
}

// OSReport is the OS-version breakdown across the whole inventory.
type OSReport struct {
	Versions []VersionCount `json:"versions"`
	Total    int            `json:"total"`
}

type RunState struct {
	ID           int64     `db:"id"`
	SourceID     string    `db:"source_id"`
	LastRunAt    time.Time `db:"last_run_at"`
	TotalRuns    int64     `db:"total_runs"`
	TotalDevices int64     `db:"total_devices"`
}
