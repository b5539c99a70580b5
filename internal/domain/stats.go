package domain

import "time"

// ReportStats holds statistics about one report run.
type ReportStats struct {
	SourceID  string
	Requested int
	Resolved  int
	Missing   int
	Total     int
	Stored    bool
	Published bool
	Duration  time.Duration
}
