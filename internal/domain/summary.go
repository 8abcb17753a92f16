package domain

import (
	"errors"
	"fmt"
)

// ErrSummaryNotFound is returned by summary stores for an unknown run ID.
var ErrSummaryNotFound = errors.New("import summary not found")

// ImportSummary reports the outcome of one import run. Warnings are ordered
// by row index and are the only surface for partial failures.
type ImportSummary struct {
	RunID             string   `json:"run_id,omitempty"`
	RowsReceived      int      `json:"rows_received"`
	ArrivalsCreated   int      `json:"arrivals_created"`
	DeparturesCreated int      `json:"departures_created"`
	Warnings          []string `json:"warnings"`
}

// RowWarning formats a row-scoped warning.
func RowWarning(idx int, msg any) string {
	return fmt.Sprintf("Row %d: %v", idx, msg)
}
