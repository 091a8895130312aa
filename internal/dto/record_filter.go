// RecordFilters narrow the audit lists served by the API.
package dto

import "time"

type RecordFilters struct {
	Camera string
	Tag    int // negative means any tag
	After  time.Time
	Before time.Time
	Limit  int
	Offset int
}

// NewRecordFilters returns filters that match every record.
func NewRecordFilters() *RecordFilters {
	return &RecordFilters{Tag: -1}
}
