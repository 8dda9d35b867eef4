package model

import (
	"fmt"
	"time"
)

// GanttBlock is the timeline representation of an issue: its scheduled
// date range and its vertical position in the timeline view. Blocks are
// ordered by ascending SortOrder; moving a block assigns it a new
// SortOrder between its new neighbours.
type GanttBlock struct {
	ID         string    `json:"id"`
	IssueID    string    `json:"issue_id"`
	ProjectID  string    `json:"project_id"`
	StartDate  time.Time `json:"start_date,omitzero"`
	TargetDate time.Time `json:"target_date,omitzero"`
	SortOrder  float64   `json:"sort_order"`
}

// RecordID implements the store record interface.
func (b GanttBlock) RecordID() string { return b.ID }

// Duration returns the block's scheduled length. Blocks missing either
// date have zero duration.
func (b GanttBlock) Duration() time.Duration {
	if b.StartDate.IsZero() || b.TargetDate.IsZero() {
		return 0
	}
	return b.TargetDate.Sub(b.StartDate)
}

// ValidateDateRange returns an error if the target date precedes the start
// date. Blocks with only one of the two dates set are valid.
func (b GanttBlock) ValidateDateRange() error {
	if b.StartDate.IsZero() || b.TargetDate.IsZero() {
		return nil
	}
	if b.TargetDate.Before(b.StartDate) {
		return fmt.Errorf("target date %s precedes start date %s",
			b.TargetDate.Format("2006-01-02"), b.StartDate.Format("2006-01-02"))
	}
	return nil
}
