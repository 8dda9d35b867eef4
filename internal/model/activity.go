package model

import "time"

// Activity represents a single recorded change to an issue.
type Activity struct {
	ID           string    `json:"id"`
	IssueID      string    `json:"issue_id"`
	FieldChanged string    `json:"field_changed"`
	OldValue     string    `json:"old_value,omitempty"`
	NewValue     string    `json:"new_value,omitempty"`
	ActorID      string    `json:"actor_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecordID implements the store record interface.
func (a Activity) RecordID() string { return a.ID }
