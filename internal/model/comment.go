package model

import "time"

// Comment represents a comment on an issue.
type Comment struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issue_id"`
	Body      string    `json:"body"`
	AuthorID  string    `json:"author_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordID implements the store record interface.
func (c Comment) RecordID() string { return c.ID }

// AuthorOrAnonymous returns the author id, falling back to "anonymous"
// when the field is empty.
func (c Comment) AuthorOrAnonymous() string {
	if c.AuthorID == "" {
		return "anonymous"
	}
	return c.AuthorID
}
