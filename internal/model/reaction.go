package model

import (
	"fmt"
	"strings"
	"time"
)

// Reaction represents an emoji reaction a member has left on an issue.
// A member may react with any number of distinct emoji, but only once
// per emoji.
type Reaction struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issue_id"`
	MemberID  string    `json:"member_id"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordID implements the store record interface.
func (r Reaction) RecordID() string { return r.ID }

// ValidateEmoji returns an error if the reaction emoji is empty.
// The server is the authority on which emoji are permitted; the client
// only rejects the obviously malformed case.
func ValidateEmoji(emoji string) error {
	if strings.TrimSpace(emoji) == "" {
		return fmt.Errorf("empty reaction emoji")
	}
	return nil
}
