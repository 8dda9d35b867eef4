package model

import (
	"fmt"
	"time"
)

// Status represents the workflow state of an issue.
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

var validStatuses = []Status{
	StatusBacklog,
	StatusTodo,
	StatusInProgress,
	StatusReview,
	StatusDone,
}

// ValidateStatus returns an error if s is not a recognized status.
func ValidateStatus(s Status) error {
	for _, v := range validStatuses {
		if s == v {
			return nil
		}
	}
	return fmt.Errorf("invalid status %q: must be one of %v", s, validStatuses)
}

// Color returns a color name string suitable for terminal rendering.
func (s Status) Color() string {
	switch s {
	case StatusBacklog:
		return "gray"
	case StatusTodo:
		return "blue"
	case StatusInProgress:
		return "yellow"
	case StatusReview:
		return "magenta"
	case StatusDone:
		return "green"
	default:
		return "white"
	}
}

// Icon returns a single-rune indicator for the status.
func (s Status) Icon() string {
	switch s {
	case StatusBacklog:
		return "◌"
	case StatusTodo:
		return "○"
	case StatusInProgress:
		return "◐"
	case StatusReview:
		return "◔"
	case StatusDone:
		return "●"
	default:
		return " "
	}
}

// Priority represents the urgency of an issue.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

var validPriorities = []Priority{
	PriorityUrgent,
	PriorityHigh,
	PriorityMedium,
	PriorityLow,
	PriorityNone,
}

// ValidatePriority returns an error if p is not a recognized priority.
func ValidatePriority(p Priority) error {
	for _, v := range validPriorities {
		if p == v {
			return nil
		}
	}
	return fmt.Errorf("invalid priority %q: must be one of %v", p, validPriorities)
}

// Color returns a color name string suitable for terminal rendering.
func (p Priority) Color() string {
	switch p {
	case PriorityUrgent:
		return "red"
	case PriorityHigh:
		return "yellow"
	case PriorityMedium:
		return "blue"
	case PriorityLow:
		return "gray"
	default:
		return "white"
	}
}

// Icon returns a short marker for the priority level.
func (p Priority) Icon() string {
	switch p {
	case PriorityUrgent:
		return "!!!"
	case PriorityHigh:
		return "!!"
	case PriorityMedium:
		return "!"
	case PriorityLow:
		return "-"
	default:
		return " "
	}
}

// Issue represents a tracked issue. The counter fields mirror the server's
// aggregate counts and are adjusted optimistically by the store layer when
// child records are added or removed.
type Issue struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"project_id"`
	ParentID        string    `json:"parent_id,omitempty"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Status          Status    `json:"status"`
	Priority        Priority  `json:"priority"`
	AssigneeID      string    `json:"assignee_id,omitempty"`
	Labels          []string  `json:"labels,omitempty"`
	CommentCount    int       `json:"comment_count"`
	LinkCount       int       `json:"link_count"`
	AttachmentCount int       `json:"attachment_count"`
	SubIssueCount   int       `json:"sub_issue_count"`
	StartDate       time.Time `json:"start_date,omitzero"`
	TargetDate      time.Time `json:"target_date,omitzero"`
	SortOrder       float64   `json:"sort_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RecordID implements the store record interface.
func (i Issue) RecordID() string { return i.ID }

// Subscription represents the current member's subscription to an issue's
// notifications.
type Subscription struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issue_id"`
	MemberID  string    `json:"member_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordID implements the store record interface.
func (s Subscription) RecordID() string { return s.ID }
