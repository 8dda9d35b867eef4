package model

import (
	"fmt"
	"strings"
	"time"
)

// RelationType represents the kind of relationship between two issues.
type RelationType string

const (
	RelationBlocks     RelationType = "blocks"
	RelationBlockedBy  RelationType = "blocked_by"
	RelationRelatesTo  RelationType = "relates_to"
	RelationDuplicates RelationType = "duplicates"
)

var validRelationTypes = []RelationType{
	RelationBlocks,
	RelationBlockedBy,
	RelationRelatesTo,
	RelationDuplicates,
}

// ValidateRelationType returns an error if rt is not a recognized relation type.
func ValidateRelationType(rt RelationType) error {
	for _, v := range validRelationTypes {
		if rt == v {
			return nil
		}
	}
	return fmt.Errorf("invalid relation type %q: must be one of %v", rt, validRelationTypes)
}

// ParseRelationType accepts both hyphenated ("blocked-by") and underscored
// ("blocked_by") forms and returns the canonical underscored RelationType.
func ParseRelationType(input string) (RelationType, error) {
	normalized := RelationType(strings.ReplaceAll(strings.TrimSpace(input), "-", "_"))
	if err := ValidateRelationType(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// Inverse returns the relation type as seen from the related issue.
// For example, if A "blocks" B, then from B's side A is "blocked_by".
// Symmetric types return themselves.
func (rt RelationType) Inverse() RelationType {
	switch rt {
	case RelationBlocks:
		return RelationBlockedBy
	case RelationBlockedBy:
		return RelationBlocks
	default:
		return rt
	}
}

// Relation represents a relationship from one issue to another. The store
// indexes a relation under both issue ids; RelationFor reports the type as
// seen from a given side.
type Relation struct {
	ID             string       `json:"id"`
	IssueID        string       `json:"issue_id"`
	RelatedIssueID string       `json:"related_issue_id"`
	Type           RelationType `json:"relation_type"`
	CreatedAt      time.Time    `json:"created_at"`
}

// RecordID implements the store record interface.
func (r Relation) RecordID() string { return r.ID }

// TypeFor returns the relation type as seen from issueID's side, and the id
// of the issue on the other side.
func (r Relation) TypeFor(issueID string) (RelationType, string) {
	if r.IssueID == issueID {
		return r.Type, r.RelatedIssueID
	}
	return r.Type.Inverse(), r.IssueID
}
