// Package filter holds pure predicate helpers shared by the stores and
// the CLI list commands.
package filter

import "github.com/gridline-app/gridline/internal/model"

// ToStringSet converts a slice of strings to a set for O(1) membership checks.
func ToStringSet(ss []string) map[string]struct{} {
	if len(ss) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		set[s] = struct{}{}
	}
	return set
}

// HasAllLabels returns true if the issue has every label in the required set.
func HasAllLabels(issue model.Issue, required map[string]struct{}) bool {
	have := make(map[string]struct{}, len(issue.Labels))
	for _, l := range issue.Labels {
		have[l] = struct{}{}
	}
	for l := range required {
		if _, ok := have[l]; !ok {
			return false
		}
	}
	return true
}

// MatchesStatus returns true when the status set is empty or contains the
// issue's status.
func MatchesStatus(issue model.Issue, statuses map[string]struct{}) bool {
	if len(statuses) == 0 {
		return true
	}
	_, ok := statuses[string(issue.Status)]
	return ok
}

// Blocking reports whether rel, viewed from issueID's side, blocks the
// other issue. Used by the schedule planner to build dependency edges.
func Blocking(rel model.Relation, issueID string) (string, bool) {
	rt, otherID := rel.TypeFor(issueID)
	if rt == model.RelationBlocks {
		return otherID, true
	}
	return "", false
}
