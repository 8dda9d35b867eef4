package filter

import (
	"testing"

	"github.com/gridline-app/gridline/internal/model"
)

func TestToStringSet(t *testing.T) {
	if set := ToStringSet(nil); set != nil {
		t.Errorf("empty input = %v, want nil", set)
	}
	set := ToStringSet([]string{"a", "b", "a"})
	if len(set) != 2 {
		t.Errorf("set size = %d, want 2", len(set))
	}
	if _, ok := set["a"]; !ok {
		t.Error("missing element a")
	}
}

func TestHasAllLabels(t *testing.T) {
	issue := model.Issue{Labels: []string{"bug", "ui"}}

	if !HasAllLabels(issue, ToStringSet([]string{"bug"})) {
		t.Error("subset should match")
	}
	if !HasAllLabels(issue, nil) {
		t.Error("empty requirement should match")
	}
	if HasAllLabels(issue, ToStringSet([]string{"bug", "backend"})) {
		t.Error("missing label should not match")
	}
}

func TestBlocking(t *testing.T) {
	rel := model.Relation{IssueID: "a", RelatedIssueID: "b", Type: model.RelationBlocks}

	if other, ok := Blocking(rel, "a"); !ok || other != "b" {
		t.Errorf("from source: (%q, %v), want (b, true)", other, ok)
	}
	// From b's side the relation reads blocked_by; b blocks nothing.
	if _, ok := Blocking(rel, "b"); ok {
		t.Error("target side should not report blocking")
	}

	related := model.Relation{IssueID: "a", RelatedIssueID: "b", Type: model.RelationRelatesTo}
	if _, ok := Blocking(related, "a"); ok {
		t.Error("relates_to should not report blocking")
	}
}
