// Package schedule orders issues by their blocking relations so the
// timeline view can propose an execution sequence.
package schedule

import "github.com/gridline-app/gridline/internal/model"

// Node wraps a model.Issue with forward and reverse dependency edges.
// Forward edges point from a blocker to the issues it blocks (blocker -> blocked).
// Reverse edges point from a blocked issue back to its blockers (blocked -> blockers).
type Node struct {
	Issue   model.Issue
	Forward map[string]struct{} // issue ids this node blocks
	Reverse map[string]struct{} // issue ids that block this node
}

// Graph holds the directed graph of issue dependencies.
type Graph struct {
	Nodes map[string]*Node
}

// BuildGraph constructs a dependency graph from issues and their relations.
//
// Relations are normalized into a single edge direction:
//   - "blocks":     issue blocks related  -> edge from issue to related
//   - "blocked_by": issue is blocked by related -> edge from related to issue
//
// Symmetric relation types (relates_to, duplicates) carry no ordering and
// are skipped. Relations referencing issues not in the input are silently
// ignored.
func BuildGraph(issues []model.Issue, relations []model.Relation) *Graph {
	g := &Graph{
		Nodes: make(map[string]*Node, len(issues)),
	}

	for _, issue := range issues {
		g.Nodes[issue.ID] = &Node{
			Issue:   issue,
			Forward: make(map[string]struct{}),
			Reverse: make(map[string]struct{}),
		}
	}

	for _, rel := range relations {
		var fromID, toID string

		switch rel.Type {
		case model.RelationBlocks:
			fromID = rel.IssueID
			toID = rel.RelatedIssueID
		case model.RelationBlockedBy:
			fromID = rel.RelatedIssueID
			toID = rel.IssueID
		default:
			continue
		}

		fromNode, fromOK := g.Nodes[fromID]
		toNode, toOK := g.Nodes[toID]
		if !fromOK || !toOK {
			continue
		}

		fromNode.Forward[toID] = struct{}{}
		toNode.Reverse[fromID] = struct{}{}
	}

	return g
}
