package schedule

import (
	"sort"

	"github.com/gridline-app/gridline/internal/filter"
	"github.com/gridline-app/gridline/internal/model"
)

// Phase is a group of issues that can be worked in parallel.
type Phase struct {
	Number int
	Issues []model.Issue
}

// Plan is the full execution plan: a sequence of phases with summary stats.
type Plan struct {
	Phases         []Phase
	TotalIssues    int
	TotalPhases    int
	MaxParallelism int
}

// PlanFilters controls which issues are included in the generated plan.
type PlanFilters struct {
	Statuses []string
	Labels   []string
}

// GeneratePlan builds an execution plan from the dependency graph. It uses
// topological level grouping to create phases: phase 1 contains issues with
// no blockers, phase N contains issues whose blockers are all in earlier
// phases. Issues already done are skipped, and optional status/label
// filters are applied.
func GeneratePlan(g *Graph, filters PlanFilters) (*Plan, error) {
	statusSet := filter.ToStringSet(filters.Statuses)
	labelSet := filter.ToStringSet(filters.Labels)

	levels, err := TopoSort(g)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}

	for _, level := range levels {
		var phaseIssues []model.Issue
		for _, id := range level {
			node, ok := g.Nodes[id]
			if !ok {
				continue
			}
			issue := node.Issue

			if issue.Status == model.StatusDone {
				continue
			}
			if len(statusSet) > 0 {
				if _, ok := statusSet[string(issue.Status)]; !ok {
					continue
				}
			}
			if len(labelSet) > 0 && !filter.HasAllLabels(issue, labelSet) {
				continue
			}

			phaseIssues = append(phaseIssues, issue)
		}

		if len(phaseIssues) == 0 {
			continue
		}

		sortIssues(phaseIssues)

		plan.Phases = append(plan.Phases, Phase{
			Number: len(plan.Phases) + 1,
			Issues: phaseIssues,
		})
	}

	for _, phase := range plan.Phases {
		plan.TotalIssues += len(phase.Issues)
		if len(phase.Issues) > plan.MaxParallelism {
			plan.MaxParallelism = len(phase.Issues)
		}
	}
	plan.TotalPhases = len(plan.Phases)

	return plan, nil
}

// FindReady returns issues that are work-ready: their status is in the
// provided list (default: backlog, todo), all of their blockers are done,
// and they have no sub-issues (leaf tasks only). Results are sorted by
// priority (highest first), then by id.
func FindReady(g *Graph, statuses []string) []model.Issue {
	if len(statuses) == 0 {
		statuses = []string{string(model.StatusBacklog), string(model.StatusTodo)}
	}
	statusSet := filter.ToStringSet(statuses)

	var ready []model.Issue
	for _, node := range g.Nodes {
		issue := node.Issue

		if _, ok := statusSet[string(issue.Status)]; !ok {
			continue
		}
		if issue.SubIssueCount > 0 {
			continue
		}

		blocked := false
		for blockerID := range node.Reverse {
			blocker, ok := g.Nodes[blockerID]
			if !ok {
				continue
			}
			if blocker.Issue.Status != model.StatusDone {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}

		ready = append(ready, issue)
	}

	sortIssues(ready)
	return ready
}

// sortIssues orders issues by priority rank (urgent first), then id.
func sortIssues(issues []model.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		ri, rj := priorityRank(issues[i].Priority), priorityRank(issues[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return issues[i].ID < issues[j].ID
	})
}

func priorityRank(p model.Priority) int {
	switch p {
	case model.PriorityUrgent:
		return 0
	case model.PriorityHigh:
		return 1
	case model.PriorityMedium:
		return 2
	case model.PriorityLow:
		return 3
	default:
		return 4
	}
}
