package schedule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gridline-app/gridline/internal/model"
)

// CycleError is returned when the dependency graph contains a cycle and
// topological sorting is not possible.
type CycleError struct {
	IDs []string
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		parts[i] = model.ShortID(id)
	}
	return fmt.Sprintf("cycle detected among issues: %s", strings.Join(parts, ", "))
}

// TopoSort performs a topological sort on the graph using Kahn's algorithm.
// It returns issue ids grouped by topological level: level 0 contains issues
// with no blockers, level 1 contains issues whose blockers are all in level
// 0, and so on. Ids within a level are sorted for deterministic output.
//
// Returns a CycleError if the graph contains a cycle, listing the ids of
// the issues involved.
func TopoSort(g *Graph) ([][]string, error) {
	inDegree := make(map[string]int, len(g.Nodes))
	for id, node := range g.Nodes {
		inDegree[id] = len(node.Reverse)
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	var levels [][]string
	processed := 0

	for len(queue) > 0 {
		level := make([]string, len(queue))
		copy(level, queue)
		sort.Strings(level)
		levels = append(levels, level)
		processed += len(level)

		var nextQueue []string
		for _, id := range queue {
			node := g.Nodes[id]
			for neighbor := range node.Forward {
				inDegree[neighbor]--
				if inDegree[neighbor] == 0 {
					nextQueue = append(nextQueue, neighbor)
				}
			}
		}
		sort.Strings(nextQueue)
		queue = nextQueue
	}

	if processed != len(g.Nodes) {
		var cycleIDs []string
		for id, deg := range inDegree {
			if deg > 0 {
				cycleIDs = append(cycleIDs, id)
			}
		}
		sort.Strings(cycleIDs)
		return nil, &CycleError{IDs: cycleIDs}
	}

	return levels, nil
}
