package compiler

import (
	"fmt"
	"strings"

	"github.com/statokit/stato/internal/module"
)

// Node colors for the depth-first cycle search.
const (
	white = iota // not yet visited
	gray         // on the current traversal path
	black        // fully explored
)

// detectCycle checks the plan's step dependency graph for cycles. Edges run
// from a dependency's id to the id of the step that depends on it. The
// traversal is an explicit-stack depth-first search so its depth does not
// grow with plan size, and roots are visited in first-seen order to keep the
// result deterministic for a given graph.
//
// The return value is the offending node path including the closing node
// (e.g. [1 2 1]), or nil when the graph is acyclic.
func detectCycle(steps []*module.Step) []int {
	adj := make(map[int][]int)
	var order []int
	ensure := func(id int) {
		if _, ok := adj[id]; !ok {
			adj[id] = nil
			order = append(order, id)
		}
	}
	for _, step := range steps {
		ensure(step.ID)
		for _, dep := range step.DependsOn {
			ensure(dep)
			adj[dep] = append(adj[dep], step.ID)
		}
	}

	color := make(map[int]int, len(adj))
	var path []int

	type frame struct {
		node int
		next int
	}

	for _, root := range order {
		if color[root] != white {
			continue
		}

		stack := []frame{{node: root}}
		color[root] = gray
		path = append(path[:0], root)

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.next < len(adj[f.node]) {
				neighbor := adj[f.node][f.next]
				f.next++

				switch color[neighbor] {
				case gray:
					// Back-edge: the cycle runs from the first occurrence of
					// the neighbor on the path through the closing edge.
					start := 0
					for i, n := range path {
						if n == neighbor {
							start = i
							break
						}
					}
					cycle := append([]int{}, path[start:]...)
					return append(cycle, neighbor)
				case white:
					color[neighbor] = gray
					path = append(path, neighbor)
					stack = append(stack, frame{node: neighbor})
				}
				continue
			}

			color[f.node] = black
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}

	return nil
}

func formatCycle(cycle []int) string {
	parts := make([]string, len(cycle))
	for i, id := range cycle {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, " -> ")
}
