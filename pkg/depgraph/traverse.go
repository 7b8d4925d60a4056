package depgraph

type visitState uint8

const (
	stateVisiting visitState = iota + 1
	stateDone
)

type frame struct {
	node int
	next int
}

// DetectCycles runs a depth-first search from every unvisited node, in
// insertion order, and returns the cycles found. A cycle is the path from the
// first occurrence of the revisited node to the current node, with the
// revisited node appended to close the loop.
//
// Each search start stops at its first back edge, so several cycles reachable
// from one start are reported as one. Rotations of a cycle reached from
// different starts are reported separately.
func (g *Graph) DetectCycles() [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := len(g.keys)
	visited := make([]bool, n)
	onStack := make([]bool, n)
	var cycles [][]string

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		visited[start] = true
		onStack[start] = true
		stack := []frame{{node: start}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(g.adj[top.node]) {
				onStack[top.node] = false
				stack = stack[:len(stack)-1]
				continue
			}
			dep := g.adj[top.node][top.next]
			top.next++

			if !visited[dep] {
				visited[dep] = true
				onStack[dep] = true
				stack = append(stack, frame{node: dep})
				continue
			}
			if onStack[dep] {
				cycles = append(cycles, g.cycleFrom(stack, dep))
				break
			}
		}

		// Unwind whatever is left after an early stop.
		for _, f := range stack {
			onStack[f.node] = false
		}
	}
	return cycles
}

func (g *Graph) cycleFrom(stack []frame, target int) []string {
	idx := 0
	for i, f := range stack {
		if f.node == target {
			idx = i
			break
		}
	}
	cycle := make([]string, 0, len(stack)-idx+1)
	for _, f := range stack[idx:] {
		cycle = append(cycle, g.keys[f.node])
	}
	return append(cycle, g.keys[target])
}

// HasCycles reports whether DetectCycles would return anything.
func (g *Graph) HasCycles() bool {
	return len(g.DetectCycles()) > 0
}

// TopologicalOrder returns every node such that, for each edge a -> b, b comes
// before a. The search runs over reversed edges with temporary and permanent
// marks and the finish order is reversed. A node revisited while temporarily
// marked is skipped, so on cyclic graphs the order is best effort.
func (g *Graph) TopologicalOrder() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := len(g.keys)
	dependents := make([][]int, n)
	for from, deps := range g.adj {
		for _, to := range deps {
			dependents[to] = append(dependents[to], from)
		}
	}

	states := make([]visitState, n)
	finished := make([]int, 0, n)

	for start := 0; start < n; start++ {
		if states[start] != 0 {
			continue
		}
		states[start] = stateVisiting
		stack := []frame{{node: start}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(dependents[top.node]) {
				states[top.node] = stateDone
				finished = append(finished, top.node)
				stack = stack[:len(stack)-1]
				continue
			}
			next := dependents[top.node][top.next]
			top.next++
			if states[next] != 0 {
				continue
			}
			states[next] = stateVisiting
			stack = append(stack, frame{node: next})
		}
	}

	order := make([]string, n)
	for i, id := range finished {
		order[n-1-i] = g.keys[id]
	}
	return order
}
