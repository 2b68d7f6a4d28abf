// SPDX-License-Identifier: MPL-2.0

// Package dag provides directed graph operations for deterministic topological
// sorting, cycle detection and reachability. It is used to order snippets so
// that every snippet follows the snippets it requires.
package dag

import (
	"container/heap"
	"fmt"
	"slices"
	"strings"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle contains the nodes that form the cycle (not necessarily all of them,
		// but enough to identify the problem).
		Cycle []string
	}

	// Graph is a directed graph for topological sorting.
	// Nodes are identified by string keys. An edge from A to B means A must be
	// placed before B.
	Graph struct {
		// adjacency maps each node to its outgoing neighbors.
		adjacency map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
	}

	// CompareFunc orders ready nodes. It returns a negative number when a
	// should be emitted before b, as for slices.SortFunc.
	CompareFunc func(a, b string) int

	readyQueue struct {
		items   []string
		compare CompareFunc
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to, meaning "from" must be placed before "to".
// Both nodes are implicitly added if they don't exist.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Has reports whether the node exists.
func (g *Graph) Has(name string) bool { return g.nodeSet[name] }

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []string { return slices.Clone(g.nodes) }

// SortFunc returns a topological order in which, whenever several nodes are
// ready, the smallest according to compare is emitted first. The result is
// the lexicographically smallest valid order under compare, so it is
// deterministic whenever compare is a strict total order.
//
// With flip set every edge is reversed before sorting. Reversing the edges is
// not the same as reversing the result: only the former keeps the tie-break
// preference intact.
func (g *Graph) SortFunc(compare CompareFunc, flip bool) ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	adjacency := g.adjacency
	if flip {
		adjacency = make(map[string][]string, len(g.adjacency))
		for _, from := range g.nodes {
			for _, to := range g.adjacency[from] {
				adjacency[to] = append(adjacency[to], from)
			}
		}
	}

	// Compute in-degrees.
	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	// Seed the queue with nodes that have no incoming edges.
	queue := &readyQueue{compare: compare}
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue.items = append(queue.items, node)
		}
	}
	heap.Init(queue)

	result := make([]string, 0, len(g.nodes))
	for queue.Len() > 0 {
		node := heap.Pop(queue).(string)
		result = append(result, node)

		for _, neighbor := range adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				heap.Push(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		// Remaining nodes with non-zero in-degree form the cycle.
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}

func (q *readyQueue) Len() int           { return len(q.items) }
func (q *readyQueue) Less(i, j int) bool { return q.compare(q.items[i], q.items[j]) < 0 }
func (q *readyQueue) Swap(i, j int)      { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *readyQueue) Push(x any)         { q.items = append(q.items, x.(string)) }

func (q *readyQueue) Pop() any {
	last := q.items[len(q.items)-1]
	q.items = q.items[:len(q.items)-1]
	return last
}

// ReachableSet returns every node reachable from seeds, seeds included, in
// sorted order. neighbors is called once per reached node; cycles are
// harmless. An error from neighbors aborts the walk.
func ReachableSet(seeds []string, neighbors func(string) ([]string, error)) ([]string, error) {
	reached := make(map[string]bool, len(seeds))
	queue := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if !reached[s] {
			reached[s] = true
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		next, err := neighbors(node)
		if err != nil {
			return nil, err
		}
		for _, n := range next {
			if !reached[n] {
				reached[n] = true
				queue = append(queue, n)
			}
		}
	}
	out := make([]string, 0, len(reached))
	for n := range reached {
		out = append(out, n)
	}
	slices.Sort(out)
	return out, nil
}
