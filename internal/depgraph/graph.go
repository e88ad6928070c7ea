// Package depgraph builds the cell dependency graph from classified
// cells. It supports topological ordering, depth computation, cycle
// reporting, and connected-component clustering.
package depgraph

import (
	"sort"

	"github.com/leapstack-labs/leapsheet/internal/classifier"
)

// Node is one cell in the dependency graph.
type Node struct {
	Addr      string
	Role      classifier.Role
	Formula   string
	InDegree  int
	OutDegree int
	// Depth is the longest path from a root; -1 for nodes excluded
	// from execution order.
	Depth int
	// Cluster is the connected-component id the node belongs to.
	Cluster int
}

// Edge records that Target's formula reads Source's value.
type Edge struct {
	Source string
	Target string
}

// Cluster is a weakly-connected component of the graph, partitioned by
// role. SemanticPurpose is advisory and may be empty.
type Cluster struct {
	ID              int
	Members         []string
	Inputs          []string
	Outputs         []string
	Intermediates   []string
	SemanticPurpose string
}

// Graph is the dependency graph of one workbook.
type Graph struct {
	nodes    map[string]*Node
	children map[string][]string // source -> formula cells reading it
	parents  map[string][]string // formula cell -> cells it reads
	selfRef  map[string]bool     // cells whose formula reads themselves

	// ExecutionOrder lists nodes in a valid evaluation order. Nodes
	// caught in a cycle are absent.
	ExecutionOrder []string
	Edges          []Edge
	Clusters       []Cluster
	// CircularRefs holds one sorted address set per group of cells
	// that could not be linearized.
	CircularRefs [][]string
}

// Node returns the node at addr, or nil.
func (g *Graph) Node(addr string) *Node {
	return g.nodes[addr]
}

// Nodes returns all nodes sorted by address.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// Parents returns the addresses a node's formula reads.
func (g *Graph) Parents(addr string) []string {
	return g.parents[addr]
}

// Children returns the formula cells that read a node's value.
func (g *Graph) Children(addr string) []string {
	return g.children[addr]
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.Edges) }

// Build constructs the dependency graph from a classification result.
// References to addresses with no classified cell synthesize Input
// nodes, so off-sheet and empty-cell reads still appear in the graph.
func Build(res *classifier.Result) *Graph {
	g := &Graph{
		nodes:    make(map[string]*Node),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
		selfRef:  make(map[string]bool),
	}

	for addr, cc := range res.Cells {
		g.nodes[addr] = &Node{Addr: addr, Role: cc.Role, Formula: cc.Formula, Depth: -1}
	}
	for _, addr := range res.Order {
		cc := res.Cells[addr]
		for _, ref := range cc.References {
			if ref == addr {
				// A cell reading itself is a one-cell cycle. The edge
				// stays out of the adjacency, but the cell must not be
				// linearized.
				g.selfRef[addr] = true
				continue
			}
			if _, ok := g.nodes[ref]; !ok {
				g.nodes[ref] = &Node{Addr: ref, Role: classifier.RoleInput, Depth: -1}
			}
			g.addEdge(ref, addr)
		}
	}

	for _, children := range g.children {
		sort.Strings(children)
	}
	for _, parents := range g.parents {
		sort.Strings(parents)
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].Source != g.Edges[j].Source {
			return g.Edges[i].Source < g.Edges[j].Source
		}
		return g.Edges[i].Target < g.Edges[j].Target
	})

	g.sortTopological()
	g.computeDepths()
	g.clusterComponents()
	return g
}

func (g *Graph) addEdge(source, target string) {
	for _, existing := range g.children[source] {
		if existing == target {
			return
		}
	}
	g.children[source] = append(g.children[source], target)
	g.parents[target] = append(g.parents[target], source)
	g.nodes[source].OutDegree++
	g.nodes[target].InDegree++
	g.Edges = append(g.Edges, Edge{Source: source, Target: target})
}

// sortTopological runs Kahn's algorithm. Leftover nodes form one
// CircularRef entry and stay out of ExecutionOrder.
func (g *Graph) sortTopological() {
	indegree := make(map[string]int, len(g.nodes))
	var queue []string
	for addr, n := range g.nodes {
		indegree[addr] = n.InDegree
		if g.selfRef[addr] {
			// The implicit self-edge never resolves, so the cell and
			// everything downstream of it land in CircularRefs.
			indegree[addr]++
		}
		if indegree[addr] == 0 {
			queue = append(queue, addr)
		}
	}
	sort.Strings(queue)

	ordered := make(map[string]bool, len(g.nodes))
	for len(queue) > 0 {
		addr := queue[0]
		queue = queue[1:]
		g.ExecutionOrder = append(g.ExecutionOrder, addr)
		ordered[addr] = true
		for _, child := range g.children[addr] {
			indegree[child]--
			if indegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(g.ExecutionOrder) == len(g.nodes) {
		return
	}
	var stuck []string
	for addr := range g.nodes {
		if !ordered[addr] {
			stuck = append(stuck, addr)
		}
	}
	sort.Strings(stuck)
	g.CircularRefs = append(g.CircularRefs, stuck)
}

// computeDepths assigns depth = 1 + max(parent depths) in execution
// order, so parent depths are final when a node is visited.
func (g *Graph) computeDepths() {
	for _, addr := range g.ExecutionOrder {
		depth := 0
		for _, parent := range g.parents[addr] {
			if pd := g.nodes[parent].Depth; pd >= 0 && pd+1 > depth {
				depth = pd + 1
			}
		}
		g.nodes[addr].Depth = depth
	}
}

// clusterComponents finds weakly-connected components and partitions
// each by role. Cluster ids follow the order of each component's
// smallest member address.
func (g *Graph) clusterComponents() {
	addrs := make([]string, 0, len(g.nodes))
	for addr := range g.nodes {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	visited := make(map[string]bool, len(g.nodes))
	for _, start := range addrs {
		if visited[start] {
			continue
		}
		var members []string
		stack := []string{start}
		visited[start] = true
		for len(stack) > 0 {
			addr := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			members = append(members, addr)
			for _, next := range append(append([]string{}, g.children[addr]...), g.parents[addr]...) {
				if !visited[next] {
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		sort.Strings(members)

		cl := Cluster{ID: len(g.Clusters), Members: members}
		var formulas []string
		for _, addr := range members {
			n := g.nodes[addr]
			n.Cluster = cl.ID
			switch n.Role {
			case classifier.RoleInput:
				cl.Inputs = append(cl.Inputs, addr)
			case classifier.RoleOutput:
				cl.Outputs = append(cl.Outputs, addr)
			case classifier.RoleIntermediate:
				cl.Intermediates = append(cl.Intermediates, addr)
			}
			if n.Formula != "" {
				formulas = append(formulas, n.Formula)
			}
		}
		cl.SemanticPurpose = scorePurpose(formulas)
		g.Clusters = append(g.Clusters, cl)
	}
}
