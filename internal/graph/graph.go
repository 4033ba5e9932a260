package graph

import (
	"sort"
	"sync"

	"github.com/danja/semem/internal/model"
)

type pairKey struct {
	a, b string
}

// Graph is an undirected weighted graph over concept labels. Edge weights
// are non-negative integers accumulating co-occurrence counts (invariant 4
// of the data model).
type Graph struct {
	mu        sync.RWMutex
	edges     map[pairKey]int
	neighbors map[string]map[string]struct{}
	nodes     map[string]*model.ConceptNode
}

// New constructs an empty Graph.
func New() *Graph {
	return &Graph{
		edges:     make(map[pairKey]int),
		neighbors: make(map[string]map[string]struct{}),
		nodes:     make(map[string]*model.ConceptNode),
	}
}

// AddEdge increments the weight between a and b by delta (default 1: a
// zero delta counts as 1), creating the edge and both endpoint nodes if
// they don't yet exist.
func (g *Graph) AddEdge(a, b string, delta int) {
	if a == "" || b == "" || a == b {
		return
	}
	if delta == 0 {
		delta = 1
	}
	x, y := model.NormalizedPair(a, b)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[pairKey{x, y}] += delta
	g.linkNeighbor(x, y)
	g.linkNeighbor(y, x)
	g.touchNode(a)
	g.touchNode(b)
}

func (g *Graph) linkNeighbor(from, to string) {
	if g.neighbors[from] == nil {
		g.neighbors[from] = make(map[string]struct{})
	}
	g.neighbors[from][to] = struct{}{}
}

func (g *Graph) touchNode(label string) {
	if _, ok := g.nodes[label]; !ok {
		g.nodes[label] = &model.ConceptNode{Label: label}
	}
	g.nodes[label].Occurrences++
}

// EdgeWeight returns the weight between a and b, 0 if no edge exists.
func (g *Graph) EdgeWeight(a, b string) int {
	x, y := model.NormalizedPair(a, b)
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges[pairKey{x, y}]
}

// EdgeCount returns the total number of distinct edges, used by the ZPT
// manager to decide when cached community clusters are stale (>10% change).
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// Nodes returns every concept label currently present in the graph, in no
// particular order.
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.nodes))
	for label := range g.nodes {
		out = append(out, label)
	}
	return out
}

// NeighborWeights returns label's neighbors and the edge weight to each,
// used by community detection's label-propagation pass.
func (g *Graph) NeighborWeights(label string) map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string]int, len(g.neighbors[label]))
	for neighbor := range g.neighbors[label] {
		x, y := model.NormalizedPair(label, neighbor)
		out[neighbor] = g.edges[pairKey{x, y}]
	}
	return out
}

// Activation pairs a concept label with its spreading-activation score.
type Activation struct {
	Label string
	Score float64
}

// SpreadActivation performs a bounded BFS from seeds out to hops levels,
// multiplying the activation by decay at every hop (§4.8).
func (g *Graph) SpreadActivation(seeds []string, hops int, decay float64) []Activation {
	if hops <= 0 {
		hops = 2
	}
	if decay <= 0 {
		decay = 0.5
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	scores := make(map[string]float64, len(seeds))
	frontier := make(map[string]float64, len(seeds))
	for _, s := range seeds {
		frontier[s] = 1.0
		scores[s] = 1.0
	}

	for hop := 0; hop < hops; hop++ {
		next := make(map[string]float64)
		for label, activation := range frontier {
			for neighbor := range g.neighbors[label] {
				weight := float64(g.edges[pairKey{model.NormalizedPair(label, neighbor)}])
				if weight <= 0 {
					continue
				}
				propagated := activation * decay
				if existing, ok := scores[neighbor]; !ok || propagated > existing {
					scores[neighbor] = propagated
				}
				if existing, ok := next[neighbor]; !ok || propagated > existing {
					next[neighbor] = propagated
				}
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	out := make([]Activation, 0, len(scores))
	for label, score := range scores {
		out = append(out, Activation{Label: label, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// DecayAll multiplies every edge weight by factor, pruning edges whose
// weight drops to zero. Factors outside the open interval (0, 1) are
// no-ops.
func (g *Graph) DecayAll(factor float64) {
	if factor <= 0 || factor >= 1 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	for k, w := range g.edges {
		decayed := int(float64(w) * factor)
		if decayed <= 0 {
			delete(g.edges, k)
			g.unlink(k.a, k.b)
			continue
		}
		g.edges[k] = decayed
	}
}

func (g *Graph) unlink(a, b string) {
	if neighbors, ok := g.neighbors[a]; ok {
		delete(neighbors, b)
	}
	if neighbors, ok := g.neighbors[b]; ok {
		delete(neighbors, a)
	}
}
