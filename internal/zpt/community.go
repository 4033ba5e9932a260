package zpt

import (
	"sync"

	"github.com/danja/semem/internal/graph"
)

// communityCache holds the last computed label-propagation clustering of
// the concept graph, invalidated when the graph's edge count has drifted
// by more than 10% since the clustering was computed (§4.9).
type communityCache struct {
	mu          sync.Mutex
	labels      map[string]int // concept label -> community id
	atEdgeCount int
	computed    bool
}

func newCommunityCache() *communityCache {
	return &communityCache{}
}

// communityOf returns the community id for label under g, recomputing the
// clustering first if it is stale or has never been computed.
func (c *communityCache) communityOf(g *graph.Graph, label string) (int, bool) {
	c.ensureFresh(g)
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.labels[label]
	return id, ok
}

func (c *communityCache) ensureFresh(g *graph.Graph) {
	current := g.EdgeCount()

	c.mu.Lock()
	stale := !c.computed || staleBeyondThreshold(c.atEdgeCount, current)
	c.mu.Unlock()

	if !stale {
		return
	}

	labels := labelPropagation(g)

	c.mu.Lock()
	c.labels = labels
	c.atEdgeCount = current
	c.computed = true
	c.mu.Unlock()
}

func staleBeyondThreshold(previous, current int) bool {
	if previous == 0 {
		return current != 0
	}
	delta := current - previous
	if delta < 0 {
		delta = -delta
	}
	return float64(delta)/float64(previous) > 0.10
}

// labelPropagation is a small batched Louvain-style pass: every node starts
// in its own community, then repeatedly adopts the majority community
// among its neighbors (weighted by edge weight) until stable or a bounded
// number of rounds elapses. This is a deliberately simple approximation —
// good enough to group tightly co-occurring concepts without requiring a
// graph-algorithms library the retrieved corpus does not provide.
func labelPropagation(g *graph.Graph) map[string]int {
	nodes := g.Nodes()
	labels := make(map[string]int, len(nodes))
	for i, label := range nodes {
		labels[label] = i
	}

	const maxRounds = 10
	for round := 0; round < maxRounds; round++ {
		changed := false
		for _, label := range nodes {
			votes := make(map[int]int)
			for neighbor, weight := range g.NeighborWeights(label) {
				votes[labels[neighbor]] += weight
			}
			best, bestVotes := labels[label], -1
			for community, v := range votes {
				if v > bestVotes || (v == bestVotes && community < best) {
					best, bestVotes = community, v
				}
			}
			if best != labels[label] {
				labels[label] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return labels
}
