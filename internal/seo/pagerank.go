package seo

// LinkGraph is a directed graph of postId -> set of postIds it links to,
// the same adjacency-map shape the teacher's link-prediction topology
// package builds over node ids.
type LinkGraph map[int64]map[int64]bool

// NewLinkGraph returns an empty graph.
func NewLinkGraph() LinkGraph {
	return make(LinkGraph)
}

// AddEdge records that from links to to.
func (g LinkGraph) AddEdge(from, to int64) {
	if g[from] == nil {
		g[from] = make(map[int64]bool)
	}
	g[from][to] = true
}

// OutDegree returns how many distinct targets node links to.
func (g LinkGraph) OutDegree(node int64) int {
	return len(g[node])
}

// Incoming returns every node that links to target.
func (g LinkGraph) Incoming(target int64) []int64 {
	var sources []int64
	for from, tos := range g {
		if tos[target] {
			sources = append(sources, from)
		}
	}
	return sources
}

// Reciprocal reports whether a and b link to each other.
func (g LinkGraph) Reciprocal(a, b int64) bool {
	return g[a][b] && g[b][a]
}

// ReciprocalPairs returns every unordered pair of nodes that link to each
// other, computed by symmetric containment per spec §4.E step 4.
func (g LinkGraph) ReciprocalPairs() map[[2]int64]bool {
	pairs := make(map[[2]int64]bool)
	for from, tos := range g {
		for to := range tos {
			if from >= to {
				continue
			}
			if g[to][from] {
				pairs[[2]int64{from, to}] = true
			}
		}
	}
	return pairs
}

const (
	pageRankDamping      = 0.85
	pageRankMaxIters     = 50
	pageRankConvergence  = 1e-4
	pageRankPillarBoost  = 1.2
	topicPageRankIters   = 10
)

// PageRank computes global PageRank over every node listed in nodes (a
// postId membership set; pillar status comes from isPillar), using graph for
// the link structure. It iterates to
// convergence (max per-node delta below pageRankConvergence) or
// pageRankMaxIters rounds, applying a pillar boost to a target's
// contribution each round, then normalizes results to 0-100 by dividing by
// the maximum rank — matching apoc/algo.PageRank's map[int64]float64 score
// shape, generalized with the boost and fixed normalization spec §4.E
// calls for.
func PageRank(nodes map[int64]bool, graph LinkGraph, isPillar map[int64]bool) map[int64]float64 {
	return pageRank(nodes, graph, isPillar, pageRankMaxIters, true)
}

// TopicPageRank computes PageRank restricted to the induced subgraph of a
// single topic cluster's nodes, with the fixed 10-iteration budget spec
// §4.E calls for (no early-exit convergence check — the node set is small).
func TopicPageRank(clusterNodes map[int64]bool, graph LinkGraph, isPillar map[int64]bool) map[int64]float64 {
	induced := NewLinkGraph()
	for from, tos := range graph {
		if !clusterNodes[from] {
			continue
		}
		for to := range tos {
			if clusterNodes[to] {
				induced.AddEdge(from, to)
			}
		}
	}
	return pageRank(clusterNodes, induced, isPillar, topicPageRankIters, false)
}

func pageRank(nodes map[int64]bool, graph LinkGraph, isPillar map[int64]bool, iterations int, earlyExit bool) map[int64]float64 {
	n := len(nodes)
	if n == 0 {
		return map[int64]float64{}
	}

	scores := make(map[int64]float64, n)
	for node := range nodes {
		scores[node] = 1.0 / float64(n)
	}

	for iter := 0; iter < iterations; iter++ {
		next := make(map[int64]float64, n)
		maxDelta := 0.0

		for node := range nodes {
			sum := 0.0
			for _, source := range graph.Incoming(node) {
				outDeg := graph.OutDegree(source)
				if outDeg > 0 {
					sum += scores[source] / float64(outDeg)
				}
			}
			rank := (1-pageRankDamping)/float64(n) + pageRankDamping*sum
			if isPillar[node] {
				rank *= pageRankPillarBoost
			}
			next[node] = rank
			if delta := rank - scores[node]; delta > maxDelta || -delta > maxDelta {
				maxDelta = abs(delta)
			}
		}

		scores = next
		if earlyExit && maxDelta < pageRankConvergence {
			break
		}
	}

	return normalizeTo100(scores)
}

func normalizeTo100(scores map[int64]float64) map[int64]float64 {
	max := 0.0
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	if max == 0 {
		return scores
	}
	out := make(map[int64]float64, len(scores))
	for node, s := range scores {
		out[node] = (s / max) * 100
	}
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
