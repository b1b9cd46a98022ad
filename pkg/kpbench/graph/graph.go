package graph

import (
	"context"
	"math"
	"slices"
)

// PageRank defaults.
const (
	DefaultDamping  = 0.85
	DefaultEpsilon  = 1e-4
	DefaultMaxIters = 1_000_000
)

// edge is a neighbour index + weight pair used for deterministic iteration.
type edge struct {
	to     int
	weight float64
}

// Graph is an undirected weighted graph over string nodes.
type Graph struct {
	nodes []string
	index map[string]int
	edges []map[int]float64
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddNode adds a node if absent and returns its index.
func (g *Graph) AddNode(name string) int {
	if i, ok := g.index[name]; ok {
		return i
	}
	i := len(g.nodes)
	g.index[name] = i
	g.nodes = append(g.nodes, name)
	g.edges = append(g.edges, make(map[int]float64))
	return i
}

// AddEdge adds w to the weight of the undirected edge u-v. Self loops are
// ignored.
func (g *Graph) AddEdge(u, v string, w float64) {
	if u == v {
		return
	}
	i, j := g.AddNode(u), g.AddNode(v)
	g.edges[i][j] += w
	g.edges[j][i] += w
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []string {
	return g.nodes
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, m := range g.edges {
		n += len(m)
	}
	return n / 2
}

// Weight returns the weight of the edge u-v, 0 when absent.
func (g *Graph) Weight(u, v string) float64 {
	i, ok := g.index[u]
	if !ok {
		return 0
	}
	j, ok := g.index[v]
	if !ok {
		return 0
	}
	return g.edges[i][j]
}

// sorted converts the adjacency maps into slices ordered by neighbour index.
func (g *Graph) sorted() [][]edge {
	out := make([][]edge, len(g.nodes))
	for i, m := range g.edges {
		out[i] = make([]edge, 0, len(m))
		for to, w := range m {
			out[i] = append(out[i], edge{to: to, weight: w})
		}
		slices.SortFunc(out[i], func(a, b edge) int {
			return a.to - b.to
		})
	}
	return out
}

// PageRankConfig tunes the iteration.
type PageRankConfig struct {
	Damping  float64 `yaml:"damping"`
	Epsilon  float64 `yaml:"epsilon"`
	MaxIters int     `yaml:"max_iterations"`
}

// DefaultPageRankConfig returns d=0.85, epsilon=1e-4 and a 1e6 iteration cap.
func DefaultPageRankConfig() PageRankConfig {
	return PageRankConfig{Damping: DefaultDamping, Epsilon: DefaultEpsilon, MaxIters: DefaultMaxIters}
}

// Result holds the scores of a PageRank run.
type Result struct {
	Scores     map[string]float64
	Iterations int
	Converged  bool
}

// PageRank iterates
//
//	s(v) = (1-d)·r(v) + d·Σ w(u,v)·s(u)/out(u)
//
// from s = 1 until the largest change is at most Epsilon. walk supplies r(v);
// nil means 1 for every node.
func PageRank(ctx context.Context, g *Graph, cfg PageRankConfig, walk func(string) float64) (Result, error) {
	if cfg.Damping <= 0 {
		cfg.Damping = DefaultDamping
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	if cfg.MaxIters <= 0 {
		cfg.MaxIters = DefaultMaxIters
	}

	n := g.Len()
	res := Result{Scores: make(map[string]float64, n)}
	if n == 0 {
		res.Converged = true
		return res, nil
	}

	edges := g.sorted()
	outWeight := make([]float64, n)
	for i, neighbours := range edges {
		for _, e := range neighbours {
			outWeight[i] += e.weight
		}
	}
	random := make([]float64, n)
	for i, name := range g.nodes {
		random[i] = 1.0
		if walk != nil {
			random[i] = walk(name)
		}
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1.0
	}
	next := make([]float64, n)

	for res.Iterations < cfg.MaxIters {
		if res.Iterations%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		res.Iterations++

		maxDelta := 0.0
		for i := range n {
			sum := 0.0
			for _, e := range edges[i] {
				if outWeight[e.to] > 0 {
					sum += e.weight * scores[e.to] / outWeight[e.to]
				}
			}
			next[i] = (1-cfg.Damping)*random[i] + cfg.Damping*sum
			maxDelta = math.Max(maxDelta, math.Abs(next[i]-scores[i]))
		}
		scores, next = next, scores

		if maxDelta <= cfg.Epsilon {
			res.Converged = true
			break
		}
	}

	for i, name := range g.nodes {
		res.Scores[name] = scores[i]
	}
	return res, nil
}
