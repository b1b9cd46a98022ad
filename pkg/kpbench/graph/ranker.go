package graph

import (
	"context"
	"strings"

	"github.com/cognicore/kpbench/pkg/kpbench/cluster"
	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/rank"
)

// UnitScorer is implemented by strategies whose nodes are not words and that
// turn node scores into candidate scores themselves.
type UnitScorer interface {
	ScoreUnits(groups []*cluster.TopicGroup, scores map[string]float64) []rank.Scored
}

// Ranker scores candidates by PageRank over the graph of a strategy. For
// word graphs a candidate scores the sum of its word scores.
//
// Strategies hold per-document state, so the ranker builds a fresh one for
// every document and is safe for concurrent use.
type Ranker struct {
	NewStrategy func() Strategy
	Config      PageRankConfig
}

// NewRanker creates a ranker with the default PageRank configuration.
func NewRanker(newStrategy func() Strategy) *Ranker {
	return &Ranker{NewStrategy: newStrategy, Config: DefaultPageRankConfig()}
}

// Build resets a new strategy on doc and returns its graph. An edge is added
// for every pair of nodes with a positive recommendation.
func (r *Ranker) Build(doc *document.Document, groups []*cluster.TopicGroup) (*Graph, Strategy) {
	s := r.NewStrategy()
	s.Reset(groups, doc.FullTextSentences())
	nodes := s.Nodes()
	g := New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			if w := s.Recommendation(nodes[i], nodes[j]); w > 0 {
				g.AddEdge(nodes[i], nodes[j], w)
			}
		}
	}
	return g, s
}

// Rank implements rank.Ranker.
func (r *Ranker) Rank(ctx context.Context, doc *document.Document, groups []*cluster.TopicGroup) ([]rank.Scored, error) {
	g, s := r.Build(doc, groups)
	res, err := PageRank(ctx, g, r.Config, s.RandomWalk)
	if err != nil {
		return nil, err
	}
	if us, ok := s.(UnitScorer); ok {
		return us.ScoreUnits(groups, res.Scores), nil
	}

	units := cluster.Units(groups)
	scored := make([]rank.Scored, 0, len(units))
	for _, u := range units {
		score := 0.0
		for _, tok := range u.Tokens {
			score += res.Scores[strings.ToLower(tok)]
		}
		scored = append(scored, rank.Scored{Unit: u, Score: score})
	}
	rank.Sort(scored)
	return scored, nil
}

// TextRank returns a ranker over the boolean co-occurrence graph.
func TextRank(window int) *Ranker {
	return NewRanker(func() Strategy { return NewTextRank(window) })
}

// SingleRank returns a ranker over the weighted co-occurrence graph.
func SingleRank(window int) *Ranker {
	return NewRanker(func() Strategy { return NewSingleRank(window) })
}

// CompleteRank returns a ranker over the distance weighted complete graph.
func CompleteRank() *Ranker {
	return NewRanker(func() Strategy { return NewComplete() })
}

// TopicRanker returns a ranker over the topic graph.
func TopicRanker(mode Mode, window int, order string) *Ranker {
	return NewRanker(func() Strategy { return NewTopicRank(mode, window, order) })
}
