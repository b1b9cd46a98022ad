package rank

import (
	"context"
	"sort"

	"github.com/cognicore/kpbench/pkg/kpbench/candidate"
	"github.com/cognicore/kpbench/pkg/kpbench/cluster"
	"github.com/cognicore/kpbench/pkg/kpbench/document"
)

// Scored is a ranked keyphrase candidate.
type Scored struct {
	Unit  *candidate.TextualUnit `json:"unit"`
	Score float64                `json:"score"`
}

// Ranker scores the candidates of a document, grouped into topics, and
// returns them in rank order.
type Ranker interface {
	Rank(ctx context.Context, doc *document.Document, groups []*cluster.TopicGroup) ([]Scored, error)
}

// CorpusAware rankers learn from the training side of a corpus before any
// test document is ranked.
type CorpusAware interface {
	Prepare(ctx context.Context, corpus *document.Corpus, train []*document.Document) error
}

// Sort orders by descending score, then by candidate key.
func Sort(scored []Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Unit.Key() < scored[j].Unit.Key()
	})
}

// Forms returns the candidate forms in order.
func Forms(scored []Scored) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Unit.Form
	}
	return out
}

// Texts returns the plain texts of scored units, in order.
func Texts(scored []Scored) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.Unit.Text()
	}
	return out
}
