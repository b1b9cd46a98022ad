package graph

import (
	"sort"
	"strconv"

	"github.com/cognicore/kpbench/pkg/kpbench/candidate"
	"github.com/cognicore/kpbench/pkg/kpbench/cluster"
	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/rank"
)

// TagTopic marks the synthetic tokens standing for a topic.
const TagTopic = "TOPIC"

// Orderings choosing the member that represents a topic.
const (
	OrderPosition  = "POSITION"
	OrderFrequency = "FREQUENCY"
	OrderCentroid  = "CENTROID"
)

// TopicRank decorates a strategy so that graph nodes are topics. Every
// candidate occurrence is rewritten into a synthetic token naming its topic
// before the sentences reach Inner.
type TopicRank struct {
	Inner Strategy
	Order string

	groups []*cluster.TopicGroup
	topics []string
}

// NewTopicRank creates the decorator around a word strategy that only
// accepts topic tokens. The default mode links topics by the number of
// sentences holding both.
func NewTopicRank(mode Mode, window int, order string) *TopicRank {
	if order == "" {
		order = OrderPosition
	}
	return &TopicRank{Inner: NewWordStrategy(mode, window, TagTopic), Order: order}
}

// TopicID names the node of the i-th topic.
func TopicID(i int) string {
	return "topic#" + strconv.Itoa(i)
}

type span struct {
	topic    int
	sentence int
	start    int
	length   int
}

// Reset implements Strategy.
func (t *TopicRank) Reset(groups []*cluster.TopicGroup, sentences []document.Sentence) {
	t.groups = groups
	t.topics = make([]string, len(groups))
	for i := range groups {
		t.topics[i] = TopicID(i)
	}
	t.Inner.Reset(nil, rewrite(groups, sentences))
}

// rewrite replaces each candidate occurrence by its topic token. Longer
// occurrences are placed first and overlapping ones are skipped. The other
// tokens of a replaced span keep their place with an empty tag.
func rewrite(groups []*cluster.TopicGroup, sentences []document.Sentence) []document.Sentence {
	var spans []span
	for i, g := range groups {
		for _, m := range g.Members {
			for _, occ := range m.Occurrences() {
				spans = append(spans, span{topic: i, sentence: occ.Sentence, start: occ.Position, length: m.Len()})
			}
		}
	}
	sort.SliceStable(spans, func(a, b int) bool {
		if spans[a].length != spans[b].length {
			return spans[a].length > spans[b].length
		}
		if spans[a].sentence != spans[b].sentence {
			return spans[a].sentence < spans[b].sentence
		}
		return spans[a].start < spans[b].start
	})

	out := make([]document.Sentence, len(sentences))
	covered := make([][]bool, len(sentences))
	for i, s := range sentences {
		out[i] = document.Sentence{
			Words: append([]string(nil), s.Words...),
			Tags:  append([]string(nil), s.Tags...),
		}
		covered[i] = make([]bool, len(s.Words))
	}

	for _, sp := range spans {
		if sp.sentence < 0 || sp.sentence >= len(out) || sp.length == 0 {
			continue
		}
		end := sp.start + sp.length
		if sp.start < 0 || end > len(covered[sp.sentence]) {
			continue
		}
		free := true
		for k := sp.start; k < end; k++ {
			if covered[sp.sentence][k] {
				free = false
				break
			}
		}
		if !free {
			continue
		}
		s := out[sp.sentence]
		for k := sp.start; k < end; k++ {
			covered[sp.sentence][k] = true
			s.Words[k], s.Tags[k] = "", ""
		}
		s.Words[sp.start], s.Tags[sp.start] = TopicID(sp.topic), TagTopic
	}
	return out
}

// Nodes implements Strategy. Every topic is a node, linked or not.
func (t *TopicRank) Nodes() []string {
	return t.topics
}

// Recommendation implements Strategy.
func (t *TopicRank) Recommendation(u, v string) float64 {
	return t.Inner.Recommendation(u, v)
}

// RandomWalk implements Strategy.
func (t *TopicRank) RandomWalk(v string) float64 {
	return t.Inner.RandomWalk(v)
}

// ScoreUnits emits one representative per topic, ordered by score, then by
// first position of the topic.
func (t *TopicRank) ScoreUnits(groups []*cluster.TopicGroup, scores map[string]float64) []rank.Scored {
	type topic struct {
		scored rank.Scored
		first  candidate.Occurrence
	}
	topics := make([]topic, 0, len(groups))
	for i, g := range groups {
		u := t.representative(g)
		if u == nil {
			continue
		}
		first, _ := g.First().First()
		topics = append(topics, topic{scored: rank.Scored{Unit: u, Score: scores[TopicID(i)]}, first: first})
	}
	sort.SliceStable(topics, func(a, b int) bool {
		if topics[a].scored.Score != topics[b].scored.Score {
			return topics[a].scored.Score > topics[b].scored.Score
		}
		return candidate.Before(topics[a].first, topics[b].first)
	})
	out := make([]rank.Scored, len(topics))
	for i, tp := range topics {
		out[i] = tp.scored
	}
	return out
}

func (t *TopicRank) representative(g *cluster.TopicGroup) *candidate.TextualUnit {
	switch t.Order {
	case OrderCentroid:
		if c := g.CentroidUnit(); c != nil {
			return c
		}
	case OrderFrequency:
		var best *candidate.TextualUnit
		for _, m := range g.Members {
			if best == nil || m.Frequency() > best.Frequency() ||
				(m.Frequency() == best.Frequency() && earlier(m, best)) {
				best = m
			}
		}
		if best != nil {
			return best
		}
	}
	return g.First()
}

func earlier(a, b *candidate.TextualUnit) bool {
	fa, okA := a.First()
	fb, okB := b.First()
	if !okA || !okB {
		return okA
	}
	return candidate.Before(fa, fb)
}
