package graph

import (
	"strings"

	"github.com/cognicore/kpbench/pkg/kpbench/cluster"
	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/ingest"
	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

// Strategy decides the nodes of a document graph and the weight of the edge
// between two of them.
type Strategy interface {
	// Reset prepares the strategy for one document.
	Reset(groups []*cluster.TopicGroup, sentences []document.Sentence)
	// Nodes returns the graph nodes in a deterministic order.
	Nodes() []string
	// Recommendation returns the weight of the edge u-v, 0 for no edge.
	Recommendation(u, v string) float64
	// RandomWalk returns the teleport weight of v.
	RandomWalk(v string) float64
}

// Mode selects how a WordStrategy weighs co-occurrences.
type Mode int

const (
	// Boolean links two words co-occurring at least once within the window.
	Boolean Mode = iota
	// Count weighs an edge by the number of co-occurrences within the window.
	Count
	// Distance sums 1/|i-j| over every pair of positions in the document.
	Distance
	// SentenceCount weighs an edge by the number of sentences holding both.
	SentenceCount
)

var modeNames = map[string]Mode{
	"boolean":  Boolean,
	"count":    Count,
	"distance": Distance,
	"sentence": SentenceCount,
}

// ParseMode maps a configuration name to a Mode.
func ParseMode(name string) (Mode, error) {
	m, ok := modeNames[strings.ToLower(name)]
	if !ok {
		return 0, internalerr.Configf("ranker", "unknown graph mode %q", name)
	}
	return m, nil
}

func (m Mode) String() string {
	for name, v := range modeNames {
		if v == m {
			return name
		}
	}
	return "unknown"
}

// Default windows.
const (
	TextRankWindow   = 2
	SingleRankWindow = 10
)

// DefaultAcceptedTags are the tags of TextRank graph nodes.
var DefaultAcceptedTags = []string{ingest.TagNoun, ingest.TagAdj}

// WordStrategy builds graphs whose nodes are lowercased words with an
// accepted tag. Positions are the original token positions, so two accepted
// words co-occur when |i-j| < Window even if rejected words lie between them.
type WordStrategy struct {
	Accepted map[string]bool
	Window   int
	Mode     Mode

	nodes   []string
	weights map[[2]string]float64
}

// NewWordStrategy creates a strategy accepting the given tags.
func NewWordStrategy(mode Mode, window int, tags ...string) *WordStrategy {
	accepted := make(map[string]bool, len(tags))
	for _, t := range tags {
		accepted[t] = true
	}
	return &WordStrategy{Accepted: accepted, Window: window, Mode: mode}
}

// NewTextRank creates the boolean co-occurrence strategy.
func NewTextRank(window int) *WordStrategy {
	if window <= 1 {
		window = TextRankWindow
	}
	return NewWordStrategy(Boolean, window, DefaultAcceptedTags...)
}

// NewSingleRank creates the weighted co-occurrence strategy.
func NewSingleRank(window int) *WordStrategy {
	if window <= 1 {
		window = SingleRankWindow
	}
	return NewWordStrategy(Count, window, DefaultAcceptedTags...)
}

// NewComplete creates the distance weighted complete graph strategy.
func NewComplete() *WordStrategy {
	return NewWordStrategy(Distance, 0, DefaultAcceptedTags...)
}

type position struct {
	word string
	at   int
}

// Reset implements Strategy. Groups are not used by word graphs.
func (s *WordStrategy) Reset(_ []*cluster.TopicGroup, sentences []document.Sentence) {
	s.nodes = nil
	s.weights = make(map[[2]string]float64)
	seen := make(map[string]bool)

	var all []position
	offset := 0
	for _, sent := range sentences {
		var kept []position
		for i, w := range sent.Words {
			if i >= len(sent.Tags) || !s.Accepted[sent.Tags[i]] {
				continue
			}
			w = strings.ToLower(w)
			if !seen[w] {
				seen[w] = true
				s.nodes = append(s.nodes, w)
			}
			kept = append(kept, position{word: w, at: i})
		}
		switch s.Mode {
		case Boolean, Count:
			s.window(kept)
		case SentenceCount:
			s.sentence(kept)
		case Distance:
			for _, p := range kept {
				all = append(all, position{word: p.word, at: offset + p.at})
			}
		}
		offset += sent.Len()
	}
	if s.Mode == Distance {
		for i := range all {
			for j := i + 1; j < len(all); j++ {
				if all[i].word != all[j].word {
					s.weights[pairKey(all[i].word, all[j].word)] += 1 / float64(all[j].at-all[i].at)
				}
			}
		}
	}
}

func (s *WordStrategy) window(kept []position) {
	for i := range kept {
		for j := i + 1; j < len(kept) && kept[j].at-kept[i].at < s.Window; j++ {
			if kept[i].word == kept[j].word {
				continue
			}
			k := pairKey(kept[i].word, kept[j].word)
			if s.Mode == Boolean {
				s.weights[k] = 1
			} else {
				s.weights[k]++
			}
		}
	}
}

func (s *WordStrategy) sentence(kept []position) {
	var distinct []string
	in := make(map[string]bool)
	for _, p := range kept {
		if !in[p.word] {
			in[p.word] = true
			distinct = append(distinct, p.word)
		}
	}
	for i := range distinct {
		for j := i + 1; j < len(distinct); j++ {
			s.weights[pairKey(distinct[i], distinct[j])]++
		}
	}
}

// Nodes implements Strategy, in order of first appearance.
func (s *WordStrategy) Nodes() []string {
	return s.nodes
}

// Recommendation implements Strategy.
func (s *WordStrategy) Recommendation(u, v string) float64 {
	return s.weights[pairKey(u, v)]
}

// RandomWalk implements Strategy with a uniform walk.
func (s *WordStrategy) RandomWalk(string) float64 {
	return 1.0
}

func pairKey(u, v string) [2]string {
	if u > v {
		u, v = v, u
	}
	return [2]string{u, v}
}
