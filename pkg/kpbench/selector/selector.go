package selector

import (
	"sort"
	"strings"

	"github.com/cognicore/kpbench/pkg/kpbench/candidate"
	"github.com/cognicore/kpbench/pkg/kpbench/rank"
)

// Selector chooses the final keyphrases from ranked candidates. candidates
// is the extractor output of the document.
type Selector interface {
	Select(ranked []rank.Scored, candidates []*candidate.TextualUnit) []rank.Scored
}

// Whole emits every candidate in rank order.
type Whole struct{}

// Select implements Selector.
func (Whole) Select(ranked []rank.Scored, _ []*candidate.TextualUnit) []rank.Scored {
	return append([]rank.Scored(nil), ranked...)
}

// TopK emits the first K candidates.
type TopK struct {
	K int
}

// Select implements Selector.
func (s TopK) Select(ranked []rank.Scored, _ []*candidate.TextualUnit) []rank.Scored {
	k := min(s.K, len(ranked))
	if k < 0 {
		k = 0
	}
	return append([]rank.Scored(nil), ranked[:k]...)
}

// Unredundant keeps, for each stem tuple, only its best ranked candidate.
type Unredundant struct{}

// Select implements Selector.
func (Unredundant) Select(ranked []rank.Scored, _ []*candidate.TextualUnit) []rank.Scored {
	seen := make(map[string]bool, len(ranked))
	out := make([]rank.Scored, 0, len(ranked))
	for _, s := range ranked {
		key := s.Unit.StemKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// UnredundantTopK applies Unredundant, then TopK.
type UnredundantTopK struct {
	K int
}

// Select implements Selector.
func (s UnredundantTopK) Select(ranked []rank.Scored, candidates []*candidate.TextualUnit) []rank.Scored {
	return TopK{K: s.K}.Select(Unredundant{}.Select(ranked, candidates), candidates)
}

// UnredundantTextRank builds keyphrases from the K best single-word keywords:
// every multi-word candidate made only of those keywords is emitted, longest
// first, then the keywords left unused.
type UnredundantTextRank struct {
	K int
}

// Select implements Selector. A keyphrase scores the sum of its keyword
// scores.
func (s UnredundantTextRank) Select(ranked []rank.Scored, candidates []*candidate.TextualUnit) []rank.Scored {
	keywords := make(map[string]float64)
	var order []rank.Scored
	for _, r := range ranked {
		if r.Unit.Len() != 1 {
			continue
		}
		w := strings.ToLower(r.Unit.Tokens[0])
		if _, ok := keywords[w]; ok {
			continue
		}
		if s.K > 0 && len(keywords) == s.K {
			break
		}
		keywords[w] = r.Score
		order = append(order, r)
	}

	var phrases []rank.Scored
	for _, c := range candidates {
		if c.Len() < 2 {
			continue
		}
		score, ok := 0.0, true
		for _, tok := range c.Tokens {
			v, found := keywords[strings.ToLower(tok)]
			if !found {
				ok = false
				break
			}
			score += v
		}
		if ok {
			phrases = append(phrases, rank.Scored{Unit: c, Score: score})
		}
	}
	sort.SliceStable(phrases, func(i, j int) bool {
		if phrases[i].Unit.Len() != phrases[j].Unit.Len() {
			return phrases[i].Unit.Len() > phrases[j].Unit.Len()
		}
		if phrases[i].Score != phrases[j].Score {
			return phrases[i].Score > phrases[j].Score
		}
		return phrases[i].Unit.Key() < phrases[j].Unit.Key()
	})

	used := make(map[string]bool)
	out := make([]rank.Scored, 0, len(phrases)+len(order))
	for _, p := range phrases {
		out = append(out, p)
		for _, tok := range p.Unit.Tokens {
			used[strings.ToLower(tok)] = true
		}
	}
	for _, r := range order {
		if !used[strings.ToLower(r.Unit.Tokens[0])] {
			out = append(out, r)
		}
	}
	return Unredundant{}.Select(out, candidates)
}
