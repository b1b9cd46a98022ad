package candidate

import (
	"context"
	"sort"

	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/ingest"
)

// CoreWordExtractor grows candidates around the most frequent stems of a
// document. Each occurrence of a top-K stem is expanded up to MaxExpansion
// tokens in both directions while the neighbour is a non-stop word whose
// stem occurs more than once.
type CoreWordExtractor struct {
	K            int
	MaxExpansion int
	Stops        StopWords
	Annotator    Annotator
}

// NewCoreWordExtractor creates an extractor with K=50 and expansion 4.
func NewCoreWordExtractor(stops StopWords, annotator Annotator) *CoreWordExtractor {
	return &CoreWordExtractor{K: 50, MaxExpansion: 4, Stops: stops, Annotator: annotator}
}

type stemIndex struct {
	counts      map[string]int
	occurrences map[string][]Occurrence
	stems       [][]string
}

func (e *CoreWordExtractor) index(sentences []document.Sentence) *stemIndex {
	idx := &stemIndex{
		counts:      make(map[string]int),
		occurrences: make(map[string][]Occurrence),
		stems:       make([][]string, len(sentences)),
	}
	stemmer := e.Annotator.Stemmer
	if stemmer == nil {
		stemmer = ingest.NoStemmer{}
	}
	for si, s := range sentences {
		idx.stems[si] = ingest.StemAll(stemmer, s.Words)
		for i, stem := range idx.stems[si] {
			if !e.usable(s.Words[i], s.Tags[i]) {
				continue
			}
			idx.counts[stem]++
			idx.occurrences[stem] = append(idx.occurrences[stem], Occurrence{Sentence: si, Position: i})
		}
	}
	return idx
}

func (e *CoreWordExtractor) usable(word, tag string) bool {
	if tag == ingest.TagPunct || !ingest.IsWord(word) {
		return false
	}
	return e.Stops == nil || !e.Stops.IsStop(word)
}

// top returns the K most frequent stems, ties broken lexicographically.
func (idx *stemIndex) top(k int) []string {
	stems := make([]string, 0, len(idx.counts))
	for s := range idx.counts {
		stems = append(stems, s)
	}
	sort.Slice(stems, func(i, j int) bool {
		if idx.counts[stems[i]] != idx.counts[stems[j]] {
			return idx.counts[stems[i]] > idx.counts[stems[j]]
		}
		return stems[i] < stems[j]
	})
	if k > 0 && len(stems) > k {
		stems = stems[:k]
	}
	return stems
}

// Extract implements Extractor.
func (e *CoreWordExtractor) Extract(ctx context.Context, doc *document.Document) ([]*TextualUnit, error) {
	sentences := doc.FullTextSentences()
	idx := e.index(sentences)
	set := e.Annotator.NewSet()

	expandable := func(si, i int) bool {
		s := sentences[si]
		return e.usable(s.Words[i], s.Tags[i]) && idx.counts[idx.stems[si][i]] > 1
	}

	for _, stem := range idx.top(e.K) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, occ := range idx.occurrences[stem] {
			s := sentences[occ.Sentence]
			start, end := occ.Position, occ.Position+1
			for n := 0; n < e.MaxExpansion && start > 0 && expandable(occ.Sentence, start-1); n++ {
				start--
			}
			for n := 0; n < e.MaxExpansion && end < len(s.Words) && expandable(occ.Sentence, end); n++ {
				end++
			}
			if err := set.add("", s.Words[start:end], s.Tags[start:end], occ.Sentence, start); err != nil {
				return nil, err
			}
		}
	}
	return set.Units(), nil
}
