package candidate

import (
	"context"

	"github.com/cognicore/kpbench/pkg/kpbench/document"
)

// NGramExtractor proposes every contiguous word sequence of 1..N tokens
// that passes the filters. Sequences containing punctuation are never
// proposed.
type NGramExtractor struct {
	N         int
	Filters   []Filter
	Annotator Annotator
}

// NewNGramExtractor creates an n-gram extractor.
func NewNGramExtractor(n int, annotator Annotator, filters ...Filter) *NGramExtractor {
	if n < 1 {
		n = 1
	}
	return &NGramExtractor{N: n, Filters: filters, Annotator: annotator}
}

// Extract implements Extractor.
func (e *NGramExtractor) Extract(ctx context.Context, doc *document.Document) ([]*TextualUnit, error) {
	set := e.Annotator.NewSet()
	noPunct := PunctuationFilter()

	for si, s := range doc.FullTextSentences() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range s.Words {
			for n := 1; n <= e.N && i+n <= len(s.Words); n++ {
				words, tags := s.Words[i:i+n], s.Tags[i:i+n]
				if !noPunct(words, tags) {
					break
				}
				if !accept(e.Filters, words, tags) {
					continue
				}
				if err := set.add("", words, tags, si, i); err != nil {
					return nil, err
				}
			}
		}
	}
	return set.Units(), nil
}
