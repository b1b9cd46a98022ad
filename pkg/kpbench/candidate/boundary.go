package candidate

import (
	"context"

	"github.com/cognicore/kpbench/pkg/kpbench/document"
)

// BoundaryExtractor splits sentences on boundary tags. A token whose tag is
// a boundary closes the current candidate unless the word is listed as an
// exception for that tag, in which case it joins the buffer. Leading and
// trailing boundary-tagged tokens are trimmed before emission.
type BoundaryExtractor struct {
	// Boundaries maps a tag to the words that do not break on it.
	Boundaries map[string]map[string]bool
	Annotator  Annotator
}

// NewBoundaryExtractor creates an extractor breaking on every tag in
// boundaries.
func NewBoundaryExtractor(boundaries map[string][]string, annotator Annotator) *BoundaryExtractor {
	b := make(map[string]map[string]bool, len(boundaries))
	for tag, exceptions := range boundaries {
		b[tag] = make(map[string]bool, len(exceptions))
		for _, w := range exceptions {
			b[tag][w] = true
		}
	}
	return &BoundaryExtractor{Boundaries: b, Annotator: annotator}
}

// DefaultBoundaries breaks on everything but nouns and adjectives, keeping
// "of" inside phrases ("degree of freedom").
func DefaultBoundaries() map[string][]string {
	return map[string][]string{
		"VERB": nil, "ADV": nil, "DET": nil, "PRON": nil, "CONJ": nil,
		"NUM": nil, "PRT": nil, "PUNCT": nil, "X": nil,
		"ADP": {"of"},
	}
}

// Extract implements Extractor.
func (e *BoundaryExtractor) Extract(ctx context.Context, doc *document.Document) ([]*TextualUnit, error) {
	set := e.Annotator.NewSet()

	for si, s := range doc.FullTextSentences() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := 0
		flush := func(end int) error {
			i, j := start, end
			for i < j && e.isBoundaryTag(s.Tags[i]) {
				i++
			}
			for j > i && e.isBoundaryTag(s.Tags[j-1]) {
				j--
			}
			if i == j {
				return nil
			}
			return set.add("", s.Words[i:j], s.Tags[i:j], si, i)
		}

		for i, tag := range s.Tags {
			exceptions, boundary := e.Boundaries[tag]
			if !boundary || exceptions[s.Words[i]] {
				continue
			}
			if err := flush(i); err != nil {
				return nil, err
			}
			start = i + 1
		}
		if err := flush(len(s.Tags)); err != nil {
			return nil, err
		}
	}
	return set.Units(), nil
}

func (e *BoundaryExtractor) isBoundaryTag(tag string) bool {
	_, ok := e.Boundaries[tag]
	return ok
}
