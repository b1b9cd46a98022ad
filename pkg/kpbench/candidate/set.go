package candidate

import (
	"context"
	"errors"
	"strings"

	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/ingest"
	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

// Extractor proposes keyphrase candidates for a document.
type Extractor interface {
	Extract(ctx context.Context, doc *document.Document) ([]*TextualUnit, error)
}

// CorpusAware extractors learn from the training documents of a corpus
// before any test document is extracted.
type CorpusAware interface {
	Prepare(ctx context.Context, train []*document.Document) error
}

// Lemmatizer maps a word to its lemma.
type Lemmatizer interface {
	Lemmatize(word string) string
}

// Annotator fills the linguistic annotations of new units. A nil Stemmer
// leaves stems equal to the tokens; a nil Lemmatizer does the same for
// lemmas.
type Annotator struct {
	Stemmer    ingest.Stemmer
	Lemmatizer Lemmatizer
}

func (a Annotator) stems(words []string) []string {
	if a.Stemmer == nil {
		return append(make([]string, 0, len(words)), words...)
	}
	return ingest.StemAll(a.Stemmer, words)
}

func (a Annotator) lemmas(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		if a.Lemmatizer == nil {
			out[i] = w
		} else {
			out[i] = a.Lemmatizer.Lemmatize(w)
		}
	}
	return out
}

// Set collects units by identity, in order of first insertion.
type Set struct {
	annotator Annotator
	byKey     map[string]*TextualUnit
	order     []*TextualUnit
}

// NewSet creates an empty set annotating new units with a.
func (a Annotator) NewSet() *Set {
	return &Set{annotator: a, byKey: make(map[string]*TextualUnit)}
}

// Add records an occurrence of words at (sentence, position) under form. An
// empty form defaults to the words joined by spaces.
func (s *Set) Add(form string, words, tags []string, sentence, position int) error {
	seen := strings.Join(words, " ")
	if form == "" {
		form = seen
	}
	key := UnitKey(form, tags)
	u, ok := s.byKey[key]
	if !ok {
		u = &TextualUnit{
			Form:   form,
			Tokens: append(make([]string, 0, len(words)), words...),
			Lemmas: s.annotator.lemmas(words),
			Stems:  s.annotator.stems(words),
			Tags:   append(make([]string, 0, len(tags)), tags...),
			Seen:   make(map[string][]Occurrence),
		}
		s.byKey[key] = u
		s.order = append(s.order, u)
	}
	return u.AddOccurrence(seen, sentence, position)
}

// add is Add for extractors: a duplicate offset only drops that occurrence.
func (s *Set) add(form string, words, tags []string, sentence, position int) error {
	err := s.Add(form, words, tags, sentence, position)
	var offsetErr *internalerr.OffsetError
	if errors.As(err, &offsetErr) {
		return nil
	}
	return err
}

// Units returns the collected units.
func (s *Set) Units() []*TextualUnit {
	return s.order
}

// Len returns the number of distinct units.
func (s *Set) Len() int { return len(s.order) }
