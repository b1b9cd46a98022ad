package document

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Sentence is a tokenized, POS-tagged sentence. Words and Tags are parallel.
type Sentence struct {
	Words []string `json:"words"`
	Tags  []string `json:"tags"`
}

// Len returns the number of tokens in the sentence.
func (s Sentence) Len() int { return len(s.Words) }

// Validate checks that words and tags are parallel.
func (s Sentence) Validate() error {
	if len(s.Words) != len(s.Tags) {
		return fmt.Errorf("sentence has %d words but %d tags", len(s.Words), len(s.Tags))
	}
	return nil
}

// String renders the sentence as space separated words.
func (s Sentence) String() string {
	return strings.Join(s.Words, " ")
}

// Document represents a pre-processed corpus document
type Document struct {
	Corpus   string `json:"corpus"`
	Name     string `json:"name"`
	ID       string `json:"id"`
	Language string `json:"language"`
	Encoding string `json:"encoding"`

	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Content  string `json:"content"`

	TitleSentences    []Sentence `json:"title_sentences"`
	AbstractSentences []Sentence `json:"abstract_sentences"`
	ContentSentences  []Sentence `json:"content_sentences"`
}

// New creates a document with its identifier derived from corpus and name.
func New(corpus, name, language, encoding string) *Document {
	return &Document{
		Corpus:   corpus,
		Name:     name,
		ID:       ID(corpus, name),
		Language: language,
		Encoding: encoding,
	}
}

// Validate checks the parallel word/tag invariant of every section.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return errors.New("document ID is required")
	}
	for i, s := range d.FullTextSentences() {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("document %s sentence %d: %w", d.ID, i, err)
		}
	}
	return nil
}

// FullText concatenates title, abstract and content in that order.
func (d *Document) FullText() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{d.Title, d.Abstract, d.Content} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

// FullTextSentences returns title, abstract and content sentences in that
// order. Sentence offsets used by candidates index into this slice.
func (d *Document) FullTextSentences() []Sentence {
	out := make([]Sentence, 0, len(d.TitleSentences)+len(d.AbstractSentences)+len(d.ContentSentences))
	out = append(out, d.TitleSentences...)
	out = append(out, d.AbstractSentences...)
	out = append(out, d.ContentSentences...)
	return out
}

// TokenCount returns the number of tokens in the full text.
func (d *Document) TokenCount() int {
	n := 0
	for _, s := range d.FullTextSentences() {
		n += s.Len()
	}
	return n
}

// ID derives a document identifier as <corpus>_<name> with every
// non-alphanumeric rune replaced by '_'.
func ID(corpus, name string) string {
	raw := corpus + "_" + name
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
