package candidate

import (
	"context"
	"unicode/utf8"

	"github.com/cognicore/kpbench/pkg/kpbench/document"
)

// Default noun-phrase patterns per language.
const (
	EnglishNounPhrase = `(ADJ)*(NOUN)+`
	FrenchNounPhrase  = `(NOUN)+(ADJ)*`
)

// NounPhrasePattern returns the default noun-phrase pattern for language.
func NounPhrasePattern(language string) string {
	if len(language) >= 2 && language[:2] == "fr" {
		return FrenchNounPhrase
	}
	return EnglishNounPhrase
}

// PatternExtractor proposes the maximal tag-pattern matches of each
// sentence, typically noun phrases.
type PatternExtractor struct {
	Pattern *TagPattern

	// MinWordLength rejects a match containing a word with fewer runes.
	// Zero disables the check.
	MinWordLength int

	Annotator Annotator
}

// NewPatternExtractor compiles expr into a pattern extractor.
func NewPatternExtractor(expr string, minWordLength int, annotator Annotator) (*PatternExtractor, error) {
	p, err := CompileTagPattern(expr)
	if err != nil {
		return nil, err
	}
	return &PatternExtractor{Pattern: p, MinWordLength: minWordLength, Annotator: annotator}, nil
}

// Extract implements Extractor.
func (e *PatternExtractor) Extract(ctx context.Context, doc *document.Document) ([]*TextualUnit, error) {
	set := e.Annotator.NewSet()
	err := e.each(ctx, doc, func(words, tags []string, sentence, position int) error {
		return set.add("", words, tags, sentence, position)
	})
	if err != nil {
		return nil, err
	}
	return set.Units(), nil
}

// each calls fn for every accepted match of the document.
func (e *PatternExtractor) each(ctx context.Context, doc *document.Document, fn func(words, tags []string, sentence, position int) error) error {
	for si, s := range doc.FullTextSentences() {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, span := range e.Pattern.FindAll(s.Tags) {
			words, tags := s.Words[span.Start:span.End], s.Tags[span.Start:span.End]
			if e.tooShort(words) {
				continue
			}
			if err := fn(words, tags, si, span.Start); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *PatternExtractor) tooShort(words []string) bool {
	if e.MinWordLength <= 0 {
		return false
	}
	for _, w := range words {
		if utf8.RuneCountInString(w) < e.MinWordLength {
			return true
		}
	}
	return false
}
