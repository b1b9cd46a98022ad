package ingest

import (
	"fmt"
	"strings"

	"github.com/kljensen/snowball"

	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

// Stemmer reduces a word to its stem.
type Stemmer interface {
	Stem(word string) string
}

// snowballLanguages maps language tags to snowball algorithm names.
var snowballLanguages = map[string]string{
	"en": "english",
	"fr": "french",
	"es": "spanish",
	"ru": "russian",
	"sv": "swedish",
	"no": "norwegian",
	"nb": "norwegian",
	"hu": "hungarian",
}

// SnowballStemmer stems with the snowball algorithm of one language.
type SnowballStemmer struct {
	algorithm string
}

// NewSnowballStemmer returns a stemmer for the language tag (e.g. "en", "fr-FR").
func NewSnowballStemmer(language string) (*SnowballStemmer, error) {
	algorithm, ok := snowballLanguages[baseLanguage(language)]
	if !ok {
		return nil, fmt.Errorf("no snowball stemmer for language %q: %w", language, internalerr.ErrInvalidInput)
	}
	return &SnowballStemmer{algorithm: algorithm}, nil
}

// Stem lowercases and stems word. Stop words are stemmed too so that stem
// tuples stay comparable between references and candidates.
func (s *SnowballStemmer) Stem(word string) string {
	word = strings.ToLower(word)
	stemmed, err := snowball.Stem(word, s.algorithm, true)
	if err != nil || stemmed == "" {
		return word
	}
	return stemmed
}

// NoStemmer lowercases words and otherwise leaves them untouched.
type NoStemmer struct{}

// Stem returns the lowercased word.
func (NoStemmer) Stem(word string) string {
	return strings.ToLower(word)
}

// StemAll applies s to every word.
func StemAll(s Stemmer, words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = s.Stem(w)
	}
	return out
}

// baseLanguage strips region subtags ("en-US" -> "en").
func baseLanguage(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(language, "-_"); i > 0 {
		language = language[:i]
	}
	return language
}
