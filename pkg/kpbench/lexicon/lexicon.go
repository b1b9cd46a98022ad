package lexicon

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon maps inflected word forms to their lemma:
// - Inflections: networks → network, studies → study
// - Irregular forms: mice → mouse, went → go
//
// It serves as the lemmatizer capability of the pre-processing stage.
// Words missing from the lexicon lemmatize to themselves.
type Lexicon struct {
	// lemma -> all forms (including the lemma itself)
	// Example: "network" -> ["network", "networks"]
	forms map[string][]string

	// form -> lemma
	// Example: "networks" -> "network"
	reverseIndex map[string]string
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		forms:        make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// LoadFromYAML loads lemma mappings from a YAML file.
//
// Expected format:
//
//	lemmas:
//	  - lemma: network
//	    forms: [networks]
//	  - lemma: mouse
//	    forms: [mice]
//
// All entries are lowercased.
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config struct {
		Lemmas []struct {
			Lemma string   `yaml:"lemma"`
			Forms []string `yaml:"forms"`
		} `yaml:"lemmas"`
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	lex := New()
	for _, entry := range config.Lemmas {
		lex.AddLemma(entry.Lemma, entry.Forms)
	}
	return lex, nil
}

// AddLemma registers forms for a lemma. The lemma is always the first entry
// of its form list. Re-adding a lemma replaces its previous forms.
func (l *Lexicon) AddLemma(lemma string, forms []string) {
	lemma = strings.ToLower(strings.TrimSpace(lemma))
	if lemma == "" {
		return
	}

	if old, exists := l.forms[lemma]; exists {
		for _, f := range old {
			delete(l.reverseIndex, f)
		}
	}

	normalized := make([]string, 0, len(forms)+1)
	seen := map[string]bool{lemma: true}
	normalized = append(normalized, lemma)
	for _, f := range forms {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		normalized = append(normalized, f)
		seen[f] = true
	}

	l.forms[lemma] = normalized
	for _, f := range normalized {
		l.reverseIndex[f] = lemma
	}
}

// Lemmatize returns the lemma of a word form, or the lowercased word when
// the form is unknown.
func (l *Lexicon) Lemmatize(word string) string {
	word = strings.ToLower(word)
	if l == nil {
		return word
	}
	if lemma, ok := l.reverseIndex[word]; ok {
		return lemma
	}
	return word
}

// Forms returns all known forms of the lemma of word.
func (l *Lexicon) Forms(word string) []string {
	lemma := l.Lemmatize(word)
	if forms, ok := l.forms[lemma]; ok {
		return forms
	}
	return []string{lemma}
}

// Lemmas returns the sorted list of lemmas.
func (l *Lexicon) Lemmas() []string {
	out := make([]string, 0, len(l.forms))
	for k := range l.forms {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() Stats {
	total := 0
	for _, forms := range l.forms {
		total += len(forms)
	}
	return Stats{Lemmas: len(l.forms), Forms: total}
}

// Stats holds statistics about lexicon contents.
type Stats struct {
	Lemmas int // number of lemmas
	Forms  int // total forms across lemmas, lemmas included
}
