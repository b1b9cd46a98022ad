package candidate

import (
	"sort"
	"strings"

	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

// Occurrence locates a candidate in a document: the index of the sentence in
// the full text and the index of the first token inside that sentence.
type Occurrence struct {
	Sentence int `json:"s"`
	Position int `json:"p"`
}

// TextualUnit is a keyphrase candidate. Its identity is the normalized form
// together with the POS-tag sequence.
type TextualUnit struct {
	Form   string   `json:"form"`
	Tokens []string `json:"tokens"`
	Lemmas []string `json:"lemmas"`
	Stems  []string `json:"stems"`
	Tags   []string `json:"tags"`

	// Seen maps each surface form to its occurrences.
	Seen map[string][]Occurrence `json:"seen"`
}

// Key returns the identity of the unit.
func (u *TextualUnit) Key() string {
	return UnitKey(u.Form, u.Tags)
}

// UnitKey builds the identity of a unit from its form and tags.
func UnitKey(form string, tags []string) string {
	return form + "\t" + strings.Join(tags, " ")
}

// Text returns the tokens joined by spaces, the form a reference keyphrase
// is written in. Grouped units keep their separators in Form only.
func (u *TextualUnit) Text() string {
	if len(u.Tokens) == 0 {
		return u.Form
	}
	return strings.Join(u.Tokens, " ")
}

// Len returns the number of tokens.
func (u *TextualUnit) Len() int { return len(u.Tokens) }

// StemKey joins the stems; units sharing a StemKey are redundant.
func (u *TextualUnit) StemKey() string {
	return strings.Join(u.Stems, " ")
}

// AddOccurrence records an occurrence under a surface form. Recording an
// offset the unit already holds, under any surface form, is an OffsetError.
func (u *TextualUnit) AddOccurrence(seen string, sentence, position int) error {
	for _, occs := range u.Seen {
		for _, o := range occs {
			if o.Sentence == sentence && o.Position == position {
				return &internalerr.OffsetError{Form: u.Form, Sentence: sentence, Position: position}
			}
		}
	}
	if u.Seen == nil {
		u.Seen = make(map[string][]Occurrence)
	}
	u.Seen[seen] = append(u.Seen[seen], Occurrence{Sentence: sentence, Position: position})
	return nil
}

// Occurrences returns all occurrences ordered by position in the text.
func (u *TextualUnit) Occurrences() []Occurrence {
	var out []Occurrence
	for _, occs := range u.Seen {
		out = append(out, occs...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sentence != out[j].Sentence {
			return out[i].Sentence < out[j].Sentence
		}
		return out[i].Position < out[j].Position
	})
	return out
}

// Frequency returns the number of occurrences.
func (u *TextualUnit) Frequency() int {
	n := 0
	for _, occs := range u.Seen {
		n += len(occs)
	}
	return n
}

// First returns the earliest occurrence. ok is false for a unit with no
// occurrences.
func (u *TextualUnit) First() (first Occurrence, ok bool) {
	occs := u.Occurrences()
	if len(occs) == 0 {
		return Occurrence{}, false
	}
	return occs[0], true
}

// Before reports whether occurrence a precedes b in the text.
func Before(a, b Occurrence) bool {
	if a.Sentence != b.Sentence {
		return a.Sentence < b.Sentence
	}
	return a.Position < b.Position
}

// Clone returns a deep copy.
func (u *TextualUnit) Clone() *TextualUnit {
	c := &TextualUnit{
		Form:   u.Form,
		Tokens: append([]string(nil), u.Tokens...),
		Lemmas: append([]string(nil), u.Lemmas...),
		Stems:  append([]string(nil), u.Stems...),
		Tags:   append([]string(nil), u.Tags...),
		Seen:   make(map[string][]Occurrence, len(u.Seen)),
	}
	for k, v := range u.Seen {
		c.Seen[k] = append([]Occurrence(nil), v...)
	}
	return c
}
