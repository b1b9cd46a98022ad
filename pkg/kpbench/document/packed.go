package document

import (
	"fmt"
	"strings"
)

// DefaultSeparator joins a word and its tag in packed form. The tokenizer
// never emits control characters, so it cannot collide with a legal token.
const DefaultSeparator = "\x1f"

// PackSentence renders a sentence as space separated word<sep>tag tokens.
func PackSentence(s Sentence, sep string) string {
	parts := make([]string, len(s.Words))
	for i, w := range s.Words {
		parts[i] = w + sep + s.Tags[i]
	}
	return strings.Join(parts, " ")
}

// UnpackSentence is the inverse of PackSentence.
func UnpackSentence(packed, sep string) (Sentence, error) {
	fields := strings.Split(packed, " ")
	s := Sentence{Words: make([]string, 0, len(fields)), Tags: make([]string, 0, len(fields))}
	for _, f := range fields {
		if f == "" {
			continue
		}
		i := strings.LastIndex(f, sep)
		if i < 0 {
			return Sentence{}, fmt.Errorf("token %q has no tag separator", f)
		}
		s.Words = append(s.Words, f[:i])
		s.Tags = append(s.Tags, f[i+len(sep):])
	}
	return s, nil
}

// Packed is the cache representation of a Document: every sentence is a
// single packed string so the parallel word/tag structure travels as one
// value.
type Packed struct {
	Corpus    string   `json:"corpus"`
	Name      string   `json:"name"`
	ID        string   `json:"id"`
	Language  string   `json:"language"`
	Encoding  string   `json:"encoding"`
	Separator string   `json:"separator"`
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Content   string   `json:"content"`
	TitleS    []string `json:"title_sentences"`
	AbstractS []string `json:"abstract_sentences"`
	ContentS  []string `json:"content_sentences"`
}

// Pack converts the document to its packed form.
func (d *Document) Pack(sep string) Packed {
	pack := func(in []Sentence) []string {
		out := make([]string, len(in))
		for i, s := range in {
			out[i] = PackSentence(s, sep)
		}
		return out
	}
	return Packed{
		Corpus:    d.Corpus,
		Name:      d.Name,
		ID:        d.ID,
		Language:  d.Language,
		Encoding:  d.Encoding,
		Separator: sep,
		Title:     d.Title,
		Abstract:  d.Abstract,
		Content:   d.Content,
		TitleS:    pack(d.TitleSentences),
		AbstractS: pack(d.AbstractSentences),
		ContentS:  pack(d.ContentSentences),
	}
}

// Unpack restores the Document.
func (p Packed) Unpack() (*Document, error) {
	unpack := func(in []string) ([]Sentence, error) {
		out := make([]Sentence, 0, len(in))
		for _, s := range in {
			sent, err := UnpackSentence(s, p.Separator)
			if err != nil {
				return nil, err
			}
			out = append(out, sent)
		}
		return out, nil
	}
	d := &Document{
		Corpus:   p.Corpus,
		Name:     p.Name,
		ID:       p.ID,
		Language: p.Language,
		Encoding: p.Encoding,
		Title:    p.Title,
		Abstract: p.Abstract,
		Content:  p.Content,
	}
	var err error
	if d.TitleSentences, err = unpack(p.TitleS); err != nil {
		return nil, fmt.Errorf("unpack title: %w", err)
	}
	if d.AbstractSentences, err = unpack(p.AbstractS); err != nil {
		return nil, fmt.Errorf("unpack abstract: %w", err)
	}
	if d.ContentSentences, err = unpack(p.ContentS); err != nil {
		return nil, fmt.Errorf("unpack content: %w", err)
	}
	return d, nil
}
