package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SentenceSplitter splits a text block into sentences.
type SentenceSplitter interface {
	Split(text string) []string
}

// abbreviations holds lowercase abbreviations (with trailing dot) that do not
// end a sentence.
var abbreviations = map[string]bool{
	"e.g.": true, "i.e.": true, "etc.": true, "al.": true,
	"fig.": true, "figs.": true, "eq.": true, "eqs.": true, "sec.": true,
	"vs.": true, "cf.": true, "no.": true, "vol.": true, "pp.": true,
	"dr.": true, "prof.": true, "mr.": true, "mrs.": true, "ms.": true,
	"jr.": true, "sr.": true, "inc.": true, "ltd.": true, "co.": true,
	"approx.": true, "resp.": true, "ref.": true, "refs.": true,
	"mme.": true, "p.": true, "ex.": true,
}

// RuleSplitter breaks text on terminal punctuation followed by whitespace and
// an uppercase letter or digit, and on blank lines. Known abbreviations and
// single-letter initials do not break.
type RuleSplitter struct{}

// NewRuleSplitter creates a new splitter.
func NewRuleSplitter() *RuleSplitter {
	return &RuleSplitter{}
}

// Split returns the trimmed, non-empty sentences of text.
func (s *RuleSplitter) Split(text string) []string {
	var sentences []string
	start := 0

	emit := func(end int) {
		if sentence := strings.TrimSpace(text[start:end]); sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = end
	}

	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])

		// Blank line forces a break.
		if r == '\n' {
			j := i + size
			for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\r') {
				j++
			}
			if j < len(text) && text[j] == '\n' {
				emit(i)
				i = j + 1
				continue
			}
		}

		if r == '.' || r == '?' || r == '!' || r == '…' {
			j := i + size
			for j < len(text) {
				nr, ns := utf8.DecodeRuneInString(text[j:])
				if nr != '.' && nr != '?' && nr != '!' && nr != '"' && nr != ')' && nr != '\'' {
					break
				}
				j += ns
			}
			if r == '.' && j == i+size && isAbbreviation(text, i) {
				i = j
				continue
			}
			if followedByBreak(text, j) {
				emit(j)
			}
			i = j
			continue
		}

		i += size
	}
	emit(len(text))

	return sentences
}

// followedByBreak reports whether pos is followed by whitespace and then an
// uppercase letter or a digit.
func followedByBreak(s string, pos int) bool {
	foundSpace := false
	for i := pos; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			foundSpace = true
			i += size
			continue
		}
		return foundSpace && (unicode.IsUpper(r) || unicode.IsDigit(r))
	}
	return false
}

// isAbbreviation checks whether the dot at dotPos closes a known
// abbreviation or an initial.
func isAbbreviation(s string, dotPos int) bool {
	start := dotPos
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(s[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	word := strings.ToLower(s[start : dotPos+1])
	if word == "." {
		return false
	}
	if abbreviations[word] {
		return true
	}
	// Single uppercase initial such as "J." in "J. Smith".
	if utf8.RuneCountInString(word) == 2 {
		r, _ := utf8.DecodeRuneInString(s[start:])
		return unicode.IsUpper(r)
	}
	return false
}
