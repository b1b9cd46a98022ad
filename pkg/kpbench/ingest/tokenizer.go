package ingest

import (
	"strings"
	"unicode"
)

// WordTokenizer splits a sentence into tokens.
type WordTokenizer interface {
	Tokenize(sentence string) []string
}

// Tokenizer splits sentences into word and punctuation tokens. Case is
// preserved so that taggers can use it; the pre-processor lowercases after
// tagging.
//
// Words are runs of letters and digits. A hyphen or apostrophe joins two
// alphanumeric runs ("state-of-the-art", "don't"); a dot or comma joins two
// digit runs ("3.5", "1,000"). Every other printable rune is emitted as a
// single punctuation token. Control characters and whitespace are dropped.
type Tokenizer struct{}

// NewTokenizer creates a new tokenizer
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// Tokenize splits text into tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	runes := []rune(text)
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			if word := cleanToken(current.String()); word != "" {
				tokens = append(tokens, word)
			}
			current.Reset()
		}
	}

	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r):
			current.WriteRune(r)
		case isJoiner(runes, i):
			current.WriteRune(r)
		case unicode.IsSpace(r) || unicode.IsControl(r):
			flush()
		default:
			flush()
			if unicode.IsPrint(r) {
				tokens = append(tokens, string(r))
			}
		}
	}
	flush()

	return tokens
}

// isJoiner reports whether the rune at i glues its neighbours into one word.
func isJoiner(runes []rune, i int) bool {
	if i == 0 || i == len(runes)-1 {
		return false
	}
	prev, next := runes[i-1], runes[i+1]
	switch runes[i] {
	case '-', '\'', '’':
		return isAlnum(prev) && isAlnum(next)
	case '.', ',':
		return unicode.IsDigit(prev) && unicode.IsDigit(next)
	}
	return false
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

// cleanToken strips leading/trailing hyphens and normalizes consecutive hyphens
func cleanToken(token string) string {
	token = strings.Trim(token, "-")
	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}
	return token
}

// IsWord reports whether a token carries at least one letter or digit.
func IsWord(token string) bool {
	for _, r := range token {
		if isAlnum(r) {
			return true
		}
	}
	return false
}

// isNumeric returns true if the token contains only digits and separators.
func isNumeric(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.' || r == ',' || r == '-':
		default:
			return false
		}
	}
	return digits > 0
}
