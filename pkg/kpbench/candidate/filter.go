package candidate

import (
	"unicode/utf8"

	"github.com/cognicore/kpbench/pkg/kpbench/ingest"
)

// Filter accepts or rejects a word sequence with its tags.
type Filter func(words, tags []string) bool

// StopWords interface satisfied by stoplist.Manager.
type StopWords interface {
	IsStop(word string) bool
}

// StopWordFilter rejects sequences starting or ending with a stop word.
func StopWordFilter(stops StopWords) Filter {
	return func(words, _ []string) bool {
		if len(words) == 0 || stops == nil {
			return len(words) > 0
		}
		return !stops.IsStop(words[0]) && !stops.IsStop(words[len(words)-1])
	}
}

// TagFilter accepts sequences whose whole tag sequence matches p.
func TagFilter(p *TagPattern) Filter {
	return func(_, tags []string) bool {
		return p.Match(tags)
	}
}

// PunctuationFilter rejects sequences containing a punctuation token.
func PunctuationFilter() Filter {
	return func(words, tags []string) bool {
		for i, w := range words {
			if tags[i] == ingest.TagPunct || !ingest.IsWord(w) {
				return false
			}
		}
		return true
	}
}

// MinLengthFilter rejects sequences containing a word shorter than n runes.
func MinLengthFilter(n int) Filter {
	return func(words, _ []string) bool {
		for _, w := range words {
			if utf8.RuneCountInString(w) < n {
				return false
			}
		}
		return true
	}
}

func accept(filters []Filter, words, tags []string) bool {
	for _, f := range filters {
		if !f(words, tags) {
			return false
		}
	}
	return true
}
