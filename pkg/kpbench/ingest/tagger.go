package ingest

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Universal POS tags.
const (
	TagNoun  = "NOUN"
	TagAdj   = "ADJ"
	TagVerb  = "VERB"
	TagAdv   = "ADV"
	TagDet   = "DET"
	TagAdp   = "ADP"
	TagPron  = "PRON"
	TagConj  = "CONJ"
	TagNum   = "NUM"
	TagPrt   = "PRT"
	TagPunct = "PUNCT"
	TagOther = "X"
)

// Tagger assigns one POS tag per token, sentence by sentence.
type Tagger interface {
	Tag(ctx context.Context, sentences [][]string) ([][]string, error)
}

var closedClasses = map[string]map[string]string{
	"en": buildClosedClass(map[string][]string{
		TagDet: {"the", "a", "an", "this", "that", "these", "those", "each", "every",
			"some", "any", "no", "all", "both", "either", "neither", "another", "such"},
		TagAdp: {"of", "in", "on", "at", "by", "for", "with", "from", "to", "into", "onto",
			"over", "under", "between", "through", "about", "against", "during", "without",
			"within", "among", "via", "across", "after", "before", "per", "upon", "than",
			"towards", "toward", "since", "until", "along", "beyond", "despite", "like"},
		TagPron: {"i", "you", "he", "she", "it", "we", "they", "me", "him", "her", "us",
			"them", "my", "your", "his", "its", "our", "their", "which", "who", "whom",
			"whose", "what", "itself", "themselves", "one"},
		TagConj: {"and", "or", "but", "nor", "yet", "if", "while", "because", "although",
			"whereas", "though", "unless", "whether"},
		TagPrt: {"not", "'s", "n't", "up", "out", "off"},
		TagAdv: {"very", "also", "often", "more", "most", "however", "thus", "then",
			"here", "there", "too", "so", "only", "well", "still", "even", "already",
			"hence", "therefore", "less", "least", "further", "where", "when", "how", "why"},
		TagVerb: {"is", "are", "was", "were", "be", "been", "being", "am", "have", "has",
			"had", "do", "does", "did", "can", "could", "will", "would", "shall", "should",
			"may", "might", "must", "use", "uses", "show", "shows", "propose", "proposes",
			"present", "presents", "describe", "describes", "make", "makes", "get", "gets"},
		TagAdj: {"large", "small", "new", "old", "high", "low", "good", "best", "better",
			"different", "many", "few", "other", "same", "main", "big", "long", "short",
			"first", "last", "deep", "open", "fast", "simple", "recent", "novel", "single",
			"multiple", "several", "various", "quick", "lazy", "brown", "free", "real"},
	}),
	"fr": buildClosedClass(map[string][]string{
		TagDet: {"le", "la", "les", "l'", "un", "une", "des", "du", "ce", "cet", "cette",
			"ces", "chaque", "quelques", "plusieurs", "aucun", "aucune", "tout", "toute",
			"tous", "toutes", "leur", "leurs", "son", "sa", "ses", "notre", "nos", "votre", "vos"},
		TagAdp: {"de", "à", "au", "aux", "en", "dans", "par", "pour", "sur", "sous", "avec",
			"sans", "entre", "vers", "chez", "d'", "selon", "contre", "pendant", "depuis"},
		TagPron: {"je", "tu", "il", "elle", "on", "nous", "vous", "ils", "elles", "qui",
			"que", "qu'", "dont", "où", "se", "s'", "lui", "y"},
		TagConj: {"et", "ou", "mais", "donc", "or", "ni", "car", "si", "lorsque", "quand", "comme"},
		TagPrt:  {"ne", "n'", "pas"},
		TagAdv: {"très", "plus", "moins", "aussi", "ainsi", "bien", "encore", "toujours",
			"souvent", "déjà", "alors", "puis"},
		TagVerb: {"est", "sont", "été", "être", "a", "ont", "avoir", "fait", "peut",
			"peuvent", "était", "sera", "permet", "permettent"},
	}),
}

func buildClosedClass(classes map[string][]string) map[string]string {
	out := make(map[string]string)
	for tag, words := range classes {
		for _, w := range words {
			out[w] = tag
		}
	}
	return out
}

var adjectiveSuffixes = map[string][]string{
	"en": {"al", "ous", "ive", "ic", "able", "ible", "ful", "less", "ary"},
	"fr": {"ique", "able", "ible", "eux", "euse", "if", "ive", "aire", "el", "elle"},
}

// RuleTagger is a heuristic tagger using closed-class word lists and suffix
// rules. Unknown words default to NOUN. Overrides map a lowercase word to
// a fixed tag and take precedence over every rule.
type RuleTagger struct {
	language  string
	closed    map[string]string
	adjSuffix []string
	Overrides map[string]string
}

// NewRuleTagger creates a tagger for the language tag. Languages without
// closed-class lists fall back to English.
func NewRuleTagger(language string) *RuleTagger {
	lang := baseLanguage(language)
	if _, ok := closedClasses[lang]; !ok {
		lang = "en"
	}
	return &RuleTagger{
		language:  lang,
		closed:    closedClasses[lang],
		adjSuffix: adjectiveSuffixes[lang],
		Overrides: make(map[string]string),
	}
}

// Tag tags every sentence. It never fails except on cancellation.
func (t *RuleTagger) Tag(ctx context.Context, sentences [][]string) ([][]string, error) {
	out := make([][]string, len(sentences))
	for i, words := range sentences {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = t.tagSentence(words)
	}
	return out, nil
}

func (t *RuleTagger) tagSentence(words []string) []string {
	tags := make([]string, len(words))
	for i, w := range words {
		tags[i] = t.tagWord(w)
	}

	// Participles directly before a noun act as modifiers ("trained model").
	for i := 0; i+1 < len(words); i++ {
		if tags[i] == TagVerb && tags[i+1] == TagNoun && t.isParticiple(words[i]) {
			tags[i] = TagAdj
		}
	}
	return tags
}

func (t *RuleTagger) tagWord(word string) string {
	lower := strings.ToLower(word)
	if tag, ok := t.Overrides[lower]; ok {
		return tag
	}
	if !IsWord(word) {
		return TagPunct
	}
	if isNumeric(word) {
		return TagNum
	}
	if tag, ok := t.closed[lower]; ok {
		return tag
	}
	if utf8.RuneCountInString(lower) <= 3 {
		return TagNoun
	}

	if t.language == "en" {
		switch {
		case strings.HasSuffix(lower, "ly"):
			return TagAdv
		case t.isParticiple(lower):
			return TagVerb
		}
	} else if t.language == "fr" && strings.HasSuffix(lower, "ment") {
		return TagAdv
	}

	for _, suffix := range t.adjSuffix {
		if strings.HasSuffix(lower, suffix) && utf8.RuneCountInString(lower) > len(suffix)+3 {
			return TagAdj
		}
	}
	return TagNoun
}

func (t *RuleTagger) isParticiple(word string) bool {
	word = strings.ToLower(word)
	if t.language != "en" || utf8.RuneCountInString(word) <= 4 {
		return false
	}
	return strings.HasSuffix(word, "ing") || strings.HasSuffix(word, "ed")
}
