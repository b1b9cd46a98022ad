package stoplist

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manager holds a language's stop-word list
type Manager struct {
	stops map[string]struct{}
}

// NewManager creates a new stoplist manager. Words are lowercased.
func NewManager(initialStops []string) *Manager {
	stops := make(map[string]struct{}, len(initialStops))
	for _, s := range initialStops {
		stops[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	delete(stops, "")
	return &Manager{stops: stops}
}

// ForLanguage returns the builtin list for a language tag ("en", "fr").
// Unknown languages get an empty list.
func ForLanguage(lang string) *Manager {
	switch baseLanguage(lang) {
	case "en":
		return NewManager(english)
	case "fr":
		return NewManager(french)
	default:
		return NewManager(nil)
	}
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	if m == nil {
		return false
	}
	_, ok := m.stops[strings.ToLower(token)]
	return ok
}

// Add adds a token to the stoplist
func (m *Manager) Add(token string) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token != "" {
		m.stops[token] = struct{}{}
	}
}

// Remove removes a token from the stoplist
func (m *Manager) Remove(token string) {
	delete(m.stops, strings.ToLower(token))
}

// Len returns the number of stopwords.
func (m *Manager) Len() int { return len(m.stops) }

// All returns all stopwords in sorted order
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// File is the YAML layout of a stop-word file.
//
//	language: en
//	extends: builtin   # optional, start from the builtin list
//	terms: [foo, bar]
type File struct {
	Language string   `yaml:"language"`
	Extends  string   `yaml:"extends"`
	Terms    []string `yaml:"terms"`
}

// LoadYAML loads a stop-word list from a YAML file.
func LoadYAML(path string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse stoplist %s: %w", path, err)
	}

	m := NewManager(f.Terms)
	if f.Extends == "builtin" {
		for _, s := range ForLanguage(f.Language).All() {
			m.Add(s)
		}
	}
	return m, nil
}

func baseLanguage(lang string) string {
	lang = strings.ToLower(lang)
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	switch lang {
	case "english":
		return "en"
	case "french", "français":
		return "fr"
	}
	return lang
}

var english = []string{
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and",
	"any", "are", "as", "at", "be", "because", "been", "before", "being", "below",
	"between", "both", "but", "by", "can", "could", "did", "do", "does", "doing",
	"down", "during", "each", "either", "et", "etc", "few", "for", "from", "further",
	"had", "has", "have", "having", "he", "her", "here", "hers", "herself", "him",
	"himself", "his", "how", "however", "i", "if", "in", "into", "is", "it", "its",
	"itself", "just", "may", "me", "might", "more", "most", "must", "my", "myself",
	"no", "nor", "not", "now", "of", "off", "on", "once", "only", "or", "other",
	"our", "ours", "ourselves", "out", "over", "own", "same", "she", "should", "so",
	"some", "such", "than", "that", "the", "their", "theirs", "them", "themselves",
	"then", "there", "these", "they", "this", "those", "through", "thus", "to", "too",
	"under", "until", "up", "upon", "us", "very", "via", "was", "we", "were", "what",
	"when", "where", "whether", "which", "while", "who", "whom", "why", "will",
	"with", "within", "without", "would", "you", "your", "yours", "yourself",
	"yourselves",
}

var french = []string{
	"a", "afin", "ai", "aie", "ainsi", "alors", "au", "aucun", "aucune", "aussi",
	"autre", "aux", "avec", "avoir", "c", "ce", "ceci", "cela", "celle", "celles",
	"celui", "ces", "cet", "cette", "ceux", "chaque", "comme", "d", "dans", "de",
	"des", "donc", "dont", "du", "elle", "elles", "en", "encore", "entre", "est",
	"et", "eu", "fait", "il", "ils", "j", "je", "l", "la", "le", "les", "leur",
	"leurs", "lui", "m", "mais", "me", "mes", "moi", "mon", "même", "n", "ne",
	"ni", "nos", "notre", "nous", "on", "ont", "ou", "où", "par", "pas", "peu",
	"plus", "pour", "qu", "que", "quel", "quelle", "qui", "s", "sa", "sans", "se",
	"ses", "si", "son", "sont", "sous", "sur", "t", "ta", "te", "tes", "toi",
	"ton", "tous", "tout", "toute", "toutes", "très", "tu", "un", "une", "vos",
	"votre", "vous", "y", "à", "été", "être",
}
