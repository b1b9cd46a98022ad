package topicrankpp

import (
	"sort"
	"strings"
	"sync"

	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/ingest"
	"github.com/cognicore/kpbench/pkg/kpbench/pmi"
)

// Edge weightings of the domain graph.
const (
	WeightFrequency = "frequency" // joint document frequency / number of documents
	WeightNPMI      = "npmi"      // positive normalised PMI
)

// npmiSmoothing keeps NPMI informative on small training sets.
const npmiSmoothing = 0.01

// Keyphrase is a reference keyphrase node of the domain graph.
type Keyphrase struct {
	Form   string
	Tokens []string
	Stems  []string
}

// Key returns the stem tuple identifying the keyphrase.
func (k Keyphrase) Key() string {
	return strings.Join(k.Stems, " ")
}

// DomainGraph links the reference keyphrases of the training documents. The
// graph is read-only once learned.
type DomainGraph struct {
	Keyphrases map[string]Keyphrase // by stem key
	Docs       int64

	counter   *pmi.Counter
	weighting string
	calc      *pmi.Calculator
}

// Weight returns the edge weight between two keyphrase keys.
func (g *DomainGraph) Weight(a, b string) float64 {
	if a == b || g.counter.N == 0 {
		return 0
	}
	if g.weighting == WeightNPMI {
		if g.counter.PairCount(a, b) == 0 {
			return 0
		}
		return g.calc.PositiveNPMI(g.counter, a, b)
	}
	return float64(g.counter.PairCount(a, b)) / float64(g.counter.N)
}

// Neighbours returns the sorted keys linked to key.
func (g *DomainGraph) Neighbours(key string) []string {
	return g.counter.Neighbours(key)
}

// Keys returns the sorted keyphrase keys.
func (g *DomainGraph) Keys() []string {
	out := make([]string, 0, len(g.Keyphrases))
	for k := range g.Keyphrases {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Store holds one domain graph per corpus. Graphs are built once, before
// any document of the corpus is ranked, and read concurrently afterwards.
type Store struct {
	mu        sync.RWMutex
	graphs    map[string]*DomainGraph
	stemmer   ingest.Stemmer
	tokenizer ingest.WordTokenizer
	weighting string
}

// NewStore creates a store normalising keyphrases with stemmer. A nil
// stemmer only lowercases.
func NewStore(stemmer ingest.Stemmer, weighting string) *Store {
	if stemmer == nil {
		stemmer = ingest.NoStemmer{}
	}
	if weighting == "" {
		weighting = WeightFrequency
	}
	return &Store{
		graphs:    make(map[string]*DomainGraph),
		stemmer:   stemmer,
		tokenizer: ingest.NewTokenizer(),
		weighting: weighting,
	}
}

// Normalize tokenizes and stems a keyphrase.
func (s *Store) Normalize(form string) Keyphrase {
	var tokens []string
	for _, t := range s.tokenizer.Tokenize(strings.ToLower(form)) {
		if ingest.IsWord(t) {
			tokens = append(tokens, t)
		}
	}
	return Keyphrase{Form: strings.Join(tokens, " "), Tokens: tokens, Stems: ingest.StemAll(s.stemmer, tokens)}
}

// Learn builds and stores the domain graph of a corpus from its training
// references, replacing any previous graph.
func (s *Store) Learn(corpus string, refs document.References) *DomainGraph {
	g := &DomainGraph{
		Keyphrases: make(map[string]Keyphrase),
		counter:    pmi.NewCounter(),
		weighting:  s.weighting,
		calc:       pmi.NewCalculator(npmiSmoothing),
	}
	for _, name := range refs.Names() {
		var keys []string
		for _, form := range refs[name] {
			kp := s.Normalize(form)
			if len(kp.Stems) == 0 {
				continue
			}
			if _, ok := g.Keyphrases[kp.Key()]; !ok {
				g.Keyphrases[kp.Key()] = kp
			}
			keys = append(keys, kp.Key())
		}
		g.counter.AddDocument(keys)
	}
	g.Docs = g.counter.N

	s.mu.Lock()
	s.graphs[corpus] = g
	s.mu.Unlock()
	return g
}

// Get returns the domain graph of a corpus.
func (s *Store) Get(corpus string) (*DomainGraph, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[corpus]
	return g, ok
}
