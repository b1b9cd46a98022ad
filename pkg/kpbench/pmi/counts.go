package pmi

import (
	"math"
	"sort"
)

// Counter maintains document frequencies and document co-occurrence counts
// of terms (keyphrases, stems).
type Counter struct {
	N   int64              // total number of documents
	Nx  map[string]int64   // document frequency per term
	Nxy map[TermPair]int64 // documents containing both terms

	adj map[string]map[string]struct{}
}

// TermPair represents an unordered pair of terms stored as T1 < T2.
type TermPair struct {
	T1, T2 string
}

// Pair builds the canonical pair of two terms.
func Pair(a, b string) TermPair {
	if a > b {
		a, b = b, a
	}
	return TermPair{T1: a, T2: b}
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{
		Nx:  make(map[string]int64),
		Nxy: make(map[TermPair]int64),
		adj: make(map[string]map[string]struct{}),
	}
}

// AddDocument counts one document. Repeated terms are counted once.
func (c *Counter) AddDocument(terms []string) {
	c.N++

	seen := make(map[string]struct{}, len(terms))
	unique := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok || t == "" {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}
	sort.Strings(unique)

	for _, t := range unique {
		c.Nx[t]++
	}
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			c.Nxy[TermPair{T1: unique[i], T2: unique[j]}]++
			c.link(unique[i], unique[j])
			c.link(unique[j], unique[i])
		}
	}
}

func (c *Counter) link(a, b string) {
	if c.adj[a] == nil {
		c.adj[a] = make(map[string]struct{})
	}
	c.adj[a][b] = struct{}{}
}

// PairCount returns the number of documents containing both terms.
func (c *Counter) PairCount(t1, t2 string) int64 {
	return c.Nxy[Pair(t1, t2)]
}

// Count returns the document frequency of a term.
func (c *Counter) Count(t string) int64 {
	return c.Nx[t]
}

// TotalDocs returns the total number of documents processed.
func (c *Counter) TotalDocs() int64 {
	return c.N
}

// Terms returns the sorted list of terms.
func (c *Counter) Terms() []string {
	out := make([]string, 0, len(c.Nx))
	for t := range c.Nx {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Neighbours returns the sorted terms co-occurring with t.
func (c *Counter) Neighbours(t string) []string {
	out := make([]string, 0, len(c.adj[t]))
	for n := range c.adj[t] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Pairs returns all pairs in canonical order.
func (c *Counter) Pairs() []TermPair {
	out := make([]TermPair, 0, len(c.Nxy))
	for p := range c.Nxy {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].T1 != out[j].T1 {
			return out[i].T1 < out[j].T1
		}
		return out[i].T2 < out[j].T2
	})
	return out
}

// UniquePairs returns the number of distinct co-occurring pairs.
func (c *Counter) UniquePairs() int {
	return len(c.Nxy)
}

// IDF returns the smoothed inverse document frequency
// log((N + 1) / (N_t + 1)) + 1.
func (c *Counter) IDF(t string) float64 {
	return math.Log(float64(c.N+1)/float64(c.Nx[t]+1)) + 1
}
