package topicrankpp

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/cognicore/kpbench/pkg/kpbench/candidate"
	"github.com/cognicore/kpbench/pkg/kpbench/cluster"
	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/ingest"
	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
	"github.com/cognicore/kpbench/pkg/kpbench/rank"
)

// Defaults of the biased random walk.
const (
	DefaultLambdaTopic     = 0.5
	DefaultLambdaKeyphrase = 0.5
	DefaultEpsilon         = 1e-3
	DefaultMaxIters        = 1_000_000
)

// Ranker co-ranks the topics of a document with the reference keyphrases
// of the training documents they connect to.
type Ranker struct {
	Store *Store

	LambdaTopic     float64 `yaml:"lambda_t"`
	LambdaKeyphrase float64 `yaml:"lambda_k"`
	Epsilon         float64 `yaml:"epsilon"`
	MaxIters        int     `yaml:"max_iterations"`
	// Quota places up to Quota keyphrase nodes ahead of every topic.
	Quota int `yaml:"quota"`
	// MaxDepth drops keyphrases further than MaxDepth from the document;
	// 0 keeps every reachable keyphrase.
	MaxDepth int `yaml:"max_depth"`
}

// NewRanker creates a ranker with the default parameters.
func NewRanker(store *Store) *Ranker {
	return &Ranker{
		Store:           store,
		LambdaTopic:     DefaultLambdaTopic,
		LambdaKeyphrase: DefaultLambdaKeyphrase,
		Epsilon:         DefaultEpsilon,
		MaxIters:        DefaultMaxIters,
	}
}

// Prepare learns the domain graph of the corpus from its training
// references.
func (r *Ranker) Prepare(ctx context.Context, corpus *document.Corpus, _ []*document.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.Store.Learn(corpus.Name, corpus.TrainRefs)
	return nil
}

// Node is a topic or keyphrase node of a document graph.
type Node struct {
	ID        string
	Topic     int    // index of the topic group, -1 for keyphrases
	Keyphrase string // stem key, empty for topics
}

// IsKeyphrase reports whether the node is a domain keyphrase.
func (n Node) IsKeyphrase() bool { return n.Topic < 0 }

// DocumentGraph is the unified graph of one document: its topics, the
// domain keyphrases reachable from them, intra edges between nodes of the
// same kind and extra edges between a topic and a keyphrase.
type DocumentGraph struct {
	Nodes []Node
	Depth map[string]int // keyphrase key -> distance to the document

	index map[string]int
	intra []map[int]float64
	extra []map[int]float64
}

func (g *DocumentGraph) add(n Node) int {
	i := len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	g.index[n.ID] = i
	g.intra = append(g.intra, make(map[int]float64))
	g.extra = append(g.extra, make(map[int]float64))
	return i
}

// Intra returns the intra edge weight between two node IDs.
func (g *DocumentGraph) Intra(u, v string) float64 {
	i, ok1 := g.index[u]
	j, ok2 := g.index[v]
	if !ok1 || !ok2 {
		return 0
	}
	return g.intra[i][j]
}

// Extra returns the extra edge weight between two node IDs.
func (g *DocumentGraph) Extra(u, v string) float64 {
	i, ok1 := g.index[u]
	j, ok2 := g.index[v]
	if !ok1 || !ok2 {
		return 0
	}
	return g.extra[i][j]
}

// TopicID names the node of the i-th topic.
func TopicID(i int) string { return "topic#" + strconv.Itoa(i) }

// KeyphraseID names the node of a keyphrase key.
func KeyphraseID(key string) string { return "kp#" + key }

// Build assembles the document graph against a domain graph.
func (r *Ranker) Build(doc *document.Document, groups []*cluster.TopicGroup, domain *DomainGraph) *DocumentGraph {
	g := &DocumentGraph{Depth: make(map[string]int), index: make(map[string]int)}
	for i := range groups {
		g.add(Node{ID: TopicID(i), Topic: i})
	}

	// Topics sharing a sentence.
	perSentence := make(map[int]map[int]bool)
	for i, tg := range groups {
		for _, m := range tg.Members {
			for _, occ := range m.Occurrences() {
				if perSentence[occ.Sentence] == nil {
					perSentence[occ.Sentence] = make(map[int]bool)
				}
				perSentence[occ.Sentence][i] = true
			}
		}
	}
	for _, topics := range perSentence {
		for a := range topics {
			for b := range topics {
				if a < b {
					g.intra[a][b]++
					g.intra[b][a]++
				}
			}
		}
	}

	// Seeds: keyphrases whose stems match a topic member.
	matches := make(map[string][]int)
	var seeds []string
	for i, tg := range groups {
		for _, m := range tg.Members {
			key := m.StemKey()
			if _, ok := domain.Keyphrases[key]; !ok {
				continue
			}
			if len(matches[key]) == 0 {
				seeds = append(seeds, key)
			}
			if !containsInt(matches[key], i) {
				matches[key] = append(matches[key], i)
			}
		}
	}
	sort.Strings(seeds)

	reached := r.depths(domain, seeds)
	keys := make([]string, 0, len(reached))
	for k, d := range reached {
		g.Depth[k] = d
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if reached[keys[a]] != reached[keys[b]] {
			return reached[keys[a]] < reached[keys[b]]
		}
		return keys[a] < keys[b]
	})
	for _, k := range keys {
		g.add(Node{ID: KeyphraseID(k), Topic: -1, Keyphrase: k})
	}

	for key, topics := range matches {
		k := g.index[KeyphraseID(key)]
		for _, t := range topics {
			g.extra[t][k] = 1
			g.extra[k][t] = 1
		}
	}
	for a, ka := range keys {
		for _, kb := range keys[a+1:] {
			if w := domain.Weight(ka, kb); w > 0 {
				i, j := g.index[KeyphraseID(ka)], g.index[KeyphraseID(kb)]
				g.intra[i][j] = w
				g.intra[j][i] = w
			}
		}
	}
	return g
}

// depths runs a breadth-first search over the domain graph from the seeds,
// which are at depth 1.
func (r *Ranker) depths(domain *DomainGraph, seeds []string) map[string]int {
	depth := make(map[string]int, len(seeds))
	queue := make([]string, 0, len(seeds))
	for _, s := range seeds {
		depth[s] = 1
		queue = append(queue, s)
	}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		if r.MaxDepth > 0 && depth[k] >= r.MaxDepth {
			continue
		}
		for _, n := range domain.Neighbours(k) {
			if _, ok := depth[n]; ok || domain.Weight(k, n) <= 0 {
				continue
			}
			depth[n] = depth[k] + 1
			queue = append(queue, n)
		}
	}
	return depth
}

// Scores runs the biased random walk
//
//	s(v) = (1-λ(v))·Σ_extra w(u,v)·s(u)/out_extra(u) + λ(v)·Σ_intra w(u,v)·s(u)/out_intra(u)
//
// from s = 1 until the largest change is at most Epsilon.
func (r *Ranker) Scores(ctx context.Context, g *DocumentGraph) (map[string]float64, error) {
	n := len(g.Nodes)
	intra, extra := sorted(g.intra), sorted(g.extra)
	outIntra := make([]float64, n)
	outExtra := make([]float64, n)
	for i := range n {
		for _, e := range intra[i] {
			outIntra[i] += e.weight
		}
		for _, e := range extra[i] {
			outExtra[i] += e.weight
		}
	}

	eps, maxIters := r.Epsilon, r.MaxIters
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	if maxIters <= 0 {
		maxIters = DefaultMaxIters
	}

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1.0
	}
	next := make([]float64, n)
	for iter := 0; iter < maxIters; iter++ {
		if iter%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		maxDelta := 0.0
		for v := range n {
			extraSum, intraSum := 0.0, 0.0
			for _, e := range extra[v] {
				extraSum += e.weight * scores[e.to] / outExtra[e.to]
			}
			for _, e := range intra[v] {
				intraSum += e.weight * scores[e.to] / outIntra[e.to]
			}
			lambda := r.LambdaTopic
			if g.Nodes[v].IsKeyphrase() {
				lambda = r.LambdaKeyphrase
			}
			next[v] = (1-lambda)*extraSum + lambda*intraSum
			maxDelta = math.Max(maxDelta, math.Abs(next[v]-scores[v]))
		}
		scores, next = next, scores
		if maxDelta <= eps {
			break
		}
	}

	out := make(map[string]float64, n)
	for i, node := range g.Nodes {
		out[node.ID] = scores[i]
	}
	return out, nil
}

type edge struct {
	to     int
	weight float64
}

// sorted converts adjacency maps into slices ordered by neighbour index so
// sums are accumulated in a fixed order.
func sorted(adj []map[int]float64) [][]edge {
	out := make([][]edge, len(adj))
	for i, m := range adj {
		out[i] = make([]edge, 0, len(m))
		for to, w := range m {
			out[i] = append(out[i], edge{to: to, weight: w})
		}
		sort.Slice(out[i], func(a, b int) bool { return out[i][a].to < out[i][b].to })
	}
	return out
}

type entry struct {
	scored    rank.Scored
	keyphrase bool
}

// Rank implements rank.Ranker. Keyphrase nodes are emitted as the document
// candidate with the same stems when there is one.
func (r *Ranker) Rank(ctx context.Context, doc *document.Document, groups []*cluster.TopicGroup) ([]rank.Scored, error) {
	domain, ok := r.Store.Get(doc.Corpus)
	if !ok {
		return nil, fmt.Errorf("topicrank++: no domain graph for corpus %q: %w", doc.Corpus, internalerr.ErrNotFound)
	}
	g := r.Build(doc, groups, domain)
	scores, err := r.Scores(ctx, g)
	if err != nil {
		return nil, err
	}

	byStem := make(map[string]*candidate.TextualUnit)
	for _, u := range cluster.Units(groups) {
		if _, ok := byStem[u.StemKey()]; !ok {
			byStem[u.StemKey()] = u
		}
	}

	entries := make([]entry, 0, len(g.Nodes))
	for _, node := range g.Nodes {
		var u *candidate.TextualUnit
		if node.IsKeyphrase() {
			if u = byStem[node.Keyphrase]; u == nil {
				u = synthesize(domain.Keyphrases[node.Keyphrase])
			}
		} else {
			u = representative(groups[node.Topic], domain)
		}
		if u == nil {
			continue
		}
		entries = append(entries, entry{scored: rank.Scored{Unit: u, Score: scores[node.ID]}, keyphrase: node.IsKeyphrase()})
	}

	sort.SliceStable(entries, func(a, b int) bool {
		ea, eb := entries[a], entries[b]
		if ea.scored.Score != eb.scored.Score {
			return ea.scored.Score > eb.scored.Score
		}
		if ea.keyphrase != eb.keyphrase {
			return ea.keyphrase
		}
		return ea.scored.Unit.Key() < eb.scored.Unit.Key()
	})
	if r.Quota > 0 {
		entries = applyQuota(entries, r.Quota)
	}

	seen := make(map[string]bool, len(entries))
	out := make([]rank.Scored, 0, len(entries))
	for _, e := range entries {
		key := e.scored.Unit.StemKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e.scored)
	}
	return out, nil
}

// applyQuota moves the best quota keyphrases ahead, keeping the relative
// order of everything else.
func applyQuota(entries []entry, quota int) []entry {
	head := make([]entry, 0, quota)
	tail := make([]entry, 0, len(entries))
	for _, e := range entries {
		if e.keyphrase && len(head) < quota {
			head = append(head, e)
		} else {
			tail = append(tail, e)
		}
	}
	return append(head, tail...)
}

// representative returns the member matching a domain keyphrase, or else
// the member occurring first.
func representative(g *cluster.TopicGroup, domain *DomainGraph) *candidate.TextualUnit {
	for _, m := range g.Members {
		if _, ok := domain.Keyphrases[m.StemKey()]; ok {
			return m
		}
	}
	return g.First()
}

func synthesize(kp Keyphrase) *candidate.TextualUnit {
	tags := make([]string, len(kp.Tokens))
	for i := range tags {
		tags[i] = ingest.TagOther
	}
	return &candidate.TextualUnit{
		Form:   kp.Form,
		Tokens: append([]string(nil), kp.Tokens...),
		Lemmas: append([]string(nil), kp.Tokens...),
		Stems:  append([]string(nil), kp.Stems...),
		Tags:   tags,
		Seen:   make(map[string][]candidate.Occurrence),
	}
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
