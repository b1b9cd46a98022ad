package graph

import (
	"context"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/cognicore/kpbench/pkg/kpbench/candidate"
	"github.com/cognicore/kpbench/pkg/kpbench/cluster"
	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/ingest"
	"github.com/cognicore/kpbench/pkg/kpbench/rank"
)

func tagged(s string) document.Sentence {
	var out document.Sentence
	for _, f := range strings.Fields(s) {
		i := strings.LastIndex(f, "/")
		out.Words = append(out.Words, f[:i])
		out.Tags = append(out.Tags, f[i+1:])
	}
	return out
}

func docOf(sentences ...string) *document.Document {
	doc := document.New("test", "t1", "en", "utf-8")
	for _, s := range sentences {
		doc.ContentSentences = append(doc.ContentSentences, tagged(s))
	}
	return doc
}

func scoreOf(t *testing.T, scored []rank.Scored, form string) float64 {
	t.Helper()
	for _, s := range scored {
		if s.Unit.Form == form {
			return s.Score
		}
	}
	t.Fatalf("Candidate %q not ranked", form)
	return 0
}

func TestPageRankTwoNodes(t *testing.T) {
	g := New()
	g.AddEdge("a", "b", 3)

	res, err := PageRank(context.Background(), g, DefaultPageRankConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Fatal("Expected convergence")
	}
	for _, n := range []string{"a", "b"} {
		if math.Abs(res.Scores[n]-1.0) > 1e-3 {
			t.Errorf("Expected score 1.0 for %s, got %f", n, res.Scores[n])
		}
	}
}

func TestPageRankIsolatedNode(t *testing.T) {
	g := New()
	g.AddNode("alone")
	res, _ := PageRank(context.Background(), g, DefaultPageRankConfig(), nil)
	if math.Abs(res.Scores["alone"]-0.15) > 1e-9 {
		t.Errorf("Isolated node should keep only the teleport share, got %f", res.Scores["alone"])
	}
}

func TestPageRankRandomConnectedGraph(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	g := New()
	const n = 200
	for i := 1; i < n; i++ {
		g.AddEdge(strconv.Itoa(i-1), strconv.Itoa(i), 1+rng.Float64())
	}
	for k := 0; k < 2*n; k++ {
		g.AddEdge(strconv.Itoa(rng.Intn(n)), strconv.Itoa(rng.Intn(n)), rng.Float64())
	}

	res, err := PageRank(context.Background(), g, DefaultPageRankConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Errorf("Expected convergence within the cap, ran %d iterations", res.Iterations)
	}
	if len(res.Scores) != n {
		t.Errorf("Expected %d scores, got %d", n, len(res.Scores))
	}
}

func TestPageRankCancelled(t *testing.T) {
	g := New()
	g.AddEdge("a", "b", 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := PageRank(ctx, g, DefaultPageRankConfig(), nil); err == nil {
		t.Error("Expected context error")
	}
}

func TestWordStrategyModes(t *testing.T) {
	sentences := []document.Sentence{tagged("Graph/NOUN model/NOUN graph/NOUN model/NOUN")}

	tr := NewTextRank(10)
	tr.Reset(nil, sentences)
	if got := tr.Recommendation("graph", "model"); got != 1 {
		t.Errorf("Boolean weight should be 1, got %f", got)
	}
	if len(tr.Nodes()) != 2 {
		t.Errorf("Expected lowercased nodes [graph model], got %v", tr.Nodes())
	}

	sr := NewSingleRank(10)
	sr.Reset(nil, sentences)
	if got := sr.Recommendation("model", "graph"); got != 4 {
		t.Errorf("Count weight should be 4, got %f", got)
	}
}

func TestWordStrategyWindowUsesPositions(t *testing.T) {
	sentences := []document.Sentence{tagged("graph/NOUN of/ADP model/NOUN")}

	s := NewTextRank(2)
	s.Reset(nil, sentences)
	if s.Recommendation("graph", "model") != 0 {
		t.Error("Words two positions apart are outside a window of 2")
	}
	s = NewTextRank(3)
	s.Reset(nil, sentences)
	if s.Recommendation("graph", "model") != 1 {
		t.Error("Words two positions apart are inside a window of 3")
	}
}

func TestCompleteStrategy(t *testing.T) {
	s := NewComplete()
	s.Reset(nil, []document.Sentence{
		tagged("graph/NOUN model/NOUN"),
		tagged("ranking/NOUN"),
	})
	if got := s.Recommendation("graph", "ranking"); got != 0.5 {
		t.Errorf("Expected 1/2 across sentences, got %f", got)
	}
	if got := s.Recommendation("graph", "model"); got != 1 {
		t.Errorf("Expected 1 for adjacent words, got %f", got)
	}
}

func TestTextRankScenario(t *testing.T) {
	doc := docOf("the/DET quick/ADJ brown/ADJ fox/NOUN jumps/VERB over/ADP the/DET lazy/ADJ dog/NOUN ./PUNCT")
	units, err := candidate.NewNGramExtractor(2, candidate.Annotator{}).Extract(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	groups, _ := cluster.FakeClusterer{}.Cluster(context.Background(), doc, units)

	scored, err := TextRank(2).Rank(context.Background(), doc, groups)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	jumps := scoreOf(t, scored, "jumps over")
	if scoreOf(t, scored, "quick brown") <= jumps {
		t.Error("Expected 'quick brown' above 'jumps over'")
	}
	if scoreOf(t, scored, "lazy dog") <= jumps {
		t.Error("Expected 'lazy dog' above 'jumps over'")
	}
	for i := 1; i < len(scored); i++ {
		if scored[i].Score > scored[i-1].Score {
			t.Fatalf("Results not ordered by score at %d", i)
		}
	}
}

func topicScenario(t *testing.T) (*document.Document, []*cluster.TopicGroup) {
	t.Helper()
	doc := docOf(
		"neural/ADJ network/NOUN needs/VERB training/NOUN data/NOUN",
		"neural/ADJ networks/NOUN learn/VERB",
		"training/NOUN data/NOUN helps/VERB neural/ADJ networks/NOUN",
	)
	stemmer, err := ingest.NewSnowballStemmer("en")
	if err != nil {
		t.Fatal(err)
	}
	e, err := candidate.NewPatternExtractor(candidate.EnglishNounPhrase, 0, candidate.Annotator{Stemmer: stemmer})
	if err != nil {
		t.Fatal(err)
	}
	units, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	groups, err := cluster.NewHACClusterer(cluster.DefaultThreshold).Cluster(context.Background(), doc, units)
	if err != nil {
		t.Fatal(err)
	}
	return doc, groups
}

func TestTopicRankScenario(t *testing.T) {
	doc, groups := topicScenario(t)
	if len(groups) != 2 {
		t.Fatalf("Expected 2 topics, got %s", cluster.Describe(groups))
	}
	if c := groups[0].CentroidUnit(); c.Form != "neural network" {
		t.Errorf("Expected centroid 'neural network', got %q", c.Form)
	}

	r := TopicRanker(SentenceCount, 0, OrderPosition)
	g, _ := r.Build(doc, groups)
	if g.Len() != 2 || g.EdgeCount() != 1 {
		t.Fatalf("Expected 2 nodes and 1 edge, got %d and %d", g.Len(), g.EdgeCount())
	}
	if w := g.Weight(TopicID(0), TopicID(1)); w != 2 {
		t.Errorf("Expected edge weight 2 (sentences holding both topics), got %f", w)
	}

	scored, err := r.Rank(context.Background(), doc, groups)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("Expected one result per topic, got %d", len(scored))
	}
	if scored[0].Unit.Form != "neural network" || scored[1].Unit.Form != "training data" {
		t.Errorf("Expected tie broken by first position, got %v", rank.Forms(scored))
	}
}

func TestTopicRankFrequencyOrder(t *testing.T) {
	doc, groups := topicScenario(t)
	scored, _ := TopicRanker(SentenceCount, 0, OrderFrequency).Rank(context.Background(), doc, groups)
	if scored[0].Unit.Form != "neural networks" {
		t.Errorf("Expected the most frequent member 'neural networks', got %q", scored[0].Unit.Form)
	}
}

func TestRewriteSkipsOverlaps(t *testing.T) {
	set := candidate.Annotator{}.NewSet()
	_ = set.Add("", []string{"neural", "network"}, []string{"ADJ", "NOUN"}, 0, 0)
	_ = set.Add("", []string{"network"}, []string{"NOUN"}, 0, 1)
	groups, _ := cluster.FakeClusterer{}.Cluster(context.Background(), nil, set.Units())

	out := rewrite(groups, []document.Sentence{tagged("neural/ADJ network/NOUN")})
	if out[0].Words[0] != TopicID(0) || out[0].Tags[0] != TagTopic {
		t.Errorf("Expected the longer occurrence to win, got %v", out[0].Words)
	}
	if out[0].Tags[1] != "" {
		t.Errorf("Covered token should be blanked, got %q", out[0].Tags[1])
	}
}
