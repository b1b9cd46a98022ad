package rank

import (
	"context"
	"strings"
	"testing"

	"github.com/cognicore/kpbench/pkg/kpbench/candidate"
	"github.com/cognicore/kpbench/pkg/kpbench/cluster"
	"github.com/cognicore/kpbench/pkg/kpbench/document"
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

func docOf(name string, sentences ...string) *document.Document {
	doc := document.New("test", name, "en", "utf-8")
	for _, s := range sentences {
		doc.ContentSentences = append(doc.ContentSentences, tagged(s))
	}
	return doc
}

func extract(t *testing.T, doc *document.Document) []*cluster.TopicGroup {
	t.Helper()
	e, err := candidate.NewPatternExtractor(candidate.EnglishNounPhrase, 0, candidate.Annotator{})
	if err != nil {
		t.Fatal(err)
	}
	units, err := e.Extract(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	groups, err := cluster.FakeClusterer{}.Cluster(context.Background(), doc, units)
	if err != nil {
		t.Fatal(err)
	}
	return groups
}

func TestSortTieBreak(t *testing.T) {
	mk := func(form string) *candidate.TextualUnit {
		return &candidate.TextualUnit{Form: form, Tags: []string{"NOUN"}}
	}
	scored := []Scored{{mk("zeta"), 1}, {mk("alpha"), 1}, {mk("beta"), 2}}
	Sort(scored)

	got := strings.Join(Forms(scored), ",")
	if got != "beta,alpha,zeta" {
		t.Errorf("Expected score then key order, got %s", got)
	}
}

func TestFeatureRankerFirstPosition(t *testing.T) {
	doc := docOf("d", "graphs/NOUN rank/VERB words/NOUN", "topics/NOUN group/VERB words/NOUN")
	r := NewFeatureRanker(FirstPositionWeights, 10, nil)

	scored, err := r.Rank(context.Background(), doc, extract(t, doc))
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	got := strings.Join(Forms(scored), ",")
	if got != "graphs,words,topics" {
		t.Errorf("Expected first-position order, got %s", got)
	}
}

func TestFeatureRankerFrequency(t *testing.T) {
	doc := docOf("d", "graphs/NOUN rank/VERB words/NOUN", "topics/NOUN group/VERB words/NOUN")
	r := NewFeatureRanker(FrequencyWeights, 0, nil)

	scored, _ := r.Rank(context.Background(), doc, extract(t, doc))
	if scored[0].Unit.Form != "words" {
		t.Errorf("Most frequent candidate should rank first, got %s", scored[0].Unit.Form)
	}
}

func TestFeatureRankerTFIDF(t *testing.T) {
	train := []*document.Document{
		docOf("a", "words/NOUN are/VERB common/NOUN"),
		docOf("b", "words/NOUN again/ADV"),
	}
	doc := docOf("d", "graphs/NOUN rank/VERB words/NOUN")

	r := NewFeatureRanker(TFIDFWeights, 0, nil)
	if err := r.Prepare(context.Background(), nil, train); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	scored, _ := r.Rank(context.Background(), doc, extract(t, doc))
	if scored[0].Unit.Form != "graphs" {
		t.Errorf("Rare term should outrank common one, got %v", Forms(scored))
	}
}

func TestScoreBreakdown(t *testing.T) {
	doc := docOf("d", "graph/NOUN ranking/NOUN is/VERB fun/NOUN", "graph/NOUN ranking/NOUN")
	groups := extract(t, doc)
	r := NewFeatureRanker(Weights{TFIDF: 1, Frequency: 1, Position: 1, Spread: 1, Length: 0.05}, 10, nil)

	b := r.ScoreWithBreakdown(doc, groups[0].Members[0])
	if b.Frequency <= 0 || b.Position != 1 || b.Spread <= 0 || b.Length <= 0 {
		t.Errorf("Unexpected breakdown %+v", b)
	}
	expected := b.TFIDF + b.Frequency + b.Position + b.Spread - b.Length
	if b.Total != expected {
		t.Errorf("Total should equal sum of components, got %f, expected %f", b.Total, expected)
	}
}
