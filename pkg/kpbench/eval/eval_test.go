package eval

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/cognicore/kpbench/pkg/kpbench/candidate"
	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/ingest"
	"github.com/cognicore/kpbench/pkg/kpbench/rank"
	"github.com/cognicore/kpbench/pkg/kpbench/selector"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScenarioPerfectMatch(t *testing.T) {
	refs, err := document.ParseReferences(strings.NewReader("t1\tbrown fox;lazy dog\n"))
	if err != nil {
		t.Fatalf("ParseReferences: %v", err)
	}

	var ranked []rank.Scored
	for i, form := range []string{"brown fox", "lazy dog", "quick brown"} {
		u := &candidate.TextualUnit{Form: form, Tokens: strings.Fields(form), Stems: strings.Fields(form)}
		ranked = append(ranked, rank.Scored{Unit: u, Score: float64(3 - i)})
	}
	selected := selector.UnredundantTopK{K: 2}.Select(ranked, nil)

	e := NewPRFM(refs, Normalizer{})
	doc := document.New("c", "t1", "en", "utf-8")
	if err := e.Consume(context.Background(), doc, selected); err != nil {
		t.Fatal(err)
	}

	for _, m := range e.Averages() {
		if m.Precision != 1 || m.Recall != 1 || m.F1 != 1 {
			t.Errorf("Expected P=R=F1=1 at cut-off %d, got %+v", m.Cutoff, m)
		}
	}
}

func TestScenarioEmptyExtraction(t *testing.T) {
	refs := document.References{"t1": {"brown fox", "lazy dog"}}
	e := NewPRFM(refs, Normalizer{})
	res := e.Evaluate("t1", nil)

	if len(res.Measures) != len(DefaultCutoffs) {
		t.Fatalf("Expected %d cut-offs, got %d", len(DefaultCutoffs), len(res.Measures))
	}
	for _, m := range res.Measures {
		if m.Precision != 0 || m.Recall != 0 || m.F1 != 0 || m.AP != 0 {
			t.Errorf("Expected all zero at cut-off %d, got %+v", m.Cutoff, m)
		}
	}
}

func TestScoreEmptyCases(t *testing.T) {
	m := Score([]string{"a"}, nil, All)
	if m.Precision != 0 || m.Recall != 0 || m.F1 != 0 {
		t.Errorf("Empty references should give zeros, got %+v", m)
	}
	m = Score(nil, nil, All)
	if m.Precision != 0 || m.Recall != 0 || m.F1 != 0 || m.AP != 0 {
		t.Errorf("Both empty should give zeros, got %+v", m)
	}
}

func TestScorePrecisionRecall(t *testing.T) {
	refs := []string{"a", "b", "c", "d"}
	extracted := []string{"a", "x", "b"}

	m := Score(extracted, refs, All)
	if !almost(m.Precision, 2.0/3.0) {
		t.Errorf("Expected precision 2/3, got %f", m.Precision)
	}
	if !almost(m.Recall, 0.5) {
		t.Errorf("Expected recall 1/2, got %f", m.Recall)
	}
	if !almost(m.F1, 2*(2.0/3.0)*0.5/(2.0/3.0+0.5)) {
		t.Errorf("F1 should be the harmonic mean, got %f", m.F1)
	}
	// AP = (1/1)/4 + (2/3)/4
	if !almost(m.AP, 0.25+1.0/6.0) {
		t.Errorf("Unexpected average precision %f", m.AP)
	}

	m = Score(extracted, refs, 1)
	if m.Precision != 1 || !almost(m.Recall, 0.25) {
		t.Errorf("Expected P@1=1 and R@1=1/4, got %+v", m)
	}
}

func TestStemmedComparison(t *testing.T) {
	stemmer, err := ingest.NewSnowballStemmer("en")
	if err != nil {
		t.Fatal(err)
	}
	refs := document.References{"d": {"Neural Networks"}}

	withStems := NewPRF(refs, Normalizer{Stemmer: stemmer})
	if m := withStems.Evaluate("d", []string{"neural network"}).Measures[0]; m.F1 != 1 {
		t.Errorf("Stemmed forms should match, got %+v", m)
	}
	exact := NewPRF(refs, Normalizer{})
	if m := exact.Evaluate("d", []string{"neural network"}).Measures[0]; m.F1 != 0 {
		t.Errorf("Without stemming the forms differ, got %+v", m)
	}
}

func TestMacroAverages(t *testing.T) {
	refs := document.References{"d1": {"a"}, "d2": {"b"}}
	e := NewPRF(refs, Normalizer{})

	var wg sync.WaitGroup
	for _, c := range []struct{ doc, kp string }{{"d1", "a"}, {"d2", "x"}} {
		wg.Add(1)
		go func(doc, kp string) {
			defer wg.Done()
			e.Evaluate(doc, []string{kp})
		}(c.doc, c.kp)
	}
	wg.Wait()

	r := e.Report()
	if r.Documents != 2 {
		t.Fatalf("Expected 2 documents, got %d", r.Documents)
	}
	if avg := r.Averages[0]; avg.Precision != 0.5 || avg.Recall != 0.5 {
		t.Errorf("Expected macro averages of 0.5, got %+v", avg)
	}
	if r.Results[0].Document != "d1" {
		t.Errorf("Results should be ordered by document, got %s", r.Results[0].Document)
	}
}

func TestGroupedCandidateMatchesReference(t *testing.T) {
	doc := document.New("c", "t1", "en", "utf-8")
	for _, line := range []string{
		"large/ADJ language/NOUN model/NOUN",
		"language/NOUN model/NOUN",
		"statistical/ADJ language/NOUN model/NOUN",
	} {
		sent, err := document.UnpackSentence(line, "/")
		if err != nil {
			t.Fatal(err)
		}
		doc.ContentSentences = append(doc.ContentSentences, sent)
	}
	np, err := candidate.NewPatternExtractor(candidate.EnglishNounPhrase, 0, candidate.Annotator{})
	if err != nil {
		t.Fatal(err)
	}
	units, err := candidate.NewClarit96Extractor(np).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	var grouped *candidate.TextualUnit
	for _, u := range units {
		if u.Form == "large language_model" {
			grouped = u
		}
	}
	if grouped == nil {
		t.Fatalf("Expected grouped candidate large language_model")
	}

	refs := document.References{"t1": {"large language model"}}
	e := NewPRF(refs, Normalizer{Tokenizer: ingest.NewTokenizer()})
	if err := e.Consume(context.Background(), doc, []rank.Scored{{Unit: grouped, Score: 1}}); err != nil {
		t.Fatal(err)
	}
	m := e.Averages()[0]
	if m.Precision != 1 || m.Recall != 1 {
		t.Errorf("Expected grouped candidate to match its reference, got %+v", m)
	}
}
