package stoplist

import (
	"testing"

	"github.com/cognicore/kpbench/pkg/kpbench/pmi"
)

func TestSuggest(t *testing.T) {
	c := pmi.NewCounter()
	c.AddDocument([]string{"the", "paper", "neural", "network"})
	c.AddDocument([]string{"the", "paper", "neural", "network"})
	c.AddDocument([]string{"the", "paper", "graph", "ranking"})
	c.AddDocument([]string{"the", "paper", "graph", "ranking"})

	stats := CorpusStats(c)
	if len(stats) != 6 {
		t.Fatalf("Expected 6 tokens, got %d", len(stats))
	}

	mgr := NewManager([]string{"the"})
	candidates := mgr.Suggest(stats, DefaultThresholds())
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate, got %+v", candidates)
	}
	if candidates[0].Token != "paper" {
		t.Errorf("Expected paper, got %s", candidates[0].Token)
	}
	if candidates[0].Stats.DFPercent != 100 || candidates[0].Stats.NPMIMax >= 0 {
		t.Errorf("Unexpected stats %+v", candidates[0].Stats)
	}
}

func TestSuggestAssociatedTokens(t *testing.T) {
	c := pmi.NewCounter()
	c.AddDocument([]string{"keyphrase", "extraction"})
	c.AddDocument([]string{"keyphrase", "extraction"})
	c.AddDocument([]string{"keyphrase", "extraction"})
	c.AddDocument([]string{"graph"})

	for _, s := range CorpusStats(c) {
		if s.Token == "keyphrase" && (s.Unpaired || s.NPMIMax <= 0.15) {
			t.Errorf("keyphrase should be strongly associated, got %+v", s)
		}
	}
	if got := NewManager(nil).Suggest(CorpusStats(c), DefaultThresholds()); len(got) != 0 {
		t.Errorf("Associated tokens should not be suggested, got %+v", got)
	}
}

func TestSuggestBootstrap(t *testing.T) {
	c := pmi.NewCounter()
	c.AddDocument([]string{"b", "a"})

	candidates := NewManager(nil).Suggest(CorpusStats(c), Thresholds{})
	if len(candidates) != 2 {
		t.Fatalf("Expected both tokens in a one-document corpus, got %+v", candidates)
	}
	if candidates[0].Token != "a" || candidates[1].Token != "b" {
		t.Errorf("Equal scores should sort by token, got %s, %s", candidates[0].Token, candidates[1].Token)
	}
}

func TestCorpusStatsEmpty(t *testing.T) {
	if stats := CorpusStats(pmi.NewCounter()); stats != nil {
		t.Errorf("Expected no stats, got %+v", stats)
	}
}
