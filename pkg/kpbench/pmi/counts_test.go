package pmi

import (
	"math"
	"testing"
)

func TestCounterBasic(t *testing.T) {
	counter := NewCounter()
	counter.AddDocument([]string{"keyphrase extraction", "graph", "corpus"})

	if counter.TotalDocs() != 1 {
		t.Errorf("Expected 1 document, got %d", counter.TotalDocs())
	}
	if counter.Count("graph") != 1 {
		t.Error("Term 'graph' should have count 1")
	}
}

func TestCounterCanonicalOrdering(t *testing.T) {
	counter := NewCounter()
	counter.AddDocument([]string{"zebra", "apple"})

	if counter.PairCount("zebra", "apple") != counter.PairCount("apple", "zebra") {
		t.Error("Pair count should be symmetric")
	}
	if counter.PairCount("apple", "zebra") != 1 {
		t.Errorf("Expected count 1, got %d", counter.PairCount("apple", "zebra"))
	}
	if Pair("zebra", "apple") != (TermPair{T1: "apple", T2: "zebra"}) {
		t.Error("Pair should order terms")
	}
}

func TestCounterMultipleDocuments(t *testing.T) {
	counter := NewCounter()
	for _, doc := range [][]string{{"a", "b"}, {"a", "c"}, {"b", "c"}, {"a", "b", "c"}} {
		counter.AddDocument(doc)
	}

	if counter.Count("a") != 3 {
		t.Errorf("Term 'a' should appear in 3 docs, got %d", counter.Count("a"))
	}
	if counter.PairCount("a", "b") != 2 {
		t.Errorf("Pair (a,b) should co-occur 2 times, got %d", counter.PairCount("a", "b"))
	}
	if counter.UniquePairs() != 3 {
		t.Errorf("Expected 3 unique pairs, got %d", counter.UniquePairs())
	}
}

func TestCounterDeduplicatesTerms(t *testing.T) {
	counter := NewCounter()
	counter.AddDocument([]string{"graph", "graph", "", "rank"})

	if counter.Count("graph") != 1 {
		t.Errorf("Repeated terms should count once, got %d", counter.Count("graph"))
	}
	if counter.Count("") != 0 {
		t.Error("Empty terms should be ignored")
	}
	if counter.PairCount("graph", "graph") != 0 {
		t.Error("A term should not pair with itself")
	}
}

func TestCounterNeighboursAndPairs(t *testing.T) {
	counter := NewCounter()
	counter.AddDocument([]string{"k1", "k2"})
	counter.AddDocument([]string{"k1", "k3"})

	n := counter.Neighbours("k1")
	if len(n) != 2 || n[0] != "k2" || n[1] != "k3" {
		t.Errorf("Unexpected neighbours %v", n)
	}
	pairs := counter.Pairs()
	if len(pairs) != 2 || pairs[0] != (TermPair{"k1", "k2"}) {
		t.Errorf("Unexpected pairs %v", pairs)
	}
	terms := counter.Terms()
	if len(terms) != 3 || terms[0] != "k1" {
		t.Errorf("Unexpected terms %v", terms)
	}
}

func TestCounterIDF(t *testing.T) {
	counter := NewCounter()
	counter.AddDocument([]string{"common", "rare"})
	counter.AddDocument([]string{"common"})
	counter.AddDocument([]string{"common"})

	if counter.IDF("common") >= counter.IDF("rare") {
		t.Error("Rare terms should have a higher IDF")
	}
	if got, want := counter.IDF("unseen"), math.Log(4)+1; math.Abs(got-want) > 1e-12 {
		t.Errorf("IDF(unseen) = %f, want %f", got, want)
	}
}
