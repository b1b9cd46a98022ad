package cluster

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cognicore/kpbench/pkg/kpbench/candidate"
	"github.com/cognicore/kpbench/pkg/kpbench/ingest"
	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

func units(t *testing.T, stemmer ingest.Stemmer, forms ...string) []*candidate.TextualUnit {
	t.Helper()
	set := candidate.Annotator{Stemmer: stemmer}.NewSet()
	for i, f := range forms {
		words := strings.Fields(f)
		tags := make([]string, len(words))
		for j := range tags {
			tags[j] = "NOUN"
		}
		if err := set.Add("", words, tags, i, 0); err != nil {
			t.Fatal(err)
		}
	}
	return set.Units()
}

func TestJaccard(t *testing.T) {
	if got := Jaccard([]string{"a", "b"}, []string{"b", "c"}); got != 1.0/3.0 {
		t.Errorf("Jaccard = %f, want 1/3", got)
	}
	if Jaccard(nil, nil) != 1.0 {
		t.Error("Two empty sets are identical")
	}
	if Jaccard([]string{"a"}, nil) != 0 {
		t.Error("Disjoint sets should give 0")
	}
}

func TestTopicGroupErrors(t *testing.T) {
	us := units(t, nil, "graph", "model")
	g := NewTopicGroup()
	if err := g.Add(us[0]); err != nil {
		t.Fatal(err)
	}

	err := g.Add(us[0])
	var clusterErr *internalerr.ClusterError
	if !errors.As(err, &clusterErr) {
		t.Errorf("Expected ClusterError on duplicate, got %v", err)
	}
	if err := g.SetCentroid(us[1]); !errors.As(err, &clusterErr) {
		t.Errorf("Expected ClusterError for foreign centroid, got %v", err)
	}
	if g.CentroidUnit() != nil {
		t.Error("Centroid should still be unset")
	}
	if err := g.SetCentroid(us[0]); err != nil || g.CentroidUnit() != us[0] {
		t.Errorf("SetCentroid failed: %v", err)
	}
}

func TestFakeClusterer(t *testing.T) {
	us := units(t, nil, "graph", "model", "graph model")
	groups, err := FakeClusterer{}.Cluster(context.Background(), nil, us)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 3 {
		t.Fatalf("Expected 3 singleton groups, got %d", len(groups))
	}
	for i, g := range groups {
		if g.Len() != 1 || g.CentroidUnit() != us[i] {
			t.Errorf("Group %d is not a singleton of its candidate", i)
		}
	}
	if len(Units(groups)) != 3 {
		t.Error("Units should flatten all members")
	}
}

func TestHACStemOverlap(t *testing.T) {
	stemmer, err := ingest.NewSnowballStemmer("en")
	if err != nil {
		t.Fatal(err)
	}
	us := units(t, stemmer, "neural network", "neural networks", "training data")

	groups, err := NewHACClusterer(DefaultThreshold).Cluster(context.Background(), nil, us)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("Expected 2 clusters, got %s", Describe(groups))
	}
	if groups[0].Len() != 2 || groups[1].Len() != 1 {
		t.Errorf("Expected {A,B} and {C}, got %s", Describe(groups))
	}
	if c := groups[0].CentroidUnit(); c.Form != "neural network" {
		t.Errorf("Expected centroid 'neural network', got %q", c.Form)
	}
	if groups[1].Members[0].Form != "training data" {
		t.Errorf("Unexpected second cluster %s", groups[1])
	}
}

func TestHACThreshold(t *testing.T) {
	// "graph ranking" and "ranking model" share one of three stems (1/3).
	us := units(t, nil, "graph ranking", "ranking model")

	groups, _ := NewHACClusterer(0.25).Cluster(context.Background(), nil, us)
	if len(groups) != 1 {
		t.Errorf("Similarity 1/3 should merge at 0.25, got %d groups", len(groups))
	}
	groups, _ = NewHACClusterer(0.5).Cluster(context.Background(), nil, us)
	if len(groups) != 2 {
		t.Errorf("Similarity 1/3 should not merge at 0.5, got %d groups", len(groups))
	}
}

func TestHACAverageLinkage(t *testing.T) {
	// a-b = 1/3, b-c = 1/3, a-c = 0: average linkage of {a,b} to c is 1/6.
	us := units(t, nil, "x y", "y z", "z w")

	groups, _ := NewHACClusterer(0.25).Cluster(context.Background(), nil, us)
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %s", Describe(groups))
	}

	h := NewHACClusterer(0.25)
	h.Linkage = LinkageSingle
	groups, _ = h.Cluster(context.Background(), nil, us)
	if len(groups) != 1 {
		t.Errorf("Single linkage should chain all three, got %s", Describe(groups))
	}
}

func TestHACUnknownLinkage(t *testing.T) {
	h := NewHACClusterer(0.25)
	h.Linkage = "ward"
	_, err := h.Cluster(context.Background(), nil, units(t, nil, "a"))
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected configuration error, got %v", err)
	}
}

func TestCentroidTieBreak(t *testing.T) {
	us := units(t, nil, "deep neural model", "neural model", "deep model")
	pairwise := [][]float64{
		{0, 0.5, 0.5},
		{0.5, 0, 0.5},
		{0.5, 0.5, 0},
	}
	if got := centroid([]int{0, 1, 2}, pairwise, us); got != 2 {
		t.Errorf("Expected the shortest then smallest form, got %q", us[got].Form)
	}
}

func TestRepeatedCandidateIsSkipped(t *testing.T) {
	us := units(t, nil, "graph model", "graph")
	us = append(us, us[0])

	for name, c := range map[string]Clusterer{"fake": FakeClusterer{}, "hac": NewHACClusterer(DefaultThreshold)} {
		groups, err := c.Cluster(context.Background(), nil, us)
		if err != nil {
			t.Errorf("%s: expected the repeated candidate to be skipped, got %v", name, err)
			continue
		}
		if n := len(Units(groups)); n != 2 {
			t.Errorf("%s: expected 2 members, got %d", name, n)
		}
	}
}

func TestDescribeUnsetCentroid(t *testing.T) {
	g := NewTopicGroup()
	if err := g.Add(units(t, nil, "graph")[0]); err != nil {
		t.Fatal(err)
	}
	if got := Describe([]*TopicGroup{g}); !strings.Contains(got, `centroid="-"`) {
		t.Errorf("Expected an unset centroid marker, got %q", got)
	}
}
