package cluster

import (
	"context"
	"fmt"
	"sort"

	"github.com/cognicore/kpbench/pkg/kpbench/candidate"
	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

// Linkage methods.
const (
	LinkageAverage  = "average"
	LinkageSingle   = "single"
	LinkageComplete = "complete"
)

// DefaultThreshold is the minimum similarity for two clusters to merge.
const DefaultThreshold = 0.25

// Similarity scores two candidates in [0, 1].
type Similarity func(a, b *candidate.TextualUnit) float64

// StemOverlap is the Jaccard similarity of the stem sets of two candidates.
func StemOverlap(a, b *candidate.TextualUnit) float64 {
	return Jaccard(a.Stems, b.Stems)
}

// Jaccard calculates Jaccard similarity between two string slices
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	aSet := make(map[string]struct{}, len(a))
	for _, s := range a {
		aSet[s] = struct{}{}
	}

	bSet := make(map[string]struct{}, len(b))
	for _, s := range b {
		bSet[s] = struct{}{}
	}

	intersection := 0
	for s := range aSet {
		if _, ok := bSet[s]; ok {
			intersection++
		}
	}

	union := len(aSet) + len(bSet) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

// HACClusterer groups candidates by agglomerative hierarchical clustering.
// The two most similar clusters are merged while their similarity is at
// least Threshold; ties go to the lowest cluster indices.
type HACClusterer struct {
	Threshold  float64
	Linkage    string
	Similarity Similarity
}

// NewHACClusterer creates a clusterer with stem-overlap similarity and
// average linkage.
func NewHACClusterer(threshold float64) *HACClusterer {
	return &HACClusterer{Threshold: threshold, Linkage: LinkageAverage, Similarity: StemOverlap}
}

// Cluster implements Clusterer. Members keep the input order and groups are
// ordered by their first member.
func (h *HACClusterer) Cluster(ctx context.Context, _ *document.Document, units []*candidate.TextualUnit) ([]*TopicGroup, error) {
	units = distinct(units)
	n := len(units)
	if n == 0 {
		return nil, nil
	}
	sim := h.Similarity
	if sim == nil {
		sim = StemOverlap
	}
	update, err := linkageUpdate(h.Linkage)
	if err != nil {
		return nil, err
	}

	pairwise := make([][]float64, n)
	for i := range pairwise {
		pairwise[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := sim(units[i], units[j])
			pairwise[i][j], pairwise[j][i] = s, s
		}
	}

	// members[i] is nil once cluster i has been merged away.
	members := make([][]int, n)
	for i := range members {
		members[i] = []int{i}
	}
	linkage := make([][]float64, n)
	for i := range linkage {
		linkage[i] = append([]float64(nil), pairwise[i]...)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bi, bj, best := -1, -1, -1.0
		for i := 0; i < n; i++ {
			if members[i] == nil {
				continue
			}
			for j := i + 1; j < n; j++ {
				if members[j] == nil {
					continue
				}
				if linkage[i][j] > best {
					bi, bj, best = i, j, linkage[i][j]
				}
			}
		}
		if bi < 0 || best < h.Threshold {
			break
		}

		for k := 0; k < n; k++ {
			if members[k] == nil || k == bi || k == bj {
				continue
			}
			s := update(linkage[bi][k], linkage[bj][k], len(members[bi]), len(members[bj]))
			linkage[bi][k], linkage[k][bi] = s, s
		}
		members[bi] = append(members[bi], members[bj]...)
		members[bj] = nil
	}

	var groups []*TopicGroup
	for _, idx := range members {
		if idx == nil {
			continue
		}
		sort.Ints(idx)
		g := NewTopicGroup()
		for _, i := range idx {
			if err := g.Add(units[i]); err != nil {
				return nil, err
			}
		}
		if err := g.SetCentroid(units[centroid(idx, pairwise, units)]); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return indexOf(units, groups[a].Members[0]) < indexOf(units, groups[b].Members[0])
	})
	return groups, nil
}

func indexOf(units []*candidate.TextualUnit, u *candidate.TextualUnit) int {
	for i, v := range units {
		if v == u {
			return i
		}
	}
	return -1
}

type linkageFunc func(si, sj float64, ni, nj int) float64

func linkageUpdate(name string) (linkageFunc, error) {
	switch name {
	case "", LinkageAverage:
		return func(si, sj float64, ni, nj int) float64 {
			return (float64(ni)*si + float64(nj)*sj) / float64(ni+nj)
		}, nil
	case LinkageSingle:
		return func(si, sj float64, _, _ int) float64 { return max(si, sj) }, nil
	case LinkageComplete:
		return func(si, sj float64, _, _ int) float64 { return min(si, sj) }, nil
	}
	return nil, internalerr.Configf("clusterer", "unknown linkage %q", name)
}

// centroid returns the member with the highest average similarity to the
// other members; ties go to the shorter form, then the smaller one.
func centroid(idx []int, pairwise [][]float64, units []*candidate.TextualUnit) int {
	best, bestAvg := -1, -1.0
	for _, i := range idx {
		avg := 0.0
		if len(idx) > 1 {
			for _, j := range idx {
				if i != j {
					avg += pairwise[i][j]
				}
			}
			avg /= float64(len(idx) - 1)
		}
		switch {
		case best < 0 || avg > bestAvg:
			best, bestAvg = i, avg
		case avg == bestAvg && shorter(units[i].Form, units[best].Form):
			best = i
		}
	}
	return best
}

func shorter(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// Describe renders groups for debugging.
func Describe(groups []*TopicGroup) string {
	out := ""
	for i, g := range groups {
		centroid := "-"
		if u := g.CentroidUnit(); u != nil {
			centroid = u.Form
		}
		out += fmt.Sprintf("%d: %s centroid=%q\n", i, g, centroid)
	}
	return out
}
