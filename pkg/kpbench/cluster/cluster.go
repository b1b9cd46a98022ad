package cluster

import (
	"context"
	"fmt"

	"github.com/cognicore/kpbench/pkg/kpbench/candidate"
	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
)

// TopicGroup is an ordered set of candidates with a designated centroid.
type TopicGroup struct {
	Members  []*candidate.TextualUnit `json:"members"`
	Centroid int                      `json:"centroid"` // index into Members, -1 when unset
}

// NewTopicGroup creates an empty group.
func NewTopicGroup() *TopicGroup {
	return &TopicGroup{Centroid: -1}
}

// Add appends a member. Adding a unit already in the group is a
// ClusterError.
func (g *TopicGroup) Add(u *candidate.TextualUnit) error {
	if g.indexOf(u.Key()) >= 0 {
		return &internalerr.ClusterError{Form: u.Form, Reason: "duplicate member"}
	}
	g.Members = append(g.Members, u)
	return nil
}

// SetCentroid designates a member as centroid. A unit outside the group is
// a ClusterError.
func (g *TopicGroup) SetCentroid(u *candidate.TextualUnit) error {
	i := g.indexOf(u.Key())
	if i < 0 {
		return &internalerr.ClusterError{Form: u.Form, Reason: "centroid is not a member"}
	}
	g.Centroid = i
	return nil
}

// CentroidUnit returns the centroid, or nil when unset.
func (g *TopicGroup) CentroidUnit() *candidate.TextualUnit {
	if g.Centroid < 0 || g.Centroid >= len(g.Members) {
		return nil
	}
	return g.Members[g.Centroid]
}

// Contains reports whether a unit with the key is a member.
func (g *TopicGroup) Contains(key string) bool {
	return g.indexOf(key) >= 0
}

// Len returns the number of members.
func (g *TopicGroup) Len() int { return len(g.Members) }

// First returns the member occurring first in the text.
func (g *TopicGroup) First() *candidate.TextualUnit {
	var best *candidate.TextualUnit
	var bestOcc candidate.Occurrence
	for _, m := range g.Members {
		occ, ok := m.First()
		if !ok {
			continue
		}
		if best == nil || candidate.Before(occ, bestOcc) {
			best, bestOcc = m, occ
		}
	}
	if best == nil && len(g.Members) > 0 {
		return g.Members[0]
	}
	return best
}

// Frequency returns the total number of member occurrences.
func (g *TopicGroup) Frequency() int {
	n := 0
	for _, m := range g.Members {
		n += m.Frequency()
	}
	return n
}

func (g *TopicGroup) indexOf(key string) int {
	for i, m := range g.Members {
		if m.Key() == key {
			return i
		}
	}
	return -1
}

// String lists member forms.
func (g *TopicGroup) String() string {
	forms := make([]string, len(g.Members))
	for i, m := range g.Members {
		forms[i] = m.Form
	}
	return fmt.Sprintf("%v", forms)
}

// Clusterer partitions candidates into topic groups.
type Clusterer interface {
	Cluster(ctx context.Context, doc *document.Document, units []*candidate.TextualUnit) ([]*TopicGroup, error)
}

// Units flattens groups into their members, in group order.
func Units(groups []*TopicGroup) []*candidate.TextualUnit {
	var out []*candidate.TextualUnit
	for _, g := range groups {
		out = append(out, g.Members...)
	}
	return out
}

// distinct keeps the first unit of every identity. A repeated candidate
// would be a duplicate member, so it is skipped instead of failing the
// document.
func distinct(units []*candidate.TextualUnit) []*candidate.TextualUnit {
	seen := make(map[string]bool, len(units))
	out := make([]*candidate.TextualUnit, 0, len(units))
	for _, u := range units {
		if k := u.Key(); !seen[k] {
			seen[k] = true
			out = append(out, u)
		}
	}
	return out
}

// FakeClusterer puts every candidate in its own group.
type FakeClusterer struct{}

// Cluster implements Clusterer.
func (FakeClusterer) Cluster(ctx context.Context, _ *document.Document, units []*candidate.TextualUnit) ([]*TopicGroup, error) {
	units = distinct(units)
	groups := make([]*TopicGroup, 0, len(units))
	for _, u := range units {
		g := NewTopicGroup()
		if err := g.Add(u); err != nil {
			return nil, err
		}
		if err := g.SetCentroid(u); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, ctx.Err()
}
