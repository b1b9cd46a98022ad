package stoplist

import (
	"math"
	"sort"

	"github.com/cognicore/kpbench/pkg/kpbench/pmi"
)

// Stats holds the corpus statistics of one token
type Stats struct {
	Token     string
	DF        int64
	DFPercent float64
	IDF       float64
	NPMIMax   float64 // strongest association with any other token
	// Unpaired tokens only co-occur with tokens present in every document,
	// which carries no association.
	Unpaired bool
}

// Candidate is a suggested stop word
type Candidate struct {
	Token string  `yaml:"token"`
	Score float64 `yaml:"score"`
	Stats Stats   `yaml:"-"`
}

// Thresholds defines the criteria of a stop word: frequent in documents and
// weakly associated with any other token.
type Thresholds struct {
	DFPercent float64
	NPMIMax   float64
	// BootstrapDFPercent applies to unpaired tokens, as in a corpus of one
	// document.
	BootstrapDFPercent float64
}

// DefaultThresholds returns the default thresholds. NPMIMax is on the
// NPMI scale [-1, 1].
func DefaultThresholds() Thresholds {
	return Thresholds{
		DFPercent:          50.0,
		NPMIMax:            0.15,
		BootstrapDFPercent: 60.0,
	}
}

// CorpusStats derives per-token stats from document counts.
func CorpusStats(c *pmi.Counter) []Stats {
	if c.TotalDocs() == 0 {
		return nil
	}
	calc := pmi.NewCalculator(0.1)
	npmiMax := make(map[string]float64)
	update := func(t string, v float64) {
		if cur, ok := npmiMax[t]; !ok || v > cur {
			npmiMax[t] = v
		}
	}
	for _, p := range c.Pairs() {
		if c.PairCount(p.T1, p.T2) == c.TotalDocs() {
			continue
		}
		v := calc.PairNPMI(c, p.T1, p.T2)
		update(p.T1, v)
		update(p.T2, v)
	}

	n := float64(c.TotalDocs())
	terms := c.Terms()
	out := make([]Stats, 0, len(terms))
	for _, t := range terms {
		df := c.Count(t)
		best, paired := npmiMax[t]
		out = append(out, Stats{
			Token:     t,
			DF:        df,
			DFPercent: 100 * float64(df) / n,
			IDF:       math.Log(n / (1 + float64(df))),
			NPMIMax:   best,
			Unpaired:  !paired,
		})
	}
	return out
}

// Suggest returns the tokens that look like stop words but are not on the
// list yet, best first.
func (m *Manager) Suggest(stats []Stats, th Thresholds) []Candidate {
	if th.BootstrapDFPercent == 0 {
		th.BootstrapDFPercent = DefaultThresholds().BootstrapDFPercent
	}

	var out []Candidate
	for _, s := range stats {
		if m.IsStop(s.Token) {
			continue
		}
		meets := s.DFPercent > th.DFPercent && s.NPMIMax < th.NPMIMax
		if s.Unpaired {
			meets = s.DFPercent > th.BootstrapDFPercent
		}
		if !meets {
			continue
		}
		out = append(out, Candidate{
			Token: s.Token,
			Score: (s.DFPercent/100 + (1 - s.NPMIMax)) / 2,
			Stats: s,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Token < out[j].Token
	})
	return out
}
