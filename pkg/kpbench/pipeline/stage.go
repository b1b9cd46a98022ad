package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cognicore/kpbench/pkg/kpbench/cache"
	"github.com/cognicore/kpbench/pkg/kpbench/candidate"
	"github.com/cognicore/kpbench/pkg/kpbench/cluster"
	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
	"github.com/cognicore/kpbench/pkg/kpbench/rank"
)

// Stage names, also used in failure records.
const (
	StageBuilder   = "document_builder"
	StageExtractor = "candidate_extractor"
	StageClusterer = "candidate_clusterer"
	StageRanker    = "ranker"
	StageSelector  = "selector"
	StageConsumer  = "keyphrase_consumers"
)

// Stage describes how one component of a run uses the cache.
type Stage struct {
	// Component names the cache directory of the component's entries.
	Component string
	// Lazy components never compute: they load their output from the cache.
	Lazy bool
	// Shared entries live in the shared namespace instead of the run's.
	Shared bool
}

// Stages holds the cache settings of every component of a run.
type Stages struct {
	Builder   Stage
	Extractor Stage
	Clusterer Stage
	Ranker    Stage
	Selector  Stage
}

// DefaultStages caches pre-processed documents in the shared namespace and
// everything else per run.
func DefaultStages() Stages {
	return Stages{
		Builder:   Stage{Component: StageBuilder, Shared: true},
		Extractor: Stage{Component: StageExtractor},
		Clusterer: Stage{Component: StageClusterer},
		Ranker:    Stage{Component: StageRanker},
		Selector:  Stage{Component: StageSelector},
	}
}

// Load reads the cached output of the stage for docID. Only lazy stages may
// load; a miss or a corrupt entry is a CacheError.
func (s Stage) Load(c *cache.Cache, docID string, v any) error {
	if !s.Lazy {
		return &internalerr.LazyComponentError{Component: s.Component}
	}
	if c == nil {
		return &internalerr.CacheError{Component: s.Component, DocID: docID, Err: internalerr.ErrCacheMiss}
	}
	return c.Get(s.Component, docID, v)
}

// StageError is a document failure attributed to a stage.
type StageError struct {
	Stage string
	DocID string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.DocID, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

func debugDocument(doc *document.Document) string {
	var b strings.Builder
	for _, s := range doc.FullTextSentences() {
		b.WriteString(document.PackSentence(s, "/"))
		b.WriteByte('\n')
	}
	return b.String()
}

func debugUnits(units []*candidate.TextualUnit) string {
	var b strings.Builder
	for _, u := range units {
		fmt.Fprintf(&b, "%s\t%s\t%d\n", u.Form, strings.Join(u.Tags, " "), u.Frequency())
	}
	return b.String()
}

func debugGroups(groups []*cluster.TopicGroup) string {
	return cluster.Describe(groups)
}

func debugScored(scored []rank.Scored) string {
	var b strings.Builder
	for _, s := range scored {
		fmt.Fprintf(&b, "%.6f\t%s\n", s.Score, s.Unit.Form)
	}
	return b.String()
}
