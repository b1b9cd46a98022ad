package store

import (
	"context"
	"time"

	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/rank"
)

// Store is the main interface for persisting benchmark results
type Store interface {
	Close() error

	// Runs
	UpsertRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, bool, error)
	ListRuns(ctx context.Context) ([]Run, error)

	// Per-document results
	PutKeyphrases(ctx context.Context, runID, docID string, kps []Keyphrase) error
	GetKeyphrases(ctx context.Context, runID, docID string) ([]Keyphrase, error)
	PutMeasures(ctx context.Context, runID, docID string, ms []Measure) error
	GetMeasures(ctx context.Context, runID, docID string) ([]Measure, error)

	// Failures
	AddFailure(ctx context.Context, f Failure) error
	Failures(ctx context.Context, runID string) ([]Failure, error)
}

// Run represents one benchmark run
type Run struct {
	ID         string
	Name       string
	Corpus     string
	StartedAt  time.Time
	FinishedAt time.Time
	Processed  int
	Failed     int
	Config     string // YAML of the run configuration
}

// Keyphrase is one selected keyphrase of a document
type Keyphrase struct {
	Rank  int
	Form  string
	Score float64
}

// Measure is one evaluation score. An empty document ID holds the run
// averages.
type Measure struct {
	Evaluator string
	Cutoff    int
	Precision float64
	Recall    float64
	F1        float64
	AP        float64
}

// Failure records a document the pipeline could not process
type Failure struct {
	ID    string
	RunID string
	DocID string
	Stage string
	Error string
	At    time.Time
}

// Keyphrases converts selected candidates into stored keyphrases.
func Keyphrases(selected []rank.Scored) []Keyphrase {
	out := make([]Keyphrase, len(selected))
	for i, s := range selected {
		out[i] = Keyphrase{Rank: i + 1, Form: s.Unit.Form, Score: s.Score}
	}
	return out
}

// Consumer writes the selected keyphrases of every document of a run.
type Consumer struct {
	Store Store
	RunID string
}

// Consume stores the selection of doc.
func (c Consumer) Consume(ctx context.Context, doc *document.Document, selected []rank.Scored) error {
	return c.Store.PutKeyphrases(ctx, c.RunID, doc.ID, Keyphrases(selected))
}
