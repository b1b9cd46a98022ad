package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cognicore/kpbench/pkg/kpbench/cache"
	"github.com/cognicore/kpbench/pkg/kpbench/candidate"
	"github.com/cognicore/kpbench/pkg/kpbench/cluster"
	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/eval"
	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
	"github.com/cognicore/kpbench/pkg/kpbench/rank"
	"github.com/cognicore/kpbench/pkg/kpbench/selector"
	"github.com/cognicore/kpbench/pkg/kpbench/store"
	"github.com/cognicore/kpbench/pkg/kpbench/workpool"
)

// Builder turns a document file into a pre-processed Document.
type Builder interface {
	Process(ctx context.Context, path, corpus, language, encoding string) (*document.Document, error)
}

// Pipeline runs one configured method over the test documents of a corpus.
// Each document goes through builder, extractor, clusterer, ranker and
// selector in sequence; documents are processed in parallel by Pool.
type Pipeline struct {
	RunID  string
	Name   string
	Corpus *document.Corpus

	Builder   Builder
	Extractor candidate.Extractor
	Clusterer cluster.Clusterer
	Ranker    rank.Ranker
	Selector  selector.Selector

	Consumers  []Consumer
	Evaluators []*eval.Evaluator

	Stages Stages
	// Cache is optional; without it lazy stages fail on every document.
	Cache *cache.Cache
	Pool  *workpool.Pool
	// Store records the run, its failures and its measures when set.
	Store store.Store
	// Config is the rendered configuration kept with the run record.
	Config string

	logger *slog.Logger
	ids    *idGenerator
}

// New creates a pipeline with one group per candidate, no selection
// and the default pool.
func New(name string, corpus *document.Corpus, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Name:      name,
		Corpus:    corpus,
		Clusterer: cluster.FakeClusterer{},
		Selector:  selector.Whole{},
		Stages:    DefaultStages(),
		Pool:      workpool.New(workpool.DefaultSize),
		logger:    logger,
		ids:       newIDGenerator(),
	}
}

// Failure is the record of a document the run could not process.
type Failure struct {
	ID    string    `json:"id"`
	DocID string    `json:"document"`
	Stage string    `json:"stage"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

// Report summarises a run.
type Report struct {
	RunID       string        `json:"run_id"`
	Name        string        `json:"name"`
	Corpus      string        `json:"corpus"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Documents   int           `json:"documents"`
	Processed   int           `json:"processed"`
	Failed      int           `json:"failed"`
	Failures    []Failure     `json:"failures"`
	Evaluations []eval.Report `json:"evaluations"`
}

// Validate checks that every non-lazy stage has a component.
func (p *Pipeline) Validate() error {
	if p.Corpus == nil {
		return internalerr.Configf("corpus_builder", "run %q has no corpus", p.Name)
	}
	if p.Name == "" {
		return internalerr.Configf("name", "run has no name")
	}
	missing := func(stage string, s Stage, absent bool) error {
		if absent && !s.Lazy {
			return internalerr.Configf(stage, "run %q has no component", p.Name)
		}
		return nil
	}
	checks := []error{
		missing(StageBuilder, p.Stages.Builder, p.Builder == nil),
		missing(StageExtractor, p.Stages.Extractor, p.Extractor == nil),
		missing(StageClusterer, p.Stages.Clusterer, p.Clusterer == nil),
		missing(StageRanker, p.Stages.Ranker, p.Ranker == nil),
		missing(StageSelector, p.Stages.Selector, p.Selector == nil),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// Run processes every test document. Per-document errors become failure
// records and the run goes on; configuration, preparation and cancellation
// errors abort it.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.ids == nil {
		p.ids = newIDGenerator()
	}
	if p.Pool == nil {
		p.Pool = workpool.New(workpool.DefaultSize)
	}
	if p.RunID == "" {
		p.RunID = p.ids.next()
	}

	rep := &Report{
		RunID:     p.RunID,
		Name:      p.Name,
		Corpus:    p.Corpus.Name,
		StartedAt: time.Now().UTC(),
		Documents: len(p.Corpus.Test),
	}
	p.logger.Info("run started", "run", p.Name, "id", p.RunID, "corpus", p.Corpus.Name,
		"documents", rep.Documents, "workers", p.Pool.Size())
	if err := p.saveRun(ctx, rep); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}

	if err := p.prepare(ctx); err != nil {
		return nil, fmt.Errorf("prepare %s: %w", p.Name, err)
	}

	results, err := workpool.Map(ctx, p.Pool, p.Corpus.Test, p.process)
	if err != nil {
		return nil, err
	}
	for i, r := range results {
		if r.Err == nil {
			rep.Processed++
			continue
		}
		f := Failure{
			ID:    p.ids.next(),
			DocID: p.docID(p.Corpus.Test[i]),
			Stage: stageOf(r.Err),
			Error: r.Err.Error(),
			At:    time.Now().UTC(),
		}
		if f.Stage == "" {
			f.Stage = "worker"
		}
		p.logger.Warn("document failed", "doc", f.DocID, "component", f.Stage, "err", r.Err)
		rep.Failures = append(rep.Failures, f)
	}
	rep.Failed = len(rep.Failures)
	for _, e := range p.Evaluators {
		rep.Evaluations = append(rep.Evaluations, e.Report())
	}
	rep.FinishedAt = time.Now().UTC()

	if err := p.persist(ctx, rep); err != nil {
		return rep, fmt.Errorf("record run: %w", err)
	}
	p.logger.Info("run finished", "run", p.Name, "id", p.RunID, "processed", rep.Processed,
		"failed", rep.Failed, "elapsed", rep.FinishedAt.Sub(rep.StartedAt))
	return rep, nil
}

func (p *Pipeline) docID(path string) string {
	return document.ID(p.Corpus.Name, document.Name(path))
}

// prepare trains the corpus-aware components on the training documents
// before any test document is scheduled.
func (p *Pipeline) prepare(ctx context.Context) error {
	extractor, _ := p.Extractor.(candidate.CorpusAware)
	if p.Stages.Extractor.Lazy {
		extractor = nil
	}
	ranker, _ := p.Ranker.(rank.CorpusAware)
	if p.Stages.Ranker.Lazy {
		ranker = nil
	}
	if extractor == nil && ranker == nil {
		return nil
	}

	results, err := workpool.Map(ctx, p.Pool, p.Corpus.Train, p.build)
	if err != nil {
		return err
	}
	train := make([]*document.Document, 0, len(results))
	for i, r := range results {
		if r.Err != nil {
			p.logger.Warn("training document skipped", "doc", p.docID(p.Corpus.Train[i]), "err", r.Err)
			continue
		}
		train = append(train, r.Value)
	}
	p.logger.Info("preparing components", "run", p.Name, "train", len(train))

	if extractor != nil {
		if err := extractor.Prepare(ctx, train); err != nil {
			return &StageError{Stage: StageExtractor, Err: err}
		}
	}
	if ranker != nil {
		if err := ranker.Prepare(ctx, p.Corpus, train); err != nil {
			return &StageError{Stage: StageRanker, Err: err}
		}
	}
	return nil
}

// process runs the whole pipeline on one document and hands the selection
// to the consumers.
func (p *Pipeline) process(ctx context.Context, path string) (string, error) {
	doc, err := p.build(ctx, path)
	if err != nil {
		return "", err
	}

	units, err := step(ctx, p, p.Stages.Extractor, StageExtractor, doc.ID,
		func() ([]*candidate.TextualUnit, error) { return p.Extractor.Extract(ctx, doc) },
		debugUnits)
	if err != nil {
		return doc.ID, err
	}

	groups, err := step(ctx, p, p.Stages.Clusterer, StageClusterer, doc.ID,
		func() ([]*cluster.TopicGroup, error) { return p.Clusterer.Cluster(ctx, doc, units) },
		debugGroups)
	if err != nil {
		return doc.ID, err
	}

	ranked, err := step(ctx, p, p.Stages.Ranker, StageRanker, doc.ID,
		func() ([]rank.Scored, error) { return p.Ranker.Rank(ctx, doc, groups) },
		debugScored)
	if err != nil {
		return doc.ID, err
	}

	selected, err := step(ctx, p, p.Stages.Selector, StageSelector, doc.ID,
		func() ([]rank.Scored, error) { return p.Selector.Select(ranked, units), nil },
		debugScored)
	if err != nil {
		return doc.ID, err
	}

	for _, c := range p.Consumers {
		if err := c.Consume(ctx, doc, selected); err != nil {
			return doc.ID, &StageError{Stage: StageConsumer, DocID: doc.ID, Err: err}
		}
	}
	p.logger.Debug("document processed", "doc", doc.ID, "candidates", len(units),
		"topics", len(groups), "keyphrases", len(selected))
	return doc.ID, nil
}

// build pre-processes a file, through the shared cache when available.
func (p *Pipeline) build(ctx context.Context, path string) (*document.Document, error) {
	id := p.docID(path)
	var built *document.Document
	packed, err := step(ctx, p, p.Stages.Builder, StageBuilder, id,
		func() (document.Packed, error) {
			doc, err := p.Builder.Process(ctx, path, p.Corpus.Name, p.Corpus.Language, p.Corpus.Encoding)
			if err != nil {
				return document.Packed{}, err
			}
			built = doc
			return doc.Pack(document.DefaultSeparator), nil
		},
		func(document.Packed) string { return debugDocument(built) })
	if err != nil {
		return nil, err
	}
	if built != nil {
		return built, nil
	}
	doc, err := packed.Unpack()
	if err != nil {
		return nil, &StageError{Stage: StageBuilder, DocID: id, Err: err}
	}
	return doc, nil
}

// step produces the output of one stage for a document. Lazy stages load
// it from the cache. Other stages reuse a valid cache entry or compute and
// store it; a corrupt entry is recomputed.
func step[T any](ctx context.Context, p *Pipeline, s Stage, name, docID string, compute func() (T, error), debug func(T) string) (T, error) {
	var out T
	if err := ctx.Err(); err != nil {
		return out, err
	}
	c := p.cacheFor(s)
	if s.Lazy {
		if err := s.Load(c, docID, &out); err != nil {
			return out, &StageError{Stage: name, DocID: docID, Err: err}
		}
		return out, nil
	}

	if c != nil {
		var cached T
		if err := c.Get(s.Component, docID, &cached); err == nil {
			return cached, nil
		}
	}
	out, err := compute()
	if err != nil {
		return out, &StageError{Stage: name, DocID: docID, Err: err}
	}
	if c != nil {
		if err := c.Put(s.Component, docID, out, debug(out)); err != nil {
			p.logger.Warn("cache store failed", "component", s.Component, "doc", docID, "err", err)
		}
	}
	return out, nil
}

func (p *Pipeline) cacheFor(s Stage) *cache.Cache {
	if p.Cache == nil {
		return nil
	}
	if s.Shared {
		return p.Cache.Sub(cache.SharedNamespace)
	}
	return p.Cache.Sub(p.Name)
}

func (p *Pipeline) saveRun(ctx context.Context, rep *Report) error {
	if p.Store == nil {
		return nil
	}
	return p.Store.UpsertRun(ctx, store.Run{
		ID:         rep.RunID,
		Name:       rep.Name,
		Corpus:     rep.Corpus,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		Processed:  rep.Processed,
		Failed:     rep.Failed,
		Config:     p.Config,
	})
}

// persist records the finished run with its failures and the measures of
// every evaluator, per document and averaged.
func (p *Pipeline) persist(ctx context.Context, rep *Report) error {
	if p.Store == nil {
		return nil
	}
	for _, f := range rep.Failures {
		err := p.Store.AddFailure(ctx, store.Failure{
			ID: f.ID, RunID: rep.RunID, DocID: f.DocID, Stage: f.Stage, Error: f.Error, At: f.At,
		})
		if err != nil {
			return err
		}
	}

	byDoc := make(map[string][]store.Measure)
	for _, ev := range rep.Evaluations {
		for _, r := range ev.Results {
			id := document.ID(rep.Corpus, r.Document)
			byDoc[id] = append(byDoc[id], measures(ev.Evaluator, r.Measures)...)
		}
		byDoc[""] = append(byDoc[""], measures(ev.Evaluator, ev.Averages)...)
	}
	ids := make([]string, 0, len(byDoc))
	for id := range byDoc {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := p.Store.PutMeasures(ctx, rep.RunID, id, byDoc[id]); err != nil {
			return err
		}
	}
	return p.saveRun(ctx, rep)
}

func measures(evaluator string, ms []eval.Measures) []store.Measure {
	out := make([]store.Measure, len(ms))
	for i, m := range ms {
		out[i] = store.Measure{
			Evaluator: evaluator,
			Cutoff:    m.Cutoff,
			Precision: m.Precision,
			Recall:    m.Recall,
			F1:        m.F1,
			AP:        m.AP,
		}
	}
	return out
}
