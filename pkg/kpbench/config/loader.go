package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cognicore/kpbench/pkg/kpbench/cache"
	"github.com/cognicore/kpbench/pkg/kpbench/candidate"
	"github.com/cognicore/kpbench/pkg/kpbench/cards"
	"github.com/cognicore/kpbench/pkg/kpbench/cluster"
	"github.com/cognicore/kpbench/pkg/kpbench/document"
	"github.com/cognicore/kpbench/pkg/kpbench/eval"
	"github.com/cognicore/kpbench/pkg/kpbench/graph"
	"github.com/cognicore/kpbench/pkg/kpbench/ingest"
	"github.com/cognicore/kpbench/pkg/kpbench/internalerr"
	"github.com/cognicore/kpbench/pkg/kpbench/lexicon"
	"github.com/cognicore/kpbench/pkg/kpbench/pipeline"
	"github.com/cognicore/kpbench/pkg/kpbench/rank"
	"github.com/cognicore/kpbench/pkg/kpbench/selector"
	"github.com/cognicore/kpbench/pkg/kpbench/stoplist"
	"github.com/cognicore/kpbench/pkg/kpbench/store"
	"github.com/cognicore/kpbench/pkg/kpbench/store/sqlite"
	"github.com/cognicore/kpbench/pkg/kpbench/topicrankpp"
	"github.com/cognicore/kpbench/pkg/kpbench/workpool"
)

// Loader loads the shared resources of a run file and constructs the
// pipeline of each run. Resources opened while building (cache, result
// stores, card files) are released by Close.
type Loader struct {
	StoplistPath string
	LexiconPath  string

	// Overrides of the file defaults; zero values keep the defaults.
	CacheDir  string
	OutputDir string
	Workers   int

	Logger *slog.Logger

	mu      sync.Mutex
	loaded  bool
	stops   *stoplist.Manager
	lexicon *lexicon.Lexicon
	cache   *cache.Cache
	stores  map[string]store.Store
	closers []io.Closer
}

// resources holds what every component of one run is built from.
type resources struct {
	run       Run
	corpus    *document.Corpus
	stemmer   ingest.Stemmer
	annotator candidate.Annotator
	stops     *stoplist.Manager
	norm      eval.Normalizer
	outputDir string
	explainer *rank.FeatureRanker
}

// Load reads the stop list and lexicon files once.
func (l *Loader) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return nil
	}
	if l.Logger == nil {
		l.Logger = slog.Default()
	}

	// Load stoplist
	if l.StoplistPath != "" {
		stops, err := stoplist.LoadYAML(l.StoplistPath)
		if err != nil {
			return fmt.Errorf("load stoplist: %w", err)
		}
		l.stops = stops
	}

	// Load lexicon
	if l.LexiconPath != "" {
		lex, err := lexicon.LoadFromYAML(l.LexiconPath)
		if err != nil {
			return fmt.Errorf("load lexicon: %w", err)
		}
		l.lexicon = lex
	}

	l.stores = make(map[string]store.Store)
	l.loaded = true
	return nil
}

// Build resolves every component of run into a ready pipeline. Unknown
// component types are ConfigurationErrors.
func (l *Loader) Build(ctx context.Context, run Run, defaults Defaults) (*pipeline.Pipeline, error) {
	if err := l.Load(); err != nil {
		return nil, err
	}
	if err := run.Validate(); err != nil {
		return nil, err
	}

	res, err := l.resources(run, defaults)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(run.Name, res.corpus, l.Logger)
	p.RunID = pipeline.NewRunID()
	p.Config = run.Render()
	p.Pool = workpool.New(firstPositive(l.Workers, defaults.Workers))

	if cacheDir := firstNonEmpty(l.CacheDir, defaults.CacheDir); cacheDir != "" {
		c, err := l.openCache(cacheDir)
		if err != nil {
			return nil, err
		}
		p.Cache = c
	}

	builder := run.DocumentBuilder
	if builder.Type == "" {
		builder.Type = "preprocessor"
	}
	upstream := fmt.Sprintf("%s\x00%s\x00%s", res.corpus.Name, res.corpus.Language, res.corpus.Encoding)
	p.Stages.Builder = pipeline.Stage{Component: builder.Fingerprint(upstream), Lazy: builder.Lazy, Shared: true}
	upstream = fmt.Sprintf("%s\x00stem=%t\x00lexicon=%s", p.Stages.Builder.Component, run.StemmingEnabled(), l.LexiconPath)
	p.Stages.Extractor = pipeline.Stage{Component: run.CandidateExtractor.Fingerprint(upstream), Lazy: run.CandidateExtractor.Lazy}
	p.Stages.Clusterer = pipeline.Stage{Component: run.CandidateClusterer.Fingerprint(p.Stages.Extractor.Component), Lazy: run.CandidateClusterer.Lazy}
	p.Stages.Ranker = pipeline.Stage{Component: run.Ranker.Fingerprint(p.Stages.Clusterer.Component), Lazy: run.Ranker.Lazy}
	p.Stages.Selector = pipeline.Stage{Component: run.Selector.Fingerprint(p.Stages.Ranker.Component), Lazy: run.Selector.Lazy}

	if p.Builder, err = l.documentBuilder(builder, res); err != nil {
		return nil, err
	}
	if p.Extractor, err = l.extractor(run.CandidateExtractor, res); err != nil {
		return nil, err
	}
	if p.Clusterer, err = l.clusterer(run.CandidateClusterer); err != nil {
		return nil, err
	}
	if p.Ranker, err = l.ranker(run.Ranker, res); err != nil {
		return nil, err
	}
	if p.Selector, err = l.selector(run.Selector); err != nil {
		return nil, err
	}
	if err := l.consumers(ctx, p, run.KeyphraseConsumers, res); err != nil {
		return nil, err
	}
	return p, nil
}

func (l *Loader) resources(run Run, defaults Defaults) (*resources, error) {
	spec := run.Corpus
	if spec.Name == "" {
		spec.Name = filepath.Base(filepath.Clean(spec.Path))
	}
	if spec.Language == "" {
		spec.Language = "en"
	}
	if spec.Encoding == "" {
		spec.Encoding = "utf-8"
	}
	corpus, err := document.LoadCorpus(spec.Path, spec.Name, spec.Language, spec.Encoding, spec.TrainRef, spec.TestRef)
	if err != nil {
		return nil, internalerr.Configf("corpus_builder", "run %q: %v", run.Name, err)
	}

	res := &resources{run: run, corpus: corpus, stops: l.stops, outputDir: firstNonEmpty(l.OutputDir, defaults.OutputDir)}
	if res.stops == nil {
		res.stops = stoplist.ForLanguage(spec.Language)
	}
	if run.StemmingEnabled() {
		stemmer, err := ingest.NewSnowballStemmer(spec.Language)
		if err != nil {
			return nil, internalerr.Configf("stemming", "run %q: %v", run.Name, err)
		}
		res.stemmer = stemmer
	}
	res.annotator = candidate.Annotator{Stemmer: res.stemmer}
	if l.lexicon != nil {
		res.annotator.Lemmatizer = l.lexicon
	}
	res.norm = eval.Normalizer{Stemmer: res.stemmer, Tokenizer: ingest.NewTokenizer()}
	return res, nil
}

type builderParams struct {
	Tagger       string   `yaml:"tagger"`
	Command      string   `yaml:"command"`
	Args         []string `yaml:"args"`
	TagSeparator string   `yaml:"tag_separator"`
	Reader       string   `yaml:"reader"`
}

func (l *Loader) documentBuilder(c Component, res *resources) (pipeline.Builder, error) {
	if c.Type != "preprocessor" {
		return nil, internalerr.Configf("document_builder", "unknown type %q", c.Type)
	}
	var params builderParams
	if err := c.Decode(&params); err != nil {
		return nil, err
	}
	pre := ingest.NewPreProcessor(res.corpus.Language, l.Logger)
	switch params.Tagger {
	case "", "rule":
	case "command":
		if params.Command == "" {
			return nil, internalerr.Configf("document_builder", "command tagger without a command")
		}
		pre.Tagger = ingest.NewCommandTagger(params.Command, params.Args, params.TagSeparator)
	default:
		return nil, internalerr.Configf("document_builder", "unknown tagger %q", params.Tagger)
	}
	switch params.Reader {
	case "", "auto":
	case "text":
		pre.Reader = ingest.TextReader{}
	case "structured_text":
		pre.Reader = ingest.TextReader{Structured: true}
	case "html":
		pre.Reader = ingest.HTMLReader{}
	case "xml", "tei":
		pre.Reader = ingest.XMLReader{}
	default:
		return nil, internalerr.Configf("document_builder", "unknown reader %q", params.Reader)
	}
	return pre, nil
}

type extractorParams struct {
	N             int                 `yaml:"n"`
	MinLength     int                 `yaml:"min_length"`
	Pattern       string              `yaml:"pattern"`
	MinWordLength int                 `yaml:"min_word_length"`
	Boundaries    map[string][]string `yaml:"boundaries"`
	K             int                 `yaml:"k"`
	MaxExpansion  int                 `yaml:"max_expansion"`
	Lambda1       float64             `yaml:"lambda1"`
	Lambda2       float64             `yaml:"lambda2"`
	MinPreference float64             `yaml:"min_preference"`
}

func (l *Loader) extractor(c Component, res *resources) (candidate.Extractor, error) {
	params := extractorParams{N: 3}
	if err := c.Decode(&params); err != nil {
		return nil, err
	}
	pattern := params.Pattern
	if pattern == "" {
		pattern = candidate.NounPhrasePattern(res.corpus.Language)
	}

	switch c.Type {
	case "ngram":
		filters := []candidate.Filter{candidate.StopWordFilter(res.stops)}
		if params.MinLength > 0 {
			filters = append(filters, candidate.MinLengthFilter(params.MinLength))
		}
		return candidate.NewNGramExtractor(params.N, res.annotator, filters...), nil
	case "pattern", "noun_phrase":
		e, err := candidate.NewPatternExtractor(pattern, params.MinWordLength, res.annotator)
		if err != nil {
			return nil, internalerr.Configf("candidate_extractor", "pattern %q: %v", pattern, err)
		}
		return e, nil
	case "pos_boundary":
		boundaries := params.Boundaries
		if boundaries == nil {
			boundaries = candidate.DefaultBoundaries()
		}
		return candidate.NewBoundaryExtractor(boundaries, res.annotator), nil
	case "core_words":
		e := candidate.NewCoreWordExtractor(res.stops, res.annotator)
		if params.K > 0 {
			e.K = params.K
		}
		if params.MaxExpansion > 0 {
			e.MaxExpansion = params.MaxExpansion
		}
		return e, nil
	case "clarit96":
		np, err := candidate.NewPatternExtractor(pattern, params.MinWordLength, res.annotator)
		if err != nil {
			return nil, internalerr.Configf("candidate_extractor", "pattern %q: %v", pattern, err)
		}
		e := candidate.NewClarit96Extractor(np)
		if params.Lambda1 > 0 {
			e.Lambda1 = params.Lambda1
		}
		if params.Lambda2 > 0 {
			e.Lambda2 = params.Lambda2
		}
		if params.MinPreference > 0 {
			e.MinPreference = params.MinPreference
		}
		return e, nil
	}
	return nil, internalerr.Configf("candidate_extractor", "unknown type %q", c.Type)
}

type clustererParams struct {
	Threshold float64 `yaml:"threshold"`
	Linkage   string  `yaml:"linkage"`
}

func (l *Loader) clusterer(c Component) (cluster.Clusterer, error) {
	switch c.Type {
	case "", "none", "fake":
		return cluster.FakeClusterer{}, nil
	case "hac":
		params := clustererParams{Threshold: cluster.DefaultThreshold, Linkage: cluster.LinkageAverage}
		if err := c.Decode(&params); err != nil {
			return nil, err
		}
		switch params.Linkage {
		case cluster.LinkageAverage, cluster.LinkageSingle, cluster.LinkageComplete:
		default:
			return nil, internalerr.Configf("candidate_clusterer", "unknown linkage %q", params.Linkage)
		}
		h := cluster.NewHACClusterer(params.Threshold)
		h.Linkage = params.Linkage
		return h, nil
	}
	return nil, internalerr.Configf("candidate_clusterer", "unknown type %q", c.Type)
}

type graphParams struct {
	graph.PageRankConfig `yaml:",inline"`

	Window int    `yaml:"window"`
	Mode   string `yaml:"mode"`
	Order  string `yaml:"order"`
}

type featureParams struct {
	Weights       *rank.Weights `yaml:"weights"`
	PositionDecay float64       `yaml:"position_decay"`
}

type topicRankPPParams struct {
	Weighting string `yaml:"weighting"`
}

func (l *Loader) ranker(c Component, res *resources) (rank.Ranker, error) {
	switch c.Type {
	case "textrank", "singlerank", "complete", "topicrank":
		params := graphParams{PageRankConfig: graph.DefaultPageRankConfig()}
		if err := c.Decode(&params); err != nil {
			return nil, err
		}
		var r *graph.Ranker
		switch c.Type {
		case "textrank":
			r = graph.TextRank(params.Window)
		case "singlerank":
			r = graph.SingleRank(params.Window)
		case "complete":
			r = graph.CompleteRank()
		default:
			if params.Mode == "" {
				params.Mode = "sentence"
			}
			mode, err := graph.ParseMode(params.Mode)
			if err != nil {
				return nil, err
			}
			switch params.Order {
			case "", graph.OrderPosition, graph.OrderFrequency, graph.OrderCentroid:
			default:
				return nil, internalerr.Configf("ranker", "unknown topic order %q", params.Order)
			}
			window := params.Window
			if window <= 1 {
				window = graph.SingleRankWindow
			}
			r = graph.TopicRanker(mode, window, params.Order)
		}
		r.Config = params.PageRankConfig
		return r, nil

	case "topicrank++":
		params := topicRankPPParams{Weighting: topicrankpp.WeightFrequency}
		if err := c.Decode(&params); err != nil {
			return nil, err
		}
		if params.Weighting != topicrankpp.WeightFrequency && params.Weighting != topicrankpp.WeightNPMI {
			return nil, internalerr.Configf("ranker", "unknown domain weighting %q", params.Weighting)
		}
		r := topicrankpp.NewRanker(topicrankpp.NewStore(res.stemmer, params.Weighting))
		if err := c.Decode(r); err != nil {
			return nil, err
		}
		return r, nil

	case "tfidf", "first_position", "frequency", "features":
		params := featureParams{}
		if err := c.Decode(&params); err != nil {
			return nil, err
		}
		weights := map[string]rank.Weights{
			"tfidf":          rank.TFIDFWeights,
			"first_position": rank.FirstPositionWeights,
			"frequency":      rank.FrequencyWeights,
		}[c.Type]
		if params.Weights != nil {
			weights = *params.Weights
		} else if c.Type == "features" {
			return nil, internalerr.Configf("ranker", "features ranker without weights")
		}
		r := rank.NewFeatureRanker(weights, params.PositionDecay, res.stemmer)
		res.explainer = r
		return r, nil
	}
	return nil, internalerr.Configf("ranker", "unknown type %q", c.Type)
}

type selectorParams struct {
	K int `yaml:"k"`
}

func (l *Loader) selector(c Component) (selector.Selector, error) {
	params := selectorParams{K: 10}
	if err := c.Decode(&params); err != nil {
		return nil, err
	}
	if params.K <= 0 {
		return nil, internalerr.Configf("selector", "k must be positive, got %d", params.K)
	}
	switch c.Type {
	case "", "whole":
		return selector.Whole{}, nil
	case "topk":
		return selector.TopK{K: params.K}, nil
	case "unredundant":
		return selector.Unredundant{}, nil
	case "unredundant_topk":
		return selector.UnredundantTopK{K: params.K}, nil
	case "unredundant_textrank":
		return selector.UnredundantTextRank{K: params.K}, nil
	}
	return nil, internalerr.Configf("selector", "unknown type %q", c.Type)
}

type consumerParams struct {
	Dir  string `yaml:"dir"`
	Path string `yaml:"path"`
}

// consumers attaches the keyphrase consumers of a run. Without any, the
// run is evaluated with PRFM.
func (l *Loader) consumers(ctx context.Context, p *pipeline.Pipeline, cs []Component, res *resources) error {
	if len(cs) == 0 {
		cs = []Component{{Type: "prfm"}}
	}
	for _, c := range cs {
		var params consumerParams
		if err := c.Decode(&params); err != nil {
			return err
		}
		switch c.Type {
		case "prf", "prfm":
			e := eval.NewPRFM(res.corpus.TestRefs, res.norm)
			if c.Type == "prf" {
				e = eval.NewPRF(res.corpus.TestRefs, res.norm)
			}
			p.Evaluators = append(p.Evaluators, e)
			p.Consumers = append(p.Consumers, e)

		case "text":
			dir := firstNonEmpty(params.Dir, res.outputDir)
			if dir == "" {
				return internalerr.Configf("keyphrase_consumers", "text writer without a directory")
			}
			p.Consumers = append(p.Consumers, pipeline.TextWriter{Dir: dir, Run: p.Name})

		case "sqlite":
			path := params.Path
			if path == "" && res.outputDir != "" {
				path = filepath.Join(res.outputDir, "results.db")
			}
			if path == "" {
				return internalerr.Configf("keyphrase_consumers", "sqlite store without a path")
			}
			st, err := l.openStore(ctx, path)
			if err != nil {
				return err
			}
			p.Store = st
			p.Consumers = append(p.Consumers, store.Consumer{Store: st, RunID: p.RunID})

		case "cards":
			path := params.Path
			if path == "" && res.outputDir != "" {
				path = filepath.Join(res.outputDir, p.Name+".cards.jsonl")
			}
			if path == "" {
				return internalerr.Configf("keyphrase_consumers", "cards writer without a path")
			}
			f, err := l.create(path)
			if err != nil {
				return err
			}
			p.Consumers = append(p.Consumers, cards.NewWriter(f, cards.New(res.explainer, res.corpus.TestRefs, res.norm)))

		default:
			return internalerr.Configf("keyphrase_consumers", "unknown type %q", c.Type)
		}
	}
	return nil
}

func (l *Loader) openCache(dir string) (*cache.Cache, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cache != nil {
		return l.cache, nil
	}
	c, err := cache.Open(dir, 0, l.Logger)
	if err != nil {
		return nil, err
	}
	l.cache = c
	return c, nil
}

// openStore opens each sqlite file once; runs writing to the same file
// share the store.
func (l *Loader) openStore(ctx context.Context, path string) (store.Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok := l.stores[path]; ok {
		return st, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	st, err := sqlite.OpenSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open results store %s: %w", path, err)
	}
	l.stores[path] = st
	l.closers = append(l.closers, st)
	return st, nil
}

func (l *Loader) create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.closers = append(l.closers, f)
	l.mu.Unlock()
	return f, nil
}

// Close releases the stores and files opened by Build.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var first error
	for _, c := range l.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	l.stores = make(map[string]store.Store)
	return first
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
